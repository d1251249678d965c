package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eventure/eventure-go/apperr"
	"github.com/eventure/eventure-go/models"
)

func approvedEvent(capacity int, members ...primitive.ObjectID) *models.Event {
	return &models.Event{
		ID:           primitive.NewObjectID(),
		Status:       models.StatusApproved,
		Capacity:     capacity,
		Participants: members,
		Date:         time.Now().AddDate(0, 1, 0),
	}
}

func TestCanJoin(t *testing.T) {
	userA, userB, userC := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	t.Run("pending event rejects joins", func(t *testing.T) {
		ev := approvedEvent(5)
		ev.Status = models.StatusPending
		if err := CanJoin(ev, userA); err == nil || err.Kind != apperr.Conflict {
			t.Fatalf("expected Conflict, got %v", err)
		}
	})

	t.Run("duplicate join rejected", func(t *testing.T) {
		ev := approvedEvent(5, userA)
		if err := CanJoin(ev, userA); err == nil || err.Kind != apperr.Conflict {
			t.Fatalf("expected Conflict, got %v", err)
		}
	})

	t.Run("full event rejected", func(t *testing.T) {
		ev := approvedEvent(2, userA, userB)
		if err := CanJoin(ev, userC); err == nil || err.Kind != apperr.Conflict {
			t.Fatalf("expected Conflict, got %v", err)
		}
	})

	t.Run("open slot accepted", func(t *testing.T) {
		ev := approvedEvent(2, userA)
		if err := CanJoin(ev, userB); err != nil {
			t.Fatalf("expected join to be allowed, got %v", err)
		}
	})
}

// The capacity-2 walkthrough: A and B fill the event, C bounces off.
func TestJoinScenario_CapacityTwo(t *testing.T) {
	userA, userB, userC := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now().UTC()

	ev := approvedEvent(2)
	ev.Derive(now)
	if ev.RemainingSlots != 2 || ev.IsFull {
		t.Fatalf("fresh event: remaining=%d full=%v", ev.RemainingSlots, ev.IsFull)
	}

	if err := CanJoin(ev, userA); err != nil {
		t.Fatalf("A join: %v", err)
	}
	ev.Participants = append(ev.Participants, userA)
	ev.Derive(now)
	if ev.RemainingSlots != 1 {
		t.Fatalf("after A: remaining=%d", ev.RemainingSlots)
	}

	if err := CanJoin(ev, userB); err != nil {
		t.Fatalf("B join: %v", err)
	}
	ev.Participants = append(ev.Participants, userB)
	ev.Derive(now)
	if ev.RemainingSlots != 0 || !ev.IsFull {
		t.Fatalf("after B: remaining=%d full=%v", ev.RemainingSlots, ev.IsFull)
	}

	if err := CanJoin(ev, userC); err == nil || err.Kind != apperr.Conflict {
		t.Fatalf("C join should conflict, got %v", err)
	}
}

func TestCanLeave(t *testing.T) {
	member, outsider := primitive.NewObjectID(), primitive.NewObjectID()
	ev := approvedEvent(5, member)

	if err := CanLeave(ev, member); err != nil {
		t.Errorf("member should be able to leave, got %v", err)
	}
	if err := CanLeave(ev, outsider); err == nil || err.Kind != apperr.Conflict {
		t.Errorf("non-member leave should conflict, got %v", err)
	}
}

func TestListFilter(t *testing.T) {
	admin := Caller{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	user := Caller{ID: primitive.NewObjectID(), Role: models.RoleUser}

	if f := listFilter(admin, ""); len(f) != 0 {
		t.Errorf("admin filter should be empty, got %v", f)
	}
	if f := listFilter(user, ""); f["status"] != models.StatusApproved {
		t.Errorf("default user filter should select Approved, got %v", f)
	}
	if f := listFilter(user, ScopeMine); f["created_by"] != user.ID {
		t.Errorf("mine scope should filter by creator, got %v", f)
	}
	// Admins see everything no matter the requested scope.
	if f := listFilter(admin, ScopeMine); len(f) != 0 {
		t.Errorf("admin mine filter should still be empty, got %v", f)
	}
}

func TestParsePolicyMode(t *testing.T) {
	if ParsePolicyMode("strict") != PolicyStrict {
		t.Error("strict should parse to PolicyStrict")
	}
	if ParsePolicyMode("") != PolicyOpen {
		t.Error("empty should default to PolicyOpen")
	}
	if ParsePolicyMode("nonsense") != PolicyOpen {
		t.Error("unknown values should default to PolicyOpen")
	}
}
