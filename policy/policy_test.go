package policy

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eventure/eventure-go/models"
)

func TestCanViewEvent(t *testing.T) {
	creator, stranger := primitive.NewObjectID(), primitive.NewObjectID()

	cases := []struct {
		name   string
		status string
		role   string
		caller primitive.ObjectID
		want   bool
	}{
		{"approved visible to anyone", models.StatusApproved, models.RoleUser, stranger, true},
		{"pending hidden from strangers", models.StatusPending, models.RoleUser, stranger, false},
		{"pending visible to creator", models.StatusPending, models.RoleUser, creator, true},
		{"pending visible to admin", models.StatusPending, models.RoleAdmin, stranger, true},
		{"rejected hidden from strangers", models.StatusRejected, models.RoleUser, stranger, false},
		{"rejected visible to creator", models.StatusRejected, models.RoleUser, creator, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := &models.Event{Status: tc.status, CreatedBy: creator}
			if got := CanViewEvent(tc.role, tc.caller, ev); got != tc.want {
				t.Errorf("CanViewEvent = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanModifyEvent(t *testing.T) {
	creator, stranger := primitive.NewObjectID(), primitive.NewObjectID()
	ev := &models.Event{CreatedBy: creator}

	if !CanModifyEvent(models.RoleUser, creator, ev) {
		t.Error("creator must be able to modify their event")
	}
	if CanModifyEvent(models.RoleUser, stranger, ev) {
		t.Error("a stranger must not modify the event")
	}
	if !CanModifyEvent(models.RoleAdmin, stranger, ev) {
		t.Error("an admin must be able to modify any event")
	}
}

func TestCanApproveEvent(t *testing.T) {
	if CanApproveEvent(models.RoleUser) {
		t.Error("regular users must not approve events")
	}
	if !CanApproveEvent(models.RoleAdmin) {
		t.Error("admins must approve events")
	}
}

func TestFeedbackDecisions(t *testing.T) {
	author, stranger := primitive.NewObjectID(), primitive.NewObjectID()
	fb := &models.Feedback{User: author}

	if !CanUpdateFeedback(author, fb) {
		t.Error("author must be able to edit their feedback")
	}
	if CanUpdateFeedback(stranger, fb) {
		t.Error("non-author must not edit feedback")
	}

	if !CanDeleteFeedback(models.RoleUser, author, fb) {
		t.Error("author must be able to delete their feedback")
	}
	if CanDeleteFeedback(models.RoleUser, stranger, fb) {
		t.Error("a stranger must not delete feedback")
	}
	if !CanDeleteFeedback(models.RoleAdmin, stranger, fb) {
		t.Error("an admin must be able to delete any feedback")
	}

	if CanToggleHelpful(author, fb) {
		t.Error("authors must not vote on their own feedback")
	}
	if !CanToggleHelpful(stranger, fb) {
		t.Error("others must be able to vote")
	}
}
