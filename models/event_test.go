package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func validInput() EventInput {
	return EventInput{
		Title:       "Demo",
		Description: "d",
		Date:        "2030-01-01",
		Venue:       "Hall A",
	}
}

func TestEventInputValidate_Defaults(t *testing.T) {
	fields, problems := validInput().Validate()
	if len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
	if fields.Capacity != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, fields.Capacity)
	}
	if fields.Reminders == nil {
		t.Error("reminders should default to an empty slice")
	}
	want := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if !fields.Date.Equal(want) {
		t.Errorf("date = %v, want %v", fields.Date, want)
	}
}

func TestEventInputValidate_ReportsEveryViolation(t *testing.T) {
	in := EventInput{
		Title:       "  ",
		Description: "",
		Date:        "not-a-date",
		Venue:       "",
		Time:        "25:99",
		Capacity:    intPtr(0),
	}
	_, problems := in.Validate()

	for _, field := range []string{"title", "description", "date", "venue", "time", "capacity"} {
		if _, ok := problems[field]; !ok {
			t.Errorf("expected a problem for %q, got %v", field, problems)
		}
	}
}

func TestEventInputValidate_Time(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"", true},
		{"00:00", true},
		{"09:30", true},
		{"23:59", true},
		{"24:00", false},
		{"9:30", false},
		{"12:60", false},
		{"noonish", false},
	}
	for _, tc := range cases {
		in := validInput()
		in.Time = tc.value
		_, problems := in.Validate()
		if _, bad := problems["time"]; bad == tc.ok {
			t.Errorf("time %q: ok=%v, problems=%v", tc.value, tc.ok, problems)
		}
	}
}

func TestEventInputValidate_Date(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"2030-01-01", true},
		{"2030-02-30", false}, // not a real calendar day
		{"01-01-2030", false},
		{"2030/01/01", false},
		{"", false},
	}
	for _, tc := range cases {
		in := validInput()
		in.Date = tc.value
		_, problems := in.Validate()
		if _, bad := problems["date"]; bad == tc.ok {
			t.Errorf("date %q: ok=%v, problems=%v", tc.value, tc.ok, problems)
		}
	}
}

func TestEventDerive(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	cases := []struct {
		name      string
		date      time.Time
		capacity  int
		members   []primitive.ObjectID
		passed    bool
		full      bool
		remaining int
	}{
		{"upcoming empty", now.AddDate(0, 1, 0), 2, nil, false, false, 2},
		{"one slot left", now.AddDate(0, 1, 0), 2, []primitive.ObjectID{a}, false, false, 1},
		{"exactly full", now.AddDate(0, 1, 0), 2, []primitive.ObjectID{a, b}, false, true, 0},
		{"over capacity after lowering", now.AddDate(0, 1, 0), 1, []primitive.ObjectID{a, b}, false, true, 0},
		{"already passed", now.AddDate(0, -1, 0), 2, nil, true, false, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := Event{Date: tc.date, Capacity: tc.capacity, Participants: tc.members}
			ev.Derive(now)
			if ev.HasPassed != tc.passed {
				t.Errorf("HasPassed = %v, want %v", ev.HasPassed, tc.passed)
			}
			if ev.IsFull != tc.full {
				t.Errorf("IsFull = %v, want %v", ev.IsFull, tc.full)
			}
			if ev.RemainingSlots != tc.remaining {
				t.Errorf("RemainingSlots = %d, want %d", ev.RemainingSlots, tc.remaining)
			}
			if ev.IsFull != (ev.RemainingSlots == 0 && len(ev.Participants) >= ev.Capacity) {
				t.Errorf("IsFull and RemainingSlots disagree: %+v", ev)
			}
			if ev.TotalParticipants != len(tc.members) {
				t.Errorf("TotalParticipants = %d, want %d", ev.TotalParticipants, len(tc.members))
			}
		})
	}
}

func TestEventPatchSanitize(t *testing.T) {
	patch := EventPatch{Title: strPtr("New"), Status: strPtr(StatusApproved)}

	stripped := patch.Sanitize(false)
	if stripped.Status != nil {
		t.Error("non-admin patch should have status stripped")
	}
	if stripped.Title == nil {
		t.Error("title must survive sanitization")
	}

	kept := patch.Sanitize(true)
	if kept.Status == nil {
		t.Error("admin patch should keep status")
	}
}

func TestEventPatchValidate(t *testing.T) {
	bad := EventPatch{
		Title:    strPtr("  "),
		Date:     strPtr("soon"),
		Time:     strPtr("99:00"),
		Capacity: intPtr(-1),
		Status:   strPtr("Archived"),
	}
	problems := bad.Validate()
	for _, field := range []string{"title", "date", "time", "capacity", "status"} {
		if _, ok := problems[field]; !ok {
			t.Errorf("expected a problem for %q, got %v", field, problems)
		}
	}

	good := EventPatch{Title: strPtr("New title"), Capacity: intPtr(10), Status: strPtr(StatusRejected)}
	if problems := good.Validate(); len(problems) != 0 {
		t.Errorf("expected valid patch, got %v", problems)
	}
}

func TestEventPatchUpdateDoc(t *testing.T) {
	now := time.Now().UTC()
	patch := EventPatch{Title: strPtr(" Updated "), Capacity: intPtr(10)}
	set := patch.UpdateDoc(now)

	if set["title"] != "Updated" {
		t.Errorf("title not trimmed: %v", set["title"])
	}
	if set["capacity"] != 10 {
		t.Errorf("capacity = %v, want 10", set["capacity"])
	}
	if _, ok := set["status"]; ok {
		t.Error("unset fields must not appear in the update doc")
	}
	if set["updated_at"] != now {
		t.Error("updated_at must always be set")
	}
}
