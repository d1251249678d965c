package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

const DefaultCapacity = 50

type Event struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description" json:"description"`
	Date          time.Time            `bson:"date" json:"date"`
	Time          string               `bson:"time,omitempty" json:"time,omitempty"`
	Duration      string               `bson:"duration,omitempty" json:"duration,omitempty"`
	Venue         string               `bson:"venue" json:"venue"`
	TypeOfEvent   string               `bson:"type_of_event,omitempty" json:"type_of_event,omitempty"`
	Image         string               `bson:"image,omitempty" json:"image,omitempty"`
	Capacity      int                  `bson:"capacity" json:"capacity"`
	Reminders     []string             `bson:"reminders" json:"reminders"`
	Status        string               `bson:"status" json:"status"`
	CreatedBy     primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Participants  []primitive.ObjectID `bson:"participants" json:"participants"`
	AverageRating float64              `bson:"average_rating" json:"average_rating"`
	TotalReviews  int                  `bson:"total_reviews" json:"total_reviews"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`

	// Derived on read, never persisted.
	HasPassed         bool `bson:"-" json:"has_passed"`
	IsFull            bool `bson:"-" json:"is_full"`
	RemainingSlots    int  `bson:"-" json:"remaining_slots"`
	TotalParticipants int  `bson:"-" json:"total_participants"`
}

// Derive fills the computed fields from the persisted ones.
func (e *Event) Derive(now time.Time) {
	e.TotalParticipants = len(e.Participants)
	e.HasPassed = now.After(e.Date)
	e.RemainingSlots = e.Capacity - len(e.Participants)
	if e.RemainingSlots < 0 {
		e.RemainingSlots = 0
	}
	e.IsFull = len(e.Participants) >= e.Capacity
}

func (e *Event) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// EventInput is the writable field set for event creation.
type EventInput struct {
	Title       string   `form:"title" json:"title"`
	Description string   `form:"description" json:"description"`
	Date        string   `form:"date" json:"date"`
	Time        string   `form:"time" json:"time"`
	Duration    string   `form:"duration" json:"duration"`
	Venue       string   `form:"venue" json:"venue"`
	TypeOfEvent string   `form:"type_of_event" json:"type_of_event"`
	Capacity    *int     `form:"capacity" json:"capacity"`
	Reminders   []string `form:"reminders" json:"reminders"`
}

// EventFields is the normalized result of a validated EventInput.
type EventFields struct {
	Title       string
	Description string
	Date        time.Time
	Time        string
	Duration    string
	Venue       string
	TypeOfEvent string
	Capacity    int
	Reminders   []string
}

// Validate checks every field and reports all violations at once,
// keyed by field name, rather than stopping at the first.
func (in EventInput) Validate() (EventFields, map[string]string) {
	problems := map[string]string{}
	out := EventFields{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Venue:       strings.TrimSpace(in.Venue),
		TypeOfEvent: strings.TrimSpace(in.TypeOfEvent),
		Time:        in.Time,
		Duration:    in.Duration,
		Capacity:    DefaultCapacity,
		Reminders:   in.Reminders,
	}
	if out.Reminders == nil {
		out.Reminders = []string{}
	}

	if out.Title == "" {
		problems["title"] = "title is required"
	}
	if out.Description == "" {
		problems["description"] = "description is required"
	}
	if out.Venue == "" {
		problems["venue"] = "venue is required"
	}

	if in.Date == "" {
		problems["date"] = "date is required"
	} else if d, err := ParseEventDate(in.Date); err != nil {
		problems["date"] = err.Error()
	} else {
		out.Date = d
	}

	if in.Time != "" && !timeOfDayRe.MatchString(in.Time) {
		problems["time"] = "time must be in 24h HH:mm format"
	}

	if in.Capacity != nil {
		if *in.Capacity < 1 {
			problems["capacity"] = "capacity must be a positive integer"
		} else {
			out.Capacity = *in.Capacity
		}
	}

	return out, problems
}

// ParseEventDate parses a calendar date in YYYY-MM-DD form.
func ParseEventDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be a valid calendar date in YYYY-MM-DD format")
	}
	return d.UTC(), nil
}

// EventPatch is a partial update. Nil pointers mean "leave unchanged".
type EventPatch struct {
	Title       *string  `form:"title" json:"title"`
	Description *string  `form:"description" json:"description"`
	Date        *string  `form:"date" json:"date"`
	Time        *string  `form:"time" json:"time"`
	Duration    *string  `form:"duration" json:"duration"`
	Venue       *string  `form:"venue" json:"venue"`
	TypeOfEvent *string  `form:"type_of_event" json:"type_of_event"`
	Capacity    *int     `form:"capacity" json:"capacity"`
	Reminders   []string `form:"reminders" json:"reminders"`
	Status      *string  `form:"status" json:"status"`
}

// Sanitize strips the fields a non-admin caller may not touch. The
// stripped keys are dropped silently, not rejected.
func (p EventPatch) Sanitize(isAdmin bool) EventPatch {
	if !isAdmin {
		p.Status = nil
	}
	return p
}

// Validate checks only the fields present in the patch, reporting all
// violations keyed by field name.
func (p EventPatch) Validate() map[string]string {
	problems := map[string]string{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		problems["title"] = "title cannot be empty"
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		problems["description"] = "description cannot be empty"
	}
	if p.Venue != nil && strings.TrimSpace(*p.Venue) == "" {
		problems["venue"] = "venue cannot be empty"
	}
	if p.Date != nil {
		if _, err := ParseEventDate(*p.Date); err != nil {
			problems["date"] = err.Error()
		}
	}
	if p.Time != nil && *p.Time != "" && !timeOfDayRe.MatchString(*p.Time) {
		problems["time"] = "time must be in 24h HH:mm format"
	}
	if p.Capacity != nil && *p.Capacity < 1 {
		problems["capacity"] = "capacity must be a positive integer"
	}
	if p.Status != nil && *p.Status != StatusPending && *p.Status != StatusApproved && *p.Status != StatusRejected {
		problems["status"] = "status must be Pending, Approved or Rejected"
	}
	return problems
}

// UpdateDoc builds the $set document for the patch. Call Validate
// first; an invalid date here is silently skipped.
func (p EventPatch) UpdateDoc(now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if p.Title != nil {
		set["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		set["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Venue != nil {
		set["venue"] = strings.TrimSpace(*p.Venue)
	}
	if p.Date != nil {
		if d, err := ParseEventDate(*p.Date); err == nil {
			set["date"] = d
		}
	}
	if p.Time != nil {
		set["time"] = *p.Time
	}
	if p.Duration != nil {
		set["duration"] = *p.Duration
	}
	if p.TypeOfEvent != nil {
		set["type_of_event"] = strings.TrimSpace(*p.TypeOfEvent)
	}
	if p.Capacity != nil {
		set["capacity"] = *p.Capacity
	}
	if p.Reminders != nil {
		set["reminders"] = p.Reminders
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	return set
}
