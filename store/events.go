package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventure/eventure-go/apperr"
	"github.com/eventure/eventure-go/media"
	"github.com/eventure/eventure-go/models"
	"github.com/eventure/eventure-go/policy"
)

// Notifier delivers a best-effort email. Failures are logged, never
// surfaced to the caller.
type Notifier func(to, subject, body string) error

type EventStore struct {
	events *mongo.Collection
	users  *mongo.Collection
	media  media.Storage
	notify Notifier
	log    *slog.Logger
}

func NewEventStore(db *mongo.Database, m media.Storage, notify Notifier, log *slog.Logger) *EventStore {
	return &EventStore{
		events: db.Collection("events"),
		users:  db.Collection("users"),
		media:  m,
		notify: notify,
		log:    log,
	}
}

// Create validates the submitted fields, stores the optional image and
// persists the event as Pending. All field violations are reported in
// one response.
func (s *EventStore) Create(ctx context.Context, caller Caller, in models.EventInput, image io.Reader) (*models.Event, error) {
	fields, problems := in.Validate()
	if len(problems) > 0 {
		return nil, apperr.ValidationFailed(problems)
	}

	imageURL := ""
	if image != nil {
		url, err := s.media.Store(ctx, image, media.CategoryEvent)
		if err != nil {
			return nil, apperr.New(apperr.Internal, "image upload failed")
		}
		imageURL = url
	}

	now := time.Now().UTC()
	ev := models.Event{
		ID:           primitive.NewObjectID(),
		Title:        fields.Title,
		Description:  fields.Description,
		Date:         fields.Date,
		Time:         fields.Time,
		Duration:     fields.Duration,
		Venue:        fields.Venue,
		TypeOfEvent:  fields.TypeOfEvent,
		Image:        imageURL,
		Capacity:     fields.Capacity,
		Reminders:    fields.Reminders,
		Status:       models.StatusPending,
		CreatedBy:    caller.ID,
		Participants: []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.events.InsertOne(ctx, ev); err != nil {
		// Don't leave an uploaded image unreachable from any record.
		if imageURL != "" {
			s.media.Delete(ctx, imageURL)
		}
		return nil, apperr.New(apperr.Internal, "could not create event")
	}

	ev.Derive(now)
	return &ev, nil
}

// ListScope values accepted by List for non-admin callers.
const (
	ScopeApproved = "approved"
	ScopeMine     = "mine"
)

// listFilter builds the visibility filter: admins see everything,
// everyone else sees Approved events or, with scope "mine", their own.
func listFilter(caller Caller, scope string) bson.M {
	if caller.IsAdmin() {
		return bson.M{}
	}
	if scope == ScopeMine {
		return bson.M{"created_by": caller.ID}
	}
	return bson.M{"status": models.StatusApproved}
}

func (s *EventStore) List(ctx context.Context, caller Caller, scope string) ([]models.Event, error) {
	cursor, err := s.events.Find(ctx, listFilter(caller, scope),
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not fetch events")
	}

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, apperr.New(apperr.Internal, "could not decode events")
	}

	now := time.Now().UTC()
	for i := range events {
		events[i].Derive(now)
	}
	return events, nil
}

func (s *EventStore) Get(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Event, error) {
	ev, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewEvent(caller.Role, caller.ID, ev) {
		return nil, apperr.New(apperr.Forbidden, "event is not visible to you")
	}
	ev.Derive(time.Now().UTC())
	return ev, nil
}

// Approve transitions Pending -> Approved. Idempotent: re-approving an
// Approved event succeeds without touching the record.
func (s *EventStore) Approve(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Event, error) {
	return s.setStatus(ctx, caller, id, models.StatusApproved)
}

// Reject transitions Pending -> Rejected, same idempotency as Approve.
func (s *EventStore) Reject(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Event, error) {
	return s.setStatus(ctx, caller, id, models.StatusRejected)
}

func (s *EventStore) setStatus(ctx context.Context, caller Caller, id primitive.ObjectID, status string) (*models.Event, error) {
	if !policy.CanApproveEvent(caller.Role) {
		return nil, apperr.New(apperr.Forbidden, "admin access only")
	}

	ev, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if ev.Status != status {
		now := time.Now().UTC()
		_, err = s.events.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": status, "updated_at": now}})
		if err != nil {
			return nil, apperr.New(apperr.Internal, "could not update event status")
		}
		ev.Status = status
		ev.UpdatedAt = now
		s.notifyOrganizer(ctx, ev)
	}

	ev.Derive(time.Now().UTC())
	return ev, nil
}

// notifyOrganizer emails the event creator about the review outcome.
// Best-effort: any failure is logged and swallowed.
func (s *EventStore) notifyOrganizer(ctx context.Context, ev *models.Event) {
	if s.notify == nil {
		return
	}
	var organizer models.UserRef
	err := s.users.FindOne(ctx, bson.M{"_id": ev.CreatedBy}).Decode(&organizer)
	if err != nil || organizer.Email == "" {
		s.log.Warn("organizer lookup failed, skipping notification", "event", ev.ID.Hex(), "err", err)
		return
	}

	subject := fmt.Sprintf("Your event %q was %s", ev.Title, ev.Status)
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your event <strong>%s</strong> has been marked <strong>%s</strong> by an administrator.</p>",
		organizer.Name, ev.Title, ev.Status)
	if err := s.notify(organizer.Email, subject, body); err != nil {
		s.log.Warn("organizer notification failed", "event", ev.ID.Hex(), "err", err)
	}
}

// Update applies a partial patch. Non-admin callers can't change
// status; that key is stripped, not rejected. A replacement image
// retires the old one best-effort.
func (s *EventStore) Update(ctx context.Context, caller Caller, id primitive.ObjectID, patch models.EventPatch, newImage io.Reader) (*models.Event, error) {
	ev, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyEvent(caller.Role, caller.ID, ev) {
		return nil, apperr.New(apperr.Forbidden, "access denied")
	}

	patch = patch.Sanitize(caller.IsAdmin())
	if problems := patch.Validate(); len(problems) > 0 {
		return nil, apperr.ValidationFailed(problems)
	}

	now := time.Now().UTC()
	set := patch.UpdateDoc(now)

	newImageURL := ""
	if newImage != nil {
		url, err := s.media.Store(ctx, newImage, media.CategoryEvent)
		if err != nil {
			return nil, apperr.New(apperr.Internal, "image upload failed")
		}
		newImageURL = url
		set["image"] = url
	}

	if len(set) == 1 {
		return nil, apperr.New(apperr.Validation, "no fields to update")
	}

	if _, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		if newImageURL != "" {
			s.media.Delete(ctx, newImageURL)
		}
		return nil, apperr.New(apperr.Internal, "could not update event")
	}

	if newImageURL != "" && ev.Image != "" {
		if !s.media.Delete(ctx, ev.Image) {
			s.log.Warn("stale event image not deleted", "event", id.Hex(), "url", ev.Image)
		}
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Derive(now)
	return updated, nil
}

// Delete removes the event. Feedback referencing it is left in place;
// readers tolerate the orphan. The event image is deleted best-effort.
func (s *EventStore) Delete(ctx context.Context, caller Caller, id primitive.ObjectID) error {
	ev, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanModifyEvent(caller.Role, caller.ID, ev) {
		return apperr.New(apperr.Forbidden, "access denied")
	}

	res, err := s.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.New(apperr.Internal, "could not delete event")
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "event not found")
	}

	if ev.Image != "" {
		if !s.media.Delete(ctx, ev.Image) {
			s.log.Warn("event image not deleted", "event", id.Hex(), "url", ev.Image)
		}
	}
	return nil
}

// CanJoin is the pure join admission check. Join re-applies the same
// conditions atomically in the update filter; this function exists so
// failures can be classified and tested.
func CanJoin(ev *models.Event, userID primitive.ObjectID) *apperr.Error {
	if ev.Status != models.StatusApproved {
		return apperr.New(apperr.Conflict, "event is not open for registration")
	}
	if ev.HasParticipant(userID) {
		return apperr.New(apperr.Conflict, "you have already joined this event")
	}
	if len(ev.Participants) >= ev.Capacity {
		return apperr.New(apperr.Conflict, "event is full")
	}
	return nil
}

// CanLeave is the pure leave check.
func CanLeave(ev *models.Event, userID primitive.ObjectID) *apperr.Error {
	if !ev.HasParticipant(userID) {
		return apperr.New(apperr.Conflict, "you are not a participant of this event")
	}
	return nil
}

// Join appends the caller to the roster. The guard conditions live in
// the update filter itself so two concurrent joins cannot both squeeze
// into the last slot.
func (s *EventStore) Join(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Event, error) {
	ev, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if cerr := CanJoin(ev, caller.ID); cerr != nil {
		return nil, cerr
	}

	filter := bson.M{
		"_id":          id,
		"status":       models.StatusApproved,
		"participants": bson.M{"$ne": caller.ID},
		"$expr":        bson.M{"$lt": bson.A{bson.M{"$size": "$participants"}, "$capacity"}},
	}
	update := bson.M{
		"$addToSet": bson.M{"participants": caller.ID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.events.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not join event")
	}
	if res.ModifiedCount == 0 {
		// Lost a race; reload and report the precise conflict.
		ev, err = s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		if cerr := CanJoin(ev, caller.ID); cerr != nil {
			return nil, cerr
		}
		return nil, apperr.New(apperr.Conflict, "could not join event, try again")
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Derive(time.Now().UTC())
	return updated, nil
}

// Leave removes the caller from the roster.
func (s *EventStore) Leave(ctx context.Context, caller Caller, id primitive.ObjectID) (*models.Event, error) {
	ev, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if cerr := CanLeave(ev, caller.ID); cerr != nil {
		return nil, cerr
	}

	_, err = s.events.UpdateOne(ctx,
		bson.M{"_id": id, "participants": caller.ID},
		bson.M{
			"$pull": bson.M{"participants": caller.ID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not leave event")
	}

	updated, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Derive(time.Now().UTC())
	return updated, nil
}

func (s *EventStore) fetch(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var ev models.Event
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "event not found")
	}
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not fetch event")
	}
	return &ev, nil
}
