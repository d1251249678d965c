package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
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

type FeedbackStore struct {
	feedback *mongo.Collection
	events   *mongo.Collection
	users    *mongo.Collection
	media    media.Storage
	mode     PolicyMode
	log      *slog.Logger
}

func NewFeedbackStore(db *mongo.Database, m media.Storage, mode PolicyMode, log *slog.Logger) *FeedbackStore {
	return &FeedbackStore{
		feedback: db.Collection("feedback"),
		events:   db.Collection("events"),
		users:    db.Collection("users"),
		media:    m,
		mode:     mode,
		log:      log,
	}
}

// Eligibility is the read-only pre-flight for event feedback. It is
// computed by the same function Submit enforces, so the two cannot
// drift apart.
type Eligibility struct {
	CanSubmit        bool   `json:"can_submit"`
	HasJoined        bool   `json:"has_joined"`
	EventEnded       bool   `json:"event_ended"`
	AlreadySubmitted bool   `json:"already_submitted"`
	Reason           string `json:"reason,omitempty"`
}

// Machine-readable reasons returned alongside eligibility failures.
const (
	ReasonNotJoined        = "notJoined"
	ReasonEventNotEnded    = "eventNotEnded"
	ReasonAlreadySubmitted = "alreadySubmitted"
)

// Eligible computes feedback eligibility for one (event, user) pair.
// Under PolicyOpen only a prior submission blocks; PolicyStrict also
// requires membership and a past event date.
func Eligible(ev *models.Event, userID primitive.ObjectID, now time.Time, alreadySubmitted bool, mode PolicyMode) Eligibility {
	el := Eligibility{
		HasJoined:        ev.HasParticipant(userID),
		EventEnded:       now.After(ev.Date),
		AlreadySubmitted: alreadySubmitted,
	}
	switch {
	case alreadySubmitted:
		el.Reason = ReasonAlreadySubmitted
	case mode == PolicyStrict && !el.HasJoined:
		el.Reason = ReasonNotJoined
	case mode == PolicyStrict && !el.EventEnded:
		el.Reason = ReasonEventNotEnded
	default:
		el.CanSubmit = true
	}
	return el
}

// Submit stores feedback. A nil eventID means site-wide feedback,
// which skips the duplicate and eligibility checks entirely. Photos
// are uploaded before the insert; if anything later fails they are
// rolled back so no stored object is left unreachable.
func (s *FeedbackStore) Submit(ctx context.Context, caller Caller, eventID *primitive.ObjectID, in models.FeedbackInput, photos []io.Reader) (*models.Feedback, error) {
	problems := in.Validate()
	if len(photos) > models.MaxPhotos {
		problems["photos"] = "you can upload a maximum of 5 photos"
	}
	if len(problems) > 0 {
		return nil, apperr.ValidationFailed(problems)
	}

	if eventID != nil {
		ev, err := s.fetchEvent(ctx, *eventID)
		if err != nil {
			return nil, err
		}
		el := Eligible(ev, caller.ID, time.Now().UTC(), false, s.mode)
		switch el.Reason {
		case ReasonNotJoined:
			return nil, apperr.WithReason(apperr.Forbidden,
				"only participants can submit feedback for this event", ReasonNotJoined)
		case ReasonEventNotEnded:
			return nil, apperr.WithReason(apperr.Conflict,
				"feedback opens once the event has ended", ReasonEventNotEnded)
		}
	}

	photoURLs, err := s.storePhotos(ctx, photos)
	if err != nil {
		return nil, err
	}

	category := in.Category
	if category == "" {
		category = models.DefaultCategory
	}

	now := time.Now().UTC()
	fb := models.Feedback{
		ID:              primitive.NewObjectID(),
		Event:           eventID,
		User:            caller.ID,
		FeedbackType:    models.FeedbackTypeWebsite,
		Rating:          in.Rating,
		Comment:         strings.TrimSpace(in.Comment),
		Category:        category,
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Photos:          photoURLs,
		MarkedHelpfulBy: []primitive.ObjectID{},
		Reports:         []models.Report{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if eventID != nil {
		fb.FeedbackType = models.FeedbackTypeEvent
		// Event feedback is attendance-backed.
		fb.Verified = true
	}

	if _, err := s.feedback.InsertOne(ctx, fb); err != nil {
		s.rollbackPhotos(ctx, photoURLs)
		if mongo.IsDuplicateKeyError(err) {
			// The unique (event, user) index fired: the invariant
			// holds even for two concurrent submissions.
			return nil, apperr.New(apperr.Conflict, "you have already submitted feedback for this event")
		}
		return nil, apperr.New(apperr.Internal, "could not save feedback")
	}

	if eventID != nil {
		s.recomputeEventRating(ctx, *eventID)
	}
	return &fb, nil
}

// storePhotos uploads every photo or none: the first failure rolls
// back the ones already stored and aborts the submission.
func (s *FeedbackStore) storePhotos(ctx context.Context, photos []io.Reader) ([]string, error) {
	urls := []string{}
	for _, p := range photos {
		url, err := s.media.Store(ctx, p, media.CategoryFeedback)
		if err != nil {
			s.rollbackPhotos(ctx, urls)
			return nil, apperr.New(apperr.Internal, "photo upload failed")
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *FeedbackStore) rollbackPhotos(ctx context.Context, urls []string) {
	for _, url := range urls {
		if !s.media.Delete(ctx, url) {
			s.log.Warn("photo rollback failed", "url", url)
		}
	}
}

// ListOptions filters and pages event feedback.
type ListOptions struct {
	Rating   int    // 0 means any
	Search   string // case-insensitive substring of the comment
	SortBy   string // recent | oldest | highest | lowest | mostHelpful
	Page     int
	PageSize int
}

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// sortSpec maps a sort label to a Mongo sort document. Unknown labels
// fall back to newest-first.
func sortSpec(sortBy string) bson.D {
	switch sortBy {
	case "oldest":
		return bson.D{{Key: "created_at", Value: 1}}
	case "highest":
		return bson.D{{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}}
	case "lowest":
		return bson.D{{Key: "rating", Value: 1}, {Key: "created_at", Value: -1}}
	case "mostHelpful":
		return bson.D{{Key: "helpfulCount", Value: -1}, {Key: "created_at", Value: -1}}
	default: // recent
		return bson.D{{Key: "created_at", Value: -1}}
	}
}

func (o ListOptions) normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = defaultPageSize
	}
	if o.PageSize > maxPageSize {
		o.PageSize = maxPageSize
	}
	return o
}

// FeedbackPage is one page of event feedback plus the distribution
// summary computed over the unfiltered set.
type FeedbackPage struct {
	Items    []models.Feedback    `json:"feedback"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Total    int64                `json:"total"`
	Summary  models.RatingSummary `json:"summary"`
}

// List returns event feedback. The event may have been deleted since
// the feedback was written; orphans are listed anyway.
func (s *FeedbackStore) List(ctx context.Context, caller Caller, eventID primitive.ObjectID, opts ListOptions) (*FeedbackPage, error) {
	opts = opts.normalize()

	filter := bson.M{"event": eventID, "feedbackType": models.FeedbackTypeEvent}
	if opts.Rating >= 1 && opts.Rating <= 5 {
		filter["rating"] = opts.Rating
	}
	if q := strings.TrimSpace(opts.Search); q != "" {
		filter["comment"] = bson.M{"$regex": q, "$options": "i"}
	}

	total, err := s.feedback.CountDocuments(ctx, filter)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not count feedback")
	}

	cursor, err := s.feedback.Find(ctx, filter, options.Find().
		SetSort(sortSpec(opts.SortBy)).
		SetSkip(int64((opts.Page-1)*opts.PageSize)).
		SetLimit(int64(opts.PageSize)))
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not fetch feedback")
	}

	items := []models.Feedback{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, apperr.New(apperr.Internal, "could not decode feedback")
	}

	ratings, err := s.eventRatings(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.expandAuthors(ctx, items)
	for i := range items {
		items[i].MarkedHelpful = items[i].MarkedBy(caller.ID)
	}

	return &FeedbackPage{
		Items:    items,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Total:    total,
		Summary:  models.BuildRatingSummary(ratings),
	}, nil
}

// ListWebsite returns all site-wide feedback, newest first.
func (s *FeedbackStore) ListWebsite(ctx context.Context) ([]models.Feedback, error) {
	cursor, err := s.feedback.Find(ctx,
		bson.M{"feedbackType": models.FeedbackTypeWebsite},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not fetch feedback")
	}
	items := []models.Feedback{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, apperr.New(apperr.Internal, "could not decode feedback")
	}
	s.expandAuthors(ctx, items)
	return items, nil
}

// Update edits rating/comment/category. Author only; the owning
// event's aggregates are recomputed afterwards.
func (s *FeedbackStore) Update(ctx context.Context, caller Caller, id primitive.ObjectID, patch models.FeedbackPatch) (*models.Feedback, error) {
	fb, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateFeedback(caller.ID, fb) {
		return nil, apperr.New(apperr.Forbidden, "only the author can edit this feedback")
	}
	if problems := patch.Validate(); len(problems) > 0 {
		return nil, apperr.ValidationFailed(problems)
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}
	if patch.Comment != nil {
		set["comment"] = strings.TrimSpace(*patch.Comment)
	}
	if patch.Category != nil {
		set["type"] = *patch.Category
	}
	if patch.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	if len(set) == 1 {
		return nil, apperr.New(apperr.Validation, "no fields to update")
	}

	if _, err := s.feedback.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return nil, apperr.New(apperr.Internal, "could not update feedback")
	}

	if fb.Event != nil {
		s.recomputeEventRating(ctx, *fb.Event)
	}
	return s.fetch(ctx, id)
}

// Delete removes feedback, deletes its photos from external storage
// best-effort (each exactly once, failures logged and ignored) and
// recomputes the owning event's aggregates.
func (s *FeedbackStore) Delete(ctx context.Context, caller Caller, id primitive.ObjectID) error {
	fb, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteFeedback(caller.Role, caller.ID, fb) {
		return apperr.New(apperr.Forbidden, "access denied")
	}

	res, err := s.feedback.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.New(apperr.Internal, "could not delete feedback")
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "feedback not found")
	}

	for _, url := range fb.Photos {
		if !s.media.Delete(ctx, url) {
			s.log.Warn("feedback photo not deleted", "feedback", id.Hex(), "url", url)
		}
	}

	if fb.Event != nil {
		s.recomputeEventRating(ctx, *fb.Event)
	}
	return nil
}

// helpfulToggle builds the guarded update that flips one vote. Removal
// only when the caller is in the set, addition only when absent; the
// membership condition sits in the filter itself so a concurrent
// double-toggle cannot decrement below the set size.
func helpfulToggle(fb *models.Feedback, userID primitive.ObjectID) (filter, update bson.M, marked bool) {
	if fb.MarkedBy(userID) {
		return bson.M{"_id": fb.ID, "markedHelpfulBy": userID},
			bson.M{
				"$pull": bson.M{"markedHelpfulBy": userID},
				"$inc":  bson.M{"helpfulCount": -1},
			},
			false
	}
	return bson.M{"_id": fb.ID, "markedHelpfulBy": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"markedHelpfulBy": userID},
			"$inc":      bson.M{"helpfulCount": 1},
		},
		true
}

// ToggleHelpful flips the caller's helpful vote. Calling it twice
// restores the original state. Authors cannot vote on their own
// feedback.
func (s *FeedbackStore) ToggleHelpful(ctx context.Context, caller Caller, id primitive.ObjectID) (count int, marked bool, err error) {
	fb, err := s.fetch(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if !policy.CanToggleHelpful(caller.ID, fb) {
		return 0, false, apperr.New(apperr.Forbidden, "you cannot mark your own feedback as helpful")
	}

	filter, update, _ := helpfulToggle(fb, caller.ID)
	if _, err := s.feedback.UpdateOne(ctx, filter, update); err != nil {
		return 0, false, apperr.New(apperr.Internal, "could not update feedback")
	}

	fb, err = s.fetch(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if fb.HelpfulCount < 0 {
		fb.HelpfulCount = 0
	}
	return fb.HelpfulCount, fb.MarkedBy(caller.ID), nil
}

// CanReport is the pure duplicate-report check. Report re-applies the
// same condition in the update filter.
func CanReport(fb *models.Feedback, userID primitive.ObjectID) *apperr.Error {
	if fb.ReportedBy(userID) {
		return apperr.New(apperr.Conflict, "you have already reported this feedback")
	}
	return nil
}

// ShouldFlag decides the moderation flag for a report count. Flagging
// is permanent: already-flagged feedback stays flagged whatever the
// count says.
func ShouldFlag(reportCount int, alreadyFlagged bool) bool {
	return alreadyFlagged || reportCount >= models.ReportThreshold
}

// Report files an abuse report. One report per user per feedback; the
// item is flagged permanently once reports reach the threshold.
func (s *FeedbackStore) Report(ctx context.Context, caller Caller, id primitive.ObjectID, reason string) (reportCount int, flagged bool, err error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return 0, false, apperr.ValidationFailed(map[string]string{"reason": "reason is required"})
	}

	fb, err := s.fetch(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if cerr := CanReport(fb, caller.ID); cerr != nil {
		return 0, false, cerr
	}

	report := models.Report{
		ReportedBy: caller.ID,
		Reason:     reason,
		ReportedAt: time.Now().UTC(),
	}
	res, err := s.feedback.UpdateOne(ctx,
		bson.M{"_id": id, "reports.reported_by": bson.M{"$ne": caller.ID}},
		bson.M{"$push": bson.M{"reports": report}})
	if err != nil {
		return 0, false, apperr.New(apperr.Internal, "could not report feedback")
	}
	if res.ModifiedCount == 0 {
		return 0, false, apperr.New(apperr.Conflict, "you have already reported this feedback")
	}

	fb, err = s.fetch(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if ShouldFlag(len(fb.Reports), fb.Flagged) && !fb.Flagged {
		if _, err := s.feedback.UpdateOne(ctx, bson.M{"_id": id},
			bson.M{"$set": bson.M{"flagged": true}}); err != nil {
			s.log.Warn("could not flag feedback", "feedback", id.Hex(), "err", err)
		} else {
			fb.Flagged = true
		}
	}
	return len(fb.Reports), fb.Flagged, nil
}

// CanSubmit is the read-only eligibility probe backing pre-flight UI.
// It reflects exactly the rules Submit enforces.
func (s *FeedbackStore) CanSubmit(ctx context.Context, caller Caller, eventID primitive.ObjectID) (*Eligibility, error) {
	ev, err := s.fetchEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	count, err := s.feedback.CountDocuments(ctx, bson.M{
		"event":        eventID,
		"user":         caller.ID,
		"feedbackType": models.FeedbackTypeEvent,
	})
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not check existing feedback")
	}

	el := Eligible(ev, caller.ID, time.Now().UTC(), count > 0, s.mode)
	return &el, nil
}

// recomputeEventRating re-derives the event's aggregates from the full
// feedback set. A full re-scan, not an incremental counter: interleaved
// recomputes may briefly disagree but can never drift, the last write
// is always a complete derivation.
func (s *FeedbackStore) recomputeEventRating(ctx context.Context, eventID primitive.ObjectID) {
	ratings, err := s.eventRatings(ctx, eventID)
	if err != nil {
		s.log.Warn("rating recompute failed", "event", eventID.Hex(), "err", err)
		return
	}

	_, err = s.events.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{"$set": bson.M{
		"average_rating": models.AverageRating(ratings),
		"total_reviews":  len(ratings),
	}})
	if err != nil {
		s.log.Warn("rating rollup write failed", "event", eventID.Hex(), "err", err)
	}
}

func (s *FeedbackStore) eventRatings(ctx context.Context, eventID primitive.ObjectID) ([]int, error) {
	cursor, err := s.feedback.Find(ctx,
		bson.M{"event": eventID, "feedbackType": models.FeedbackTypeEvent},
		options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not fetch ratings")
	}

	var docs []struct {
		Rating int `bson:"rating"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.New(apperr.Internal, "could not decode ratings")
	}

	ratings := make([]int, 0, len(docs))
	for _, d := range docs {
		ratings = append(ratings, d.Rating)
	}
	return ratings, nil
}

// expandAuthors attaches name/email of each feedback author for
// display. Missing users are skipped, not an error.
func (s *FeedbackStore) expandAuthors(ctx context.Context, items []models.Feedback) {
	if len(items) == 0 {
		return
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	seen := map[primitive.ObjectID]bool{}
	for _, fb := range items {
		if !seen[fb.User] {
			seen[fb.User] = true
			ids = append(ids, fb.User)
		}
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		s.log.Warn("author lookup failed", "err", err)
		return
	}
	var users []models.UserRef
	if err := cursor.All(ctx, &users); err != nil {
		s.log.Warn("author decode failed", "err", err)
		return
	}

	byID := map[primitive.ObjectID]models.UserRef{}
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range items {
		if u, ok := byID[items[i].User]; ok {
			ref := u
			items[i].Author = &ref
		}
	}
}

func (s *FeedbackStore) fetch(ctx context.Context, id primitive.ObjectID) (*models.Feedback, error) {
	var fb models.Feedback
	err := s.feedback.FindOne(ctx, bson.M{"_id": id}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.New(apperr.NotFound, "feedback not found")
	}
	if err != nil {
		return nil, apperr.New(apperr.Internal, "could not fetch feedback")
	}
	return &fb, nil
}

func (s *FeedbackStore) fetchEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
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
