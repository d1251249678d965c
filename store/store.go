// Package store owns the Event and Feedback entities: state
// transitions, rosters, moderation and the rating rollups derived from
// feedback. Controllers stay thin; everything with an invariant in it
// lives here.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventure/eventure-go/models"
)

// Caller is the resolved identity every operation is gated on.
type Caller struct {
	ID   primitive.ObjectID
	Role string
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// PolicyMode selects the feedback eligibility policy. The same mode
// drives both Submit and CanSubmit so the two can never diverge.
type PolicyMode string

const (
	// PolicyOpen accepts event feedback from any authenticated user.
	PolicyOpen PolicyMode = "open"
	// PolicyStrict requires the caller to have joined the event and
	// the event to have ended.
	PolicyStrict PolicyMode = "strict"
)

func ParsePolicyMode(s string) PolicyMode {
	if s == string(PolicyStrict) {
		return PolicyStrict
	}
	return PolicyOpen
}

// EnsureIndexes creates the indexes the stores rely on. The partial
// unique index on (event, user) is what actually enforces the
// one-feedback-per-user-per-event invariant: two concurrent submissions
// both pass any read-side check, only one survives the index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	feedback := db.Collection("feedback")

	_, err := feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "event", Value: 1}, {Key: "user", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"feedbackType": models.FeedbackTypeEvent}),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}}},
		{Keys: bson.D{{Key: "helpfulCount", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("feedback indexes: %w", err)
	}

	events := db.Collection("events")
	_, err = events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("event indexes: %w", err)
	}
	return nil
}
