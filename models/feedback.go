package models

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FeedbackTypeEvent   = "event"
	FeedbackTypeWebsite = "website"
)

// MaxPhotos caps the number of photos attached to a single feedback.
const MaxPhotos = 5

// ReportThreshold is the report count at which feedback is flagged
// for moderator attention. Flagging is permanent.
const ReportThreshold = 3

const MaxCommentLength = 500

// Category labels are informational only; they drive no workflow.
var feedbackCategories = map[string]bool{
	"idea":       true,
	"issue":      true,
	"praise":     true,
	"complaint":  true,
	"suggestion": true,
	"bug":        true,
	"feature":    true,
	"ui":         true,
	"other":      true,
}

const DefaultCategory = "idea"

var emailRe = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,3})+$`)

type Report struct {
	ReportedBy primitive.ObjectID `bson:"reported_by" json:"reported_by"`
	Reason     string             `bson:"reason" json:"reason"`
	ReportedAt time.Time          `bson:"reported_at" json:"reported_at"`
}

type Feedback struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// Event is nil for site-wide feedback.
	Event           *primitive.ObjectID  `bson:"event,omitempty" json:"event,omitempty"`
	User            primitive.ObjectID   `bson:"user" json:"user"`
	FeedbackType    string               `bson:"feedbackType" json:"feedback_type"`
	Rating          int                  `bson:"rating" json:"rating"`
	Comment         string               `bson:"comment" json:"comment"`
	Category        string               `bson:"type" json:"type"`
	Email           string               `bson:"email,omitempty" json:"email,omitempty"`
	Photos          []string             `bson:"photos" json:"photos"`
	HelpfulCount    int                  `bson:"helpfulCount" json:"helpful_count"`
	MarkedHelpfulBy []primitive.ObjectID `bson:"markedHelpfulBy" json:"-"`
	Reports         []Report             `bson:"reports" json:"reports,omitempty"`
	Flagged         bool                 `bson:"flagged" json:"flagged"`
	Verified        bool                 `bson:"verified" json:"verified"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`

	// Filled on read for display, never persisted.
	Author        *UserRef `bson:"-" json:"author,omitempty"`
	MarkedHelpful bool     `bson:"-" json:"marked_helpful"`
}

func (f *Feedback) MarkedBy(userID primitive.ObjectID) bool {
	for _, u := range f.MarkedHelpfulBy {
		if u == userID {
			return true
		}
	}
	return false
}

func (f *Feedback) ReportedBy(userID primitive.ObjectID) bool {
	for _, r := range f.Reports {
		if r.ReportedBy == userID {
			return true
		}
	}
	return false
}

// FeedbackInput is the writable field set for a new feedback.
type FeedbackInput struct {
	Rating   int    `form:"rating" json:"rating"`
	Comment  string `form:"comment" json:"comment"`
	Category string `form:"type" json:"type"`
	Email    string `form:"email" json:"email"`
}

// Validate reports every violated field at once.
func (in FeedbackInput) Validate() map[string]string {
	problems := map[string]string{}
	if in.Rating < 1 || in.Rating > 5 {
		problems["rating"] = "rating must be an integer between 1 and 5"
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		problems["comment"] = "comment is required"
	} else if utf8.RuneCountInString(comment) > MaxCommentLength {
		problems["comment"] = "comment cannot be more than 500 characters"
	}
	if in.Category != "" && !feedbackCategories[in.Category] {
		problems["type"] = "unknown feedback type"
	}
	if in.Email != "" && !emailRe.MatchString(strings.ToLower(strings.TrimSpace(in.Email))) {
		problems["email"] = "email address is not valid"
	}
	return problems
}

// FeedbackPatch is a partial update of the author-editable fields.
type FeedbackPatch struct {
	Rating   *int    `form:"rating" json:"rating"`
	Comment  *string `form:"comment" json:"comment"`
	Category *string `form:"type" json:"type"`
	Email    *string `form:"email" json:"email"`
}

func (p FeedbackPatch) Validate() map[string]string {
	problems := map[string]string{}
	if p.Rating != nil && (*p.Rating < 1 || *p.Rating > 5) {
		problems["rating"] = "rating must be an integer between 1 and 5"
	}
	if p.Comment != nil {
		comment := strings.TrimSpace(*p.Comment)
		if comment == "" {
			problems["comment"] = "comment cannot be empty"
		} else if utf8.RuneCountInString(comment) > MaxCommentLength {
			problems["comment"] = "comment cannot be more than 500 characters"
		}
	}
	if p.Category != nil && !feedbackCategories[*p.Category] {
		problems["type"] = "unknown feedback type"
	}
	if p.Email != nil && *p.Email != "" && !emailRe.MatchString(strings.ToLower(strings.TrimSpace(*p.Email))) {
		problems["email"] = "email address is not valid"
	}
	return problems
}

// RatingSummary is the star distribution over every feedback for one
// event, regardless of any list filters.
type RatingSummary struct {
	Counts        map[int]int `json:"counts"`
	Total         int         `json:"total"`
	AverageRating float64     `json:"average_rating"`
}

func BuildRatingSummary(ratings []int) RatingSummary {
	s := RatingSummary{Counts: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	for _, r := range ratings {
		if r >= 1 && r <= 5 {
			s.Counts[r]++
			s.Total++
		}
	}
	s.AverageRating = AverageRating(ratings)
	return s
}

// AverageRating is the arithmetic mean rounded to one decimal,
// half-away-from-zero. Zero ratings yield zero, not NaN.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10
}
