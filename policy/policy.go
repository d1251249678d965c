// Package policy holds the pure authorization decisions shared by the
// event and feedback stores. Every function answers "may this caller do
// this?" and nothing else; stores translate a false into Forbidden.
package policy

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eventure/eventure-go/models"
)

// CanViewEvent: Approved events are public; Pending and Rejected ones
// are visible only to their creator and admins.
func CanViewEvent(role string, callerID primitive.ObjectID, ev *models.Event) bool {
	if ev.Status == models.StatusApproved {
		return true
	}
	return role == models.RoleAdmin || ev.CreatedBy == callerID
}

// CanModifyEvent covers update and delete: creator or admin.
func CanModifyEvent(role string, callerID primitive.ObjectID, ev *models.Event) bool {
	return role == models.RoleAdmin || ev.CreatedBy == callerID
}

// CanApproveEvent covers the Pending -> Approved/Rejected transitions.
func CanApproveEvent(role string) bool {
	return role == models.RoleAdmin
}

// CanUpdateFeedback: author only; admins edit nothing, they delete.
func CanUpdateFeedback(callerID primitive.ObjectID, fb *models.Feedback) bool {
	return fb.User == callerID
}

// CanDeleteFeedback: author or admin.
func CanDeleteFeedback(role string, callerID primitive.ObjectID, fb *models.Feedback) bool {
	return role == models.RoleAdmin || fb.User == callerID
}

// CanToggleHelpful: any authenticated user except the author.
func CanToggleHelpful(callerID primitive.ObjectID, fb *models.Feedback) bool {
	return fb.User != callerID
}
