package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eventure/eventure-go/apperr"
	"github.com/eventure/eventure-go/store"
)

// caller resolves the authenticated identity the auth middleware left
// on the context.
func caller(c *gin.Context) (store.Caller, bool) {
	uid := c.GetString("user_id")
	id, err := primitive.ObjectIDFromHex(uid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return store.Caller{}, false
	}
	return store.Caller{ID: id, Role: c.GetString("role")}, true
}

// fail maps a store error to its HTTP response.
func fail(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body := gin.H{"error": ae.Message}
		if len(ae.Fields) > 0 {
			body["fields"] = ae.Fields
		}
		if ae.Reason != "" {
			body["reason"] = ae.Reason
		}
		c.JSON(ae.Kind.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
