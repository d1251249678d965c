package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/eventure/eventure-go/config"
	models "github.com/eventure/eventure-go/models"
	store "github.com/eventure/eventure-go/store"
)

// ---------------- SUBMIT (event) ----------------
func SubmitFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		eventID, err := primitive.ObjectIDFromHex(c.Param("eventId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		var input models.FeedbackInput
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		photos, closePhotos, err := formPhotos(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo upload"})
			return
		}
		defer closePhotos()

		ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
		defer cancel()

		fb, err := cfg.Feedback.Submit(ctx, who, &eventID, input, photos)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":  "Feedback submitted successfully",
			"feedback": fb,
		})
	}
}

// ---------------- SUBMIT (website) ----------------
func SubmitWebsiteFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		var input models.FeedbackInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		fb, err := cfg.Feedback.Submit(ctx, who, nil, input, nil)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":  "Feedback submitted successfully",
			"feedback": fb,
		})
	}
}

// ---------------- LIST (event) ----------------
func ListFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		eventID, err := primitive.ObjectIDFromHex(c.Param("eventId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		opts := store.ListOptions{
			Rating:   queryInt(c, "rating"),
			Search:   c.Query("search"),
			SortBy:   c.Query("sort"),
			Page:     queryInt(c, "page"),
			PageSize: queryInt(c, "page_size"),
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		page, err := cfg.Feedback.List(ctx, who, eventID, opts)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

// ---------------- LIST (website, admin) ----------------
func ListWebsiteFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		items, err := cfg.Feedback.ListWebsite(ctx)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

// ---------------- UPDATE ----------------
func UpdateFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		feedbackID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
			return
		}

		var patch models.FeedbackPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		fb, err := cfg.Feedback.Update(ctx, who, feedbackID, patch)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  "Feedback updated successfully",
			"feedback": fb,
		})
	}
}

// ---------------- DELETE ----------------
func DeleteFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		feedbackID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		if err := cfg.Feedback.Delete(ctx, who, feedbackID); err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "feedback deleted successfully",
			"id":      feedbackID.Hex(),
		})
	}
}

// ---------------- HELPFUL ----------------
func ToggleHelpful(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		feedbackID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, marked, err := cfg.Feedback.ToggleHelpful(ctx, who, feedbackID)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"helpful_count": count,
			"marked":        marked,
		})
	}
}

// ---------------- REPORT ----------------
func ReportFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		feedbackID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback id"})
			return
		}

		var input struct {
			Reason string `form:"reason" json:"reason"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, flagged, err := cfg.Feedback.Report(ctx, who, feedbackID, input.Reason)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "feedback reported",
			"report_count": count,
			"flagged":      flagged,
		})
	}
}

// ---------------- CAN-SUBMIT ----------------
func CanSubmitFeedback(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := caller(c)
		if !ok {
			return
		}

		eventID, err := primitive.ObjectIDFromHex(c.Param("eventId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		el, err := cfg.Feedback.CanSubmit(ctx, who, eventID)
		if err != nil {
			fail(c, err)
			return
		}

		c.JSON(http.StatusOK, el)
	}
}

// ---------------- helpers ----------------

// formPhotos opens the "photos" multipart files. The count cap is
// enforced by the store so the limit lives in one place.
func formPhotos(c *gin.Context) ([]io.Reader, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	var readers []io.Reader
	var closers []func() error
	for _, fileHeader := range form.File["photos"] {
		file, err := fileHeader.Open()
		if err != nil {
			for _, cl := range closers {
				cl()
			}
			return nil, func() {}, err
		}
		readers = append(readers, file)
		closers = append(closers, file.Close)
	}
	closeAll := func() {
		for _, cl := range closers {
			cl()
		}
	}
	return readers, closeAll, nil
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
