package utils

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGenerateETag(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := GenerateETag(id, at)
	b := GenerateETag(id, at)
	if a != b {
		t.Errorf("same inputs must produce the same tag: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) {
		t.Errorf("etag must be quoted, got %s", a)
	}

	if c := GenerateETag(id, at.Add(time.Second)); c == a {
		t.Error("a different timestamp must change the tag")
	}
	if d := GenerateETag(primitive.NewObjectID(), at); d == a {
		t.Error("a different id must change the tag")
	}
}
