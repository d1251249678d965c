package media

import "testing"

func TestDerivePublicID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{
			"versioned feedback photo",
			"https://res.cloudinary.com/demo/image/upload/v1234567890/eventure/feedback/feedback-abc123.jpg",
			"eventure/feedback/feedback-abc123",
		},
		{
			"versioned event image",
			"https://res.cloudinary.com/demo/image/upload/v999/eventure/events/event-xyz.png",
			"eventure/events/event-xyz",
		},
		{
			"no version segment",
			"https://res.cloudinary.com/demo/image/upload/eventure/events/event-1.webp",
			"eventure/events/event-1",
		},
		{
			"no folder",
			"https://res.cloudinary.com/demo/image/upload/v1/lonely.jpg",
			"lonely",
		},
		{
			"not an upload url",
			"https://res.cloudinary.com/demo/image/fetch/v1/something.jpg",
			"",
		},
		{
			"unrelated url",
			"https://example.com/a/b/c.jpg",
			"",
		},
		{
			"garbage",
			"://not a url",
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DerivePublicID(tc.url); got != tc.want {
				t.Errorf("DerivePublicID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestPublicIDPrefix(t *testing.T) {
	if publicIDPrefix(CategoryEvent) != "event" {
		t.Error("event uploads should carry the event prefix")
	}
	if publicIDPrefix(CategoryFeedback) != "feedback" {
		t.Error("feedback uploads should carry the feedback prefix")
	}
	if publicIDPrefix(Category("weird")) != "upload" {
		t.Error("unknown categories should fall back to a generic prefix")
	}
}
