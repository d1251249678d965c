// Package media is the boundary to the external image store. The rest
// of the codebase only sees URLs; storage/deletion mechanics stay here.
package media

import (
	"context"
	"io"
)

// Category selects the storage folder and policy for an upload.
type Category string

const (
	CategoryEvent    Category = "eventure/events"
	CategoryFeedback Category = "eventure/feedback"
	CategoryAvatar   Category = "eventure/avatars"
)

// Storage is the store-and-fetch-by-URL contract. Delete reports
// success as a bool because callers treat it as best-effort: a false
// is logged, never propagated.
type Storage interface {
	Store(ctx context.Context, r io.Reader, category Category) (string, error)
	Delete(ctx context.Context, url string) bool
	// DeriveID maps a stored URL back to the provider's internal
	// identifier, or "" if the URL is not one of ours.
	DeriveID(url string) string
}
