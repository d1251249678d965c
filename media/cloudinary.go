package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Cloudinary implements Storage against the Cloudinary upload API.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
	log *slog.Logger
}

func NewCloudinary(cloudName, apiKey, apiSecret string, log *slog.Logger) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("missing cloudinary credentials")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &Cloudinary{cld: cld, log: log}, nil
}

func (c *Cloudinary) Store(ctx context.Context, r io.Reader, category Category) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	publicID := publicIDPrefix(category) + "-" + uuid.NewString()
	resp, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   string(category),
		PublicID: publicID,
	})
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}
	return resp.SecureURL, nil
}

// Delete removes a previously stored image. Best-effort: failures are
// logged and reported as false, never returned as errors.
func (c *Cloudinary) Delete(ctx context.Context, rawURL string) bool {
	publicID := c.DeriveID(rawURL)
	if publicID == "" {
		c.log.Warn("cloudinary delete skipped, unrecognized url", "url", rawURL)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		c.log.Warn("cloudinary delete failed", "public_id", publicID, "err", err)
		return false
	}
	if resp.Result != "ok" {
		c.log.Warn("cloudinary delete rejected", "public_id", publicID, "result", resp.Result)
		return false
	}
	return true
}

var versionSegmentRe = regexp.MustCompile(`^v\d+$`)

// DeriveID extracts the Cloudinary public ID from a delivery URL.
// Example: https://res.cloudinary.com/demo/image/upload/v123/eventure/feedback/feedback-abc.jpg
// yields eventure/feedback/feedback-abc.
func (c *Cloudinary) DeriveID(rawURL string) string {
	return DerivePublicID(rawURL)
}

func DerivePublicID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	idx := -1
	for i, p := range parts {
		if p == "upload" {
			idx = i
			break
		}
	}
	if idx == -1 || idx+1 >= len(parts) {
		return ""
	}

	rest := parts[idx+1:]
	if versionSegmentRe.MatchString(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return ""
	}

	last := rest[len(rest)-1]
	rest[len(rest)-1] = strings.TrimSuffix(last, path.Ext(last))
	return strings.Join(rest, "/")
}

func publicIDPrefix(category Category) string {
	switch category {
	case CategoryEvent:
		return "event"
	case CategoryFeedback:
		return "feedback"
	case CategoryAvatar:
		return "avatar"
	default:
		return "upload"
	}
}
