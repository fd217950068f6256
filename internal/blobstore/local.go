// Package blobstore stores uploaded images on local disk.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"wall/internal/feed"
	"wall/internal/imaging"
	"wall/internal/observability"
)

// MediaPrefix is the URL path under which stored blobs are served.
const MediaPrefix = "/media/"

// ThumbSuffix is appended to a key to name its thumbnail.
const ThumbSuffix = ".thumb.webp"

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Local writes blobs under a root directory and serves them from a public base URL.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates a store rooted at root. baseURL is the externally visible
// origin, without a trailing slash.
func NewLocal(root, baseURL string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{root: abs, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

var _ feed.BlobStore = (*Local)(nil)

// Root returns the directory blobs are written under.
func (l *Local) Root() string { return l.root }

// Resolve maps key to a file path inside the root.
func (l *Local) Resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	full := filepath.Join(l.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return full, nil
}

// Upload writes data under key and, for decodable images, a WebP thumbnail
// next to it. A failed thumbnail does not fail the upload.
func (l *Local) Upload(ctx context.Context, key string, data []byte, contentType string) (feed.Reference, error) {
	if err := ctx.Err(); err != nil {
		return feed.Reference{}, err
	}
	dst, err := l.Resolve(key)
	if err != nil {
		return feed.Reference{}, err
	}
	if err := writeBytesToFile(dst, data); err != nil {
		return feed.Reference{}, fmt.Errorf("write blob: %w", err)
	}

	if thumb, err := imaging.Thumbnail(data, imaging.ThumbnailSize); err != nil {
		observability.GlobalLogger.DebugContext(ctx, "thumbnail skipped",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else if err := writeBytesToFile(dst+ThumbSuffix, thumb); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "thumbnail not written",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return feed.Reference{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// PublicURL returns the URL the blob is served from.
func (l *Local) PublicURL(ref feed.Reference) string {
	return l.baseURL + MediaPrefix + ref.Key
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
