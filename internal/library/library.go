// Package library abstracts the platform media library collaborator: it
// enumerates local media assets and opens their raw bytes. The engine treats
// assets as read-only input owned by the library.
package library

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Kind distinguishes photo from video assets.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Asset identifies one unit of local media.
type Asset struct {
	// ID is the stable local identifier of the asset within its library.
	ID string

	// Filename is the original file name, used for the upload form field.
	Filename string

	CreatedAt time.Time
	Size      int64
	Kind      Kind
}

// MIMEType returns the asset's MIME type derived from its filename.
func (a Asset) MIMEType() string {
	return mimeForExt(strings.ToLower(filepath.Ext(a.Filename)))
}

// Library enumerates assets and opens their content.
type Library interface {
	// Authorized reports whether the library may be read. A nil error means
	// access is granted; common.ErrPermissionDenied otherwise.
	Authorized(ctx context.Context) error

	// Assets returns all assets created strictly after since, oldest first.
	Assets(ctx context.Context, since time.Time) ([]Asset, error)

	// Open returns a reader over the asset's raw bytes. Returns
	// common.ErrNoResource if the asset no longer exists.
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

var extKinds = map[string]Kind{
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".heic": KindImage,
	".heif": KindImage,
	".webp": KindImage,
	".mov":  KindVideo,
	".mp4":  KindVideo,
	".m4v":  KindVideo,
	".avi":  KindVideo,
	".webm": KindVideo,
}

var extMIMEs = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
	".webp": "image/webp",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

// kindForExt returns the media kind for a lower-cased extension and whether
// the extension is recognized as media at all.
func kindForExt(ext string) (Kind, bool) {
	k, ok := extKinds[ext]
	return k, ok
}

func mimeForExt(ext string) string {
	if m, ok := extMIMEs[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
