// Package media stores uploaded images on local disk or in an
// S3-compatible bucket and hands back their public URL.
package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/theatre-reservation/internal/config"
)

// Storage persists objects under a key and returns their public URL.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// ImageKey builds the object key for an uploaded image:
//
//	uploads/images/<kind>s/<id>-<uuid><ext>
//
// kind is the lower-case entity name ("actor", "play") and ext the
// extension of the detected content type, e.g. ".png".  The client's
// filename never reaches the key.
func ImageKey(kind string, id uint64, ext string) string {
	return fmt.Sprintf("uploads/images/%ss/%d-%s%s", strings.ToLower(kind), id, uuid.NewString(), strings.ToLower(ext))
}

// New returns the Storage selected by cfg.Backend.
func New(ctx context.Context, cfg config.MediaConfig) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocal(cfg.Root, cfg.URLPrefix), nil
	case "s3":
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported MEDIA_BACKEND %q (want local or s3)", cfg.Backend)
}
