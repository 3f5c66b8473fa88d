package service

import (
	"bytes"
	"context"
	"io"
	"log"
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/iliyamo/theatre-reservation/internal/media"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// DefaultMaxImageBytes bounds an upload when no limit is configured.
const DefaultMaxImageBytes = 10 << 20

// Images stores actor photos and play posters and records their URLs.
type Images struct {
	storage  media.Storage
	actors   *repository.ActorRepo
	plays    *repository.PlayRepo
	maxBytes int64
}

// NewImages wires an Images service.  maxBytes <= 0 selects
// DefaultMaxImageBytes.
func NewImages(storage media.Storage, actors *repository.ActorRepo, plays *repository.PlayRepo, maxBytes int64) *Images {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Images{storage: storage, actors: actors, plays: plays, maxBytes: maxBytes}
}

// imageTypes lists the accepted upload types and the filename
// extensions each may arrive under.  The first extension is the one
// stored.  Vector and markup formats such as SVG are not accepted.
var imageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

// readImage buffers r and sniffs its type.  Files over the limit, types
// outside imageTypes and filenames whose extension contradicts the
// content are a *repository.ValidationError on field.  It returns the
// data, its content type and the extension to store it under.
func (s *Images) readImage(field, filename string, r io.Reader) ([]byte, string, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, "", "", err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", "", repository.Invalid(field, "file too large")
	}
	if len(data) == 0 {
		return nil, "", "", repository.Invalid(field, "empty file")
	}
	ct := mimetype.Detect(data).String()
	exts, ok := imageTypes[ct]
	if !ok {
		return nil, "", "", repository.Invalid(field, "upload a valid image")
	}
	if ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/")))); ext != "" && !slices.Contains(exts, ext) {
		return nil, "", "", repository.Invalid(field, "file extension does not match image type")
	}
	return data, ct, exts[0], nil
}

func (s *Images) store(ctx context.Context, key, contentType string, data []byte) (string, error) {
	return s.storage.Put(ctx, key, bytes.NewReader(data), contentType, int64(len(data)))
}

// SetActorPhoto stores the image as the actor's photo.
func (s *Images) SetActorPhoto(ctx context.Context, actorID uint64, filename string, r io.Reader) (*model.Actor, error) {
	a, err := s.actors.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	data, ct, ext, err := s.readImage("photo", filename, r)
	if err != nil {
		return nil, err
	}
	key := media.ImageKey("actor", actorID, ext)
	url, err := s.store(ctx, key, ct, data)
	if err != nil {
		return nil, err
	}
	if err := s.actors.SetPhoto(ctx, actorID, url); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	a.Photo = &url
	return a, nil
}

// SetPlayPoster stores the image as the play's poster.
func (s *Images) SetPlayPoster(ctx context.Context, playID uint64, filename string, r io.Reader) (*model.Play, error) {
	p, err := s.plays.Get(ctx, playID)
	if err != nil {
		return nil, err
	}
	data, ct, ext, err := s.readImage("poster", filename, r)
	if err != nil {
		return nil, err
	}
	key := media.ImageKey("play", playID, ext)
	url, err := s.store(ctx, key, ct, data)
	if err != nil {
		return nil, err
	}
	if err := s.plays.SetPoster(ctx, playID, url); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	p.Poster = &url
	return p, nil
}

func (s *Images) discard(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		log.Printf("images: cleanup %s: %v", key, err)
	}
}
