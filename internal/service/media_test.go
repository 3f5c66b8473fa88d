package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-reservation/internal/database/dbtest"
	"github.com/iliyamo/theatre-reservation/internal/media"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImages(t *testing.T, maxBytes int64) (*Images, *repository.ActorRepo, *repository.PlayRepo, string) {
	t.Helper()
	db := dbtest.New(t)
	root := t.TempDir()
	actors, plays := repository.NewActorRepo(db), repository.NewPlayRepo(db)
	return NewImages(media.NewLocal(root, "/media"), actors, plays, maxBytes), actors, plays, root
}

func TestSetActorPhoto(t *testing.T) {
	svc, actors, _, root := newImages(t, 0)
	ctx := context.Background()
	a := &model.Actor{FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, actors.Create(ctx, a))

	got, err := svc.SetActorPhoto(ctx, a.ID, "me.png", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	require.NotNil(t, got.Photo)
	assert.True(t, strings.HasPrefix(*got.Photo, "/media/uploads/images/actors/"))
	assert.True(t, strings.HasSuffix(*got.Photo, ".png"))

	stored, err := actors.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Photo, stored.Photo)

	_, err = os.Stat(filepath.Join(root, strings.TrimPrefix(*got.Photo, "/media/")))
	assert.NoError(t, err)
}

func TestSetPlayPosterRejects(t *testing.T) {
	svc, _, plays, _ := newImages(t, 1<<10)
	ctx := context.Background()
	p := &model.Play{Title: "Hamlet"}
	require.NoError(t, plays.Create(ctx, p, nil, nil))

	_, err := svc.SetPlayPoster(ctx, p.ID, "notes.txt", strings.NewReader("just some text"))
	var ve *repository.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "poster", ve.Field)

	_, err = svc.SetPlayPoster(ctx, p.ID, "big.png", bytes.NewReader(bytes.Repeat([]byte{0x89}, 1<<10+1)))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "file too large", ve.Msg)

	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.cookie)</script></svg>`
	for _, name := range []string{"evil.html", "evil.svg", "evil"} {
		_, err = svc.SetPlayPoster(ctx, p.ID, name, strings.NewReader(svg))
		require.ErrorAs(t, err, &ve, name)
		assert.Equal(t, "upload a valid image", ve.Msg, name)
	}

	for _, name := range []string{"poster.html", "poster.jpg", "poster.svg"} {
		_, err = svc.SetPlayPoster(ctx, p.ID, name, bytes.NewReader(pngBytes(t)))
		require.ErrorAs(t, err, &ve, name)
		assert.Equal(t, "file extension does not match image type", ve.Msg, name)
	}

	stored, err := plays.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Poster)

	got, err := svc.SetPlayPoster(ctx, p.ID, "poster", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	require.NotNil(t, got.Poster)
	assert.True(t, strings.HasSuffix(*got.Poster, ".png"))

	_, err = svc.SetPlayPoster(ctx, 999, "x.png", bytes.NewReader(pngBytes(t)))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
