package domain

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestIdentityIsContentDerived(t *testing.T) {
	dir := t.TempDir()
	data := testImage(t, 32, 32)
	first := writeFile(t, dir, "a.png", data)
	renamed := writeFile(t, dir, "b.png", data)
	other := writeFile(t, dir, "c.png", testImage(t, 33, 32))

	ctx := context.Background()
	p1, err := NewPhoto(ctx, first)
	require.NoError(t, err)
	p2, err := NewPhoto(ctx, renamed)
	require.NoError(t, err)
	p3, err := NewPhoto(ctx, other)
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID, "same content must yield the same identity regardless of path")
	assert.NotEqual(t, p1.ID, p3.ID, "different content must yield different identities")
	assert.NotEmpty(t, p1.ID)
}

func TestNewPhotoDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	// extension lies, sniffing must win
	path := writeFile(t, dir, "photo.jpg", testImage(t, 16, 16))

	photo, err := NewPhoto(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "png", photo.Format.ID())
	assert.Equal(t, int64(len(testImage(t, 16, 16))), photo.Size)
}

func TestNewPhotoMissingFile(t *testing.T) {
	_, err := NewPhoto(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
	var unreadable UnreadableFile
	assert.ErrorAs(t, err, &unreadable)
}

func TestNewPhotoRejectsNonImage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", []byte("not an image at all, just text"))
	_, err := NewPhoto(context.Background(), path)
	var unreadable UnreadableFile
	assert.ErrorAs(t, err, &unreadable)
}

func TestPrepareForUploadDownscales(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wide.png", testImage(t, 2400, 1200))
	photo, err := NewPhoto(context.Background(), path)
	require.NoError(t, err)

	img, err := PrepareForUpload(photo, 1200, 80)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Width)
	assert.Equal(t, 600, img.Height)
	assert.Equal(t, "image/jpeg", img.Mime)
	assert.NotEmpty(t, img.Data)
}

func TestPrepareForUploadKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "small.png", testImage(t, 320, 200))
	photo, err := NewPhoto(context.Background(), path)
	require.NoError(t, err)

	img, err := PrepareForUpload(photo, 1200, 80)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Width)
	assert.Equal(t, 200, img.Height)
}
