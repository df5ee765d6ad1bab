package domain

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"bitbucket.org/kleinnic74/photopost/domain/gps"
	"bitbucket.org/kleinnic74/photopost/logging"

	"github.com/reusee/mmh3"
	"go.uber.org/zap"
)

// ID is the stable identity of a photograph, derived from its content.
// Renaming or moving a file does not change its ID.
type ID string

type MediaMetaData struct {
	DateTaken time.Time
	Location  *gps.Coordinates
}

func (m MediaMetaData) HasTimestamp() bool {
	return !m.DateTaken.IsZero()
}

type Photo struct {
	ID     ID
	Path   string
	Size   int64
	Format Format
	Meta   MediaMetaData
}

type UnreadableFile struct {
	Path string
	Err  error
}

func (e UnreadableFile) Error() string {
	return fmt.Sprintf("unreadable file %s: %s", e.Path, e.Err)
}

func (e UnreadableFile) Unwrap() error {
	return e.Err
}

// NewPhoto reads the photograph at the given path, computes its identity
// and decodes the embedded capture metadata. Corrupt metadata degrades to
// an empty MediaMetaData, only an unreadable or unrecognized file fails.
func NewPhoto(ctx context.Context, path string) (*Photo, error) {
	logger := logging.From(ctx).Named("photo")
	f, err := os.Open(path)
	if err != nil {
		return nil, UnreadableFile{Path: path, Err: err}
	}
	defer f.Close()
	format, err := FormatOf(f)
	if err != nil {
		return nil, UnreadableFile{Path: path, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, UnreadableFile{Path: path, Err: err}
	}
	id, size, err := identityOf(f)
	if err != nil {
		return nil, UnreadableFile{Path: path, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, UnreadableFile{Path: path, Err: err}
	}
	var meta MediaMetaData
	if err := format.DecodeMetaData(f, &meta); err != nil {
		logger.Warn("Corrupt capture metadata, continuing without",
			zap.String("path", path), zap.Error(err))
		meta = MediaMetaData{}
	}
	return &Photo{
		ID:     id,
		Path:   path,
		Size:   size,
		Format: format,
		Meta:   meta,
	}, nil
}

func (p *Photo) Content() (io.ReadCloser, error) {
	return os.Open(p.Path)
}

func identityOf(r io.Reader) (ID, int64, error) {
	h := mmh3.New128()
	size, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return ID(hex.EncodeToString(h.Sum(nil))), size, nil
}
