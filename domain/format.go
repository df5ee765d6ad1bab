package domain

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"bitbucket.org/kleinnic74/photopost/domain/gps"

	"github.com/h2non/filetype"
	"github.com/rwcarlsen/goexif/exif"
)

type metaDataReader func(io.Reader, *MediaMetaData) error
type imageDecoder func(io.Reader) (image.Image, error)
type imageEncoder func(image.Image, io.Writer) error

type Format interface {
	ID() string
	Mime() string
	DecodeMetaData(in io.Reader, meta *MediaMetaData) error
	Decode(in io.Reader) (image.Image, error)
	Encode(img image.Image, out io.Writer) error
}

type formatImpl struct {
	id         string
	mime       string
	metaReader metaDataReader
	decoder    imageDecoder
	encoder    imageEncoder
}

var (
	formatsByID = map[string]Format{}

	ErrUnknownFormat      = errors.New("unknown image format")
	ErrNoDecoderAvailable = errors.New("no decoder available for this format")
	ErrNoEncoderAvailable = errors.New("no encoder available for this format")
)

var (
	JPEG Format
	PNG  Format
)

func init() {
	JPEG = RegisterFormat("jpg", "image/jpeg", exifReader, jpeg.Decode, jpegEncode)
	PNG = RegisterFormat("png", "image/png", nil, png.Decode, pngEncode)
}

func RegisterFormat(extension, mime string, metaReader metaDataReader, decoder imageDecoder, encoder imageEncoder) Format {
	format := formatImpl{
		id:         extension,
		mime:       mime,
		metaReader: metaReader,
		decoder:    decoder,
		encoder:    encoder,
	}
	formatsByID[extension] = format
	return format
}

func FormatForExt(ext string) (Format, bool) {
	f, found := formatsByID[ext]
	return f, found
}

// FormatOf returns the format of the image in the given reader by sniffing
// its header. Calling this function consumes the reader.
func FormatOf(r io.Reader) (Format, error) {
	header := make([]byte, 512)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	kind, err := filetype.Match(header[:n])
	if err != nil {
		return nil, err
	}
	if f, found := formatsByID[kind.Extension]; found {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, kind.Extension)
}

func (f formatImpl) ID() string {
	return f.id
}

func (f formatImpl) Mime() string {
	return f.mime
}

func (f formatImpl) DecodeMetaData(in io.Reader, meta *MediaMetaData) error {
	if f.metaReader == nil {
		return nil
	}
	return f.metaReader(in, meta)
}

func (f formatImpl) Decode(in io.Reader) (image.Image, error) {
	if f.decoder == nil {
		return nil, ErrNoDecoderAvailable
	}
	return f.decoder(in)
}

func (f formatImpl) Encode(img image.Image, out io.Writer) error {
	if f.encoder == nil {
		return ErrNoEncoderAvailable
	}
	return f.encoder(img, out)
}

func exifReader(in io.Reader, meta *MediaMetaData) error {
	ex, err := exif.Decode(in)
	if err != nil {
		return err
	}
	if dateTaken, err := ex.DateTime(); err == nil {
		meta.DateTaken = dateTaken
	}
	if lat, long, err := ex.LatLong(); err == nil {
		meta.Location = gps.NewCoordinates(lat, long)
	}
	return nil
}

func jpegEncode(img image.Image, out io.Writer) error {
	return jpeg.Encode(out, img, nil)
}

func pngEncode(img image.Image, out io.Writer) error {
	return png.Encode(out, img)
}
