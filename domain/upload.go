package domain

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/disintegration/gift"
)

const (
	// DefaultMaxDimension is the longest edge, in pixels, of an image
	// prepared for upload.
	DefaultMaxDimension = 1200
	// DefaultQuality is the JPEG quality used when re-encoding.
	DefaultQuality = 80
)

// UploadImage is a photo scaled down and re-encoded for publication.
type UploadImage struct {
	Data   []byte
	Mime   string
	Width  int
	Height int
}

// PrepareForUpload decodes the photo, scales it down so that its longest
// edge does not exceed maxDimension and re-encodes it as JPEG. Images
// already within bounds are still re-encoded so that upload size stays
// predictable.
func PrepareForUpload(p *Photo, maxDimension, quality int) (*UploadImage, error) {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	content, err := p.Content()
	if err != nil {
		return nil, UnreadableFile{Path: p.Path, Err: err}
	}
	defer content.Close()
	img, err := p.Format.Decode(content)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = resizeToFit(img, maxDimension)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	final := img.Bounds()
	return &UploadImage{
		Data:   buf.Bytes(),
		Mime:   "image/jpeg",
		Width:  final.Dx(),
		Height: final.Dy(),
	}, nil
}

func resizeToFit(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	var w, h int
	if bounds.Dx() > bounds.Dy() {
		w = maxDimension
		h = (maxDimension * bounds.Dy()) / bounds.Dx()
	} else {
		h = maxDimension
		w = (maxDimension * bounds.Dx()) / bounds.Dy()
	}
	filter := gift.New(
		gift.ResizeToFit(w, h, gift.LinearResampling),
	)
	resized := image.NewRGBA(filter.Bounds(bounds))
	filter.Draw(resized, img)
	return resized
}
