package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/wailsapp/mimetype"
	"golang.org/x/image/draw"

	"justanote/pkg/errors"
)

const dataURIPrefix = "data:image/jpeg;base64,"

// DefaultMaxPixels caps the decoded size of an upload at roughly a 50MP photo
const DefaultMaxPixels = 50_000_000

var (
	ErrNotAnImage = errors.New(errors.ErrTypeValidation, "PHOTO_NOT_IMAGE", "upload is not a supported image").
			WithContext("field", "photo").
			WithUserMessage("Please choose a JPEG, PNG or GIF image")

	ErrTooLarge = errors.New(errors.ErrTypeValidation, "PHOTO_TOO_LARGE", "upload exceeds the size limit").
			WithContext("field", "photo").
			WithUserMessage("That photo is too large")
)

// Compressor shrinks photos into small JPEG data URIs.
// MaxBytes bounds the upload, MaxPixels the decoded image.
type Compressor struct {
	MaxSide   int
	Quality   int
	MaxBytes  int64
	MaxPixels int64
}

// NewCompressor returns a compressor with the given limits and DefaultMaxPixels
func NewCompressor(maxSide, quality int, maxBytes int64) *Compressor {
	return &Compressor{MaxSide: maxSide, Quality: quality, MaxBytes: maxBytes, MaxPixels: DefaultMaxPixels}
}

// Check rejects uploads that Compress would refuse. Only the image header is
// read, so a small file declaring huge dimensions is refused before any pixel
// buffer is allocated.
func (c *Compressor) Check(data []byte) error {
	if c.MaxBytes > 0 && int64(len(data)) > c.MaxBytes {
		return ErrTooLarge.WithContext("size", len(data))
	}
	mime := mimetype.Detect(data)
	if !mime.Is("image/jpeg") && !mime.Is("image/png") && !mime.Is("image/gif") {
		return ErrNotAnImage.WithContext("detected", mime.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeCollaborator, "PHOTO_DECODE_FAILED", "failed to read image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrNotAnImage.WithContext("detected", mime.String())
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); c.MaxPixels > 0 && pixels > c.MaxPixels {
		return ErrTooLarge.
			WithContext("width", cfg.Width).
			WithContext("height", cfg.Height)
	}
	return nil
}

// Compress decodes data, scales it so its longest side is at most MaxSide
// and re-encodes it as a JPEG data URI
func (c *Compressor) Compress(data []byte) (string, error) {
	if err := c.Check(data); err != nil {
		return "", err
	}

	src, err := decode(data)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeCollaborator, "PHOTO_DECODE_FAILED", "failed to decode image")
	}

	dst := flatten(scale(src, c.MaxSide))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.Quality}); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeCollaborator, "PHOTO_ENCODE_FAILED", "failed to encode image")
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decode(data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mimetype.Detect(data).String() {
	case "image/png":
		return png.Decode(r)
	case "image/gif":
		return gif.Decode(r)
	default:
		return jpeg.Decode(r)
	}
}

// scale returns src resized to fit maxSide, or src itself if it already fits
func scale(src image.Image, maxSide int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return src
	}

	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// flatten draws img over white; JPEG has no alpha channel
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}
