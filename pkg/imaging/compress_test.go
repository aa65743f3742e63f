package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justanote/pkg/errors"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(uri, dataURIPrefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURIPrefix))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestCompressScalesLongestSide(t *testing.T) {
	c := NewCompressor(400, 20, 10<<20)

	tests := []struct {
		name       string
		w, h       int
		wantW      int
		wantH      int
	}{
		{"landscape", 1000, 500, 400, 200},
		{"portrait", 300, 900, 133, 400},
		{"small stays", 120, 80, 120, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := c.Compress(pngBytes(t, tt.w, tt.h))
			require.NoError(t, err)
			img := decodeDataURI(t, uri)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestCompressIsDeterministic(t *testing.T) {
	c := NewCompressor(400, 20, 10<<20)
	data := pngBytes(t, 640, 480)

	a, err := c.Compress(data)
	require.NoError(t, err)
	b, err := c.Compress(data)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompressRejectsNonImages(t *testing.T) {
	c := NewCompressor(400, 20, 10<<20)

	_, err := c.Compress([]byte("%PDF-1.7 not a photo"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAnImage))
	assert.Equal(t, 422, errors.HTTPStatus(err))
}

func TestCompressRejectsOversizedUploads(t *testing.T) {
	c := NewCompressor(400, 20, 64)

	_, err := c.Compress(pngBytes(t, 50, 50))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
}

func TestCompressReportsCorruptImages(t *testing.T) {
	c := NewCompressor(400, 20, 10<<20)
	data := pngBytes(t, 50, 50)

	_, err := c.Compress(data[:40])
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrTypeCollaborator, appErr.Type)
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h RGBA
// pixels, with no image data behind it
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestCompressRejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	c := NewCompressor(400, 20, 10<<20)
	data := pngHeader(40000, 40000)
	require.Less(t, len(data), 64)

	err := c.Check(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, err = c.Compress(data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))
	assert.Equal(t, 422, errors.HTTPStatus(err))
}

func TestCompressPixelCapIsConfigurable(t *testing.T) {
	c := NewCompressor(400, 20, 10<<20)
	c.MaxPixels = 50 * 50
	_, err := c.Compress(pngBytes(t, 50, 50))
	require.NoError(t, err)

	c.MaxPixels = 50*50 - 1
	_, err = c.Compress(pngBytes(t, 50, 50))
	assert.True(t, errors.Is(err, ErrTooLarge))
}
