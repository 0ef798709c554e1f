// Package transport turns session results into the payloads sent to clients.
package transport

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Format is an image encoding for preview frames.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

// ParseFormat accepts "jpeg", "jpg" and "webp".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unknown frame format %q", s)
	}
}

// Encoder encodes annotated frames. The zero value produces full-size JPEG
// at DefaultQuality.
type Encoder struct {
	Format Format
	// Quality applies to JPEG only; WebP frames are lossless.
	Quality int
	// Width downscales frames wider than this, keeping the aspect ratio.
	// Zero keeps the original size.
	Width int
}

// ContentType returns the MIME type of encoded frames.
func (e Encoder) ContentType() string {
	if e.Format == FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

// FormatName returns the format reported to clients.
func (e Encoder) FormatName() string {
	if e.Format == FormatWebP {
		return string(FormatWebP)
	}
	return string(FormatJPEG)
}

// Encode writes img to w in the configured format.
func (e Encoder) Encode(w io.Writer, img image.Image) error {
	if img == nil {
		return errors.New("encode frame: nil image")
	}
	img = e.scale(img)

	if e.Format == FormatWebP {
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("encode webp: %w", err)
		}
		return nil
	}

	q := e.Quality
	if q <= 0 || q > 100 {
		q = DefaultQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: q}); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// Bytes encodes img into a new buffer.
func (e Encoder) Bytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Base64 encodes img and returns it as standard base64 text.
func (e Encoder) Base64(img image.Image) (string, error) {
	data, err := e.Bytes(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (e Encoder) scale(img image.Image) image.Image {
	b := img.Bounds()
	if e.Width <= 0 || b.Dx() <= e.Width {
		return img
	}

	h := b.Dy() * e.Width / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, e.Width, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
