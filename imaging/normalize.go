// Package imaging normalizes uploaded images for the site.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/gen2brain/webp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// Quality is the WebP encoder quality.
	Quality = 85
	// DefaultMaxWidth bounds converted images; wider ones are scaled down.
	DefaultMaxWidth = 2400
)

// ErrDecode is returned when the input is not a supported image.
var ErrDecode = errors.New("invalid image")

// Options controls Normalize.
type Options struct {
	// Convert re-encodes the image as WebP. Without it the bytes pass through.
	Convert bool
	// MaxWidth scales converted images down to this width. 0 disables.
	MaxWidth int
}

// Result is a normalized image ready to be staged.
type Result struct {
	Filename string
	Data     []byte
	Width    int
	Height   int
}

// Normalize prepares an upload for the site's images folder.
func Normalize(data []byte, filename string, opts Options) (Result, error) {
	name := BaseName(filename)
	if name == "" {
		return Result{}, errors.New("filename required")
	}
	if !opts.Convert {
		return Result{Filename: name, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	img = downscale(img, opts.MaxWidth)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: Quality}); err != nil {
		return Result{}, fmt.Errorf("encode webp: %w", err)
	}
	b := img.Bounds()
	return Result{
		Filename: WebPName(name),
		Data:     buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

func downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return img
	}
	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// BaseName strips any directory part, so uploads always land directly in
// the images folder.
func BaseName(filename string) string {
	name := strings.TrimSpace(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

// WebPName replaces the extension of name with .webp, or appends it.
func WebPName(name string) string {
	if ext := path.Ext(name); ext != "" && ext != name {
		return strings.TrimSuffix(name, ext) + ".webp"
	}
	return name + ".webp"
}
