// renderer/bitmap.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"

	_ "golang.org/x/image/bmp"
)

type PixelFormat int

const (
	// FormatRGBA8 is 8-bit sRGB-encoded RGBA.
	FormatRGBA8 PixelFormat = iota
	// FormatRGBA8Linear is 8-bit RGBA without sRGB decoding.
	FormatRGBA8Linear
	// FormatR8 is a single 8-bit channel; it's used for glyph atlases.
	FormatR8
)

func (f PixelFormat) BytesPerPixel() int {
	if f == FormatR8 {
		return 1
	}
	return 4
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBA8Linear:
		return "RGBA8-linear"
	case FormatR8:
		return "R8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Bitmap is a tightly-packed pixel buffer. Row 0 is the bottom row of the
// image, matching the texture coordinate convention of the renderers.
type Bitmap struct {
	Width, Height int
	Format        PixelFormat
	Pix           []byte
}

func NewBitmap(width, height int, format PixelFormat) *Bitmap {
	return &Bitmap{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
}

func (b *Bitmap) Stride() int {
	return b.Width * b.Format.BytesPerPixel()
}

func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// SubImage returns the pixels of the given rectangle (clipped to the
// bitmap's bounds) with its rows packed contiguously, along with the
// clipped rectangle.
func (b *Bitmap) SubImage(r image.Rectangle) ([]byte, image.Rectangle) {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return nil, image.Rectangle{}
	}

	bpp, stride := b.Format.BytesPerPixel(), b.Stride()
	if r == b.Bounds() {
		return b.Pix, r
	}

	rowBytes := r.Dx() * bpp
	pix := make([]byte, 0, rowBytes*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := y*stride + r.Min.X*bpp
		pix = append(pix, b.Pix[start:start+rowBytes]...)
	}
	return pix, r
}

// FlipVertical reverses the order of the bitmap's rows in place.
func (b *Bitmap) FlipVertical() {
	stride := b.Stride()
	tmp := make([]byte, stride)
	for y0, y1 := 0, b.Height-1; y0 < y1; y0, y1 = y0+1, y1-1 {
		r0, r1 := b.Pix[y0*stride:(y0+1)*stride], b.Pix[y1*stride:(y1+1)*stride]
		copy(tmp, r0)
		copy(r0, r1)
		copy(r1, tmp)
	}
}

// BitmapFromImage converts the image to an RGBA bitmap, flipping it so
// that the image's top row ends up as the last row of the bitmap.
func BitmapFromImage(img image.Image, linear bool) *Bitmap {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*rgba.Rect.Dx() || rgba.Rect.Min != (image.Point{}) {
		nx, ny := img.Bounds().Dx(), img.Bounds().Dy()
		rgba = image.NewRGBA(image.Rect(0, 0, nx, ny))
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	format := FormatRGBA8
	if linear {
		format = FormatRGBA8Linear
	}
	b := &Bitmap{
		Width:  rgba.Rect.Dx(),
		Height: rgba.Rect.Dy(),
		Format: format,
		Pix:    bytes.Clone(rgba.Pix),
	}
	b.FlipVertical()
	return b
}

// LoadBitmap decodes a PNG, JPEG, or BMP image from the filesystem.
func LoadBitmap(fsys fs.FS, path string) (*Bitmap, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return BitmapFromImage(img, false), nil
}
