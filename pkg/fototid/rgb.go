package fototid

import (
	"image"
	"image/color"
)

// PixelLayout describes how an annotated buffer stores its pixels.
type PixelLayout int

const (
	// LayoutRGBA is 4 bytes per pixel with alpha.
	LayoutRGBA PixelLayout = iota
	// LayoutRGB is 3 bytes per pixel, always opaque.
	LayoutRGB
)

func (l PixelLayout) String() string {
	if l == LayoutRGB {
		return "RGB"
	}
	return "RGBA"
}

// Channels returns the number of bytes per pixel.
func (l PixelLayout) Channels() int {
	if l == LayoutRGB {
		return 3
	}
	return 4
}

// RGBImage is an in-memory image of packed 8-bit R, G, B triples with no alpha.
type RGBImage struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewRGBImage returns an opaque black RGBImage of the given bounds.
func NewRGBImage(r image.Rectangle) *RGBImage {
	return &RGBImage{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

func (p *RGBImage) ColorModel() color.Model { return color.RGBAModel }

func (p *RGBImage) Bounds() image.Rectangle { return p.Rect }

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *RGBImage) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

func (p *RGBImage) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	return color.RGBA{R: s[0], G: s[1], B: s[2], A: 0xff}
}

// Set stores c, discarding its alpha.
func (p *RGBImage) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	c1 := color.RGBAModel.Convert(c).(color.RGBA)
	s := p.Pix[i : i+3 : i+3]
	s[0] = c1.R
	s[1] = c1.G
	s[2] = c1.B
}

// Opaque is always true.
func (p *RGBImage) Opaque() bool { return true }
