package fototid

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
	"k8s.io/klog/v2"
)

// Surface receives the pages of a print job.
type Surface interface {
	// Begin prepares the device. The job's color mode is known from here on.
	Begin(spec PageSpec) error
	DrawImage(page int, img image.Image, r image.Rectangle, mode ColorMode) error
	NewPage() error
	End() error
}

// Print sends job to s. If s cannot be started nothing is drawn. Failures
// drawing a single photo are returned together after the job finishes.
func Print(job *Job, s Surface) error {
	if err := s.Begin(job.Spec); err != nil {
		return fmt.Errorf("begin: %w: %w", ErrDeviceInit, err)
	}
	klog.Infof("printing %d pages (%s)", len(job.Pages), job.Spec.ColorMode)

	var errs []error
	for i, p := range job.Pages {
		for _, pl := range p.Placements {
			if err := s.DrawImage(p.Index, pl.Scaled, pl.Rect, job.Spec.ColorMode); err != nil {
				klog.Errorf("draw %s on page %d: %v", pathOf(pl.Image), p.Index, err)
				errs = append(errs, Failure{Path: pathOf(pl.Image), Err: err})
			}
		}

		if i < len(job.Pages)-1 {
			klog.V(1).Infof("page break after page %d", p.Index)
			if err := s.NewPage(); err != nil {
				_ = s.End()
				return fmt.Errorf("new page: %w", err)
			}
		}
	}

	if err := s.End(); err != nil {
		errs = append(errs, fmt.Errorf("end: %w", err))
	}
	return errors.Join(errs...)
}

// FileSurface writes each page to an image file in Dir.
type FileSurface struct {
	Dir string
	// Prefix names the files: <Prefix>-001.png, ...
	Prefix string
	// Quality selects JPEG output when non-zero; PNG otherwise.
	Quality int

	spec    PageSpec
	canvas  *image.RGBA
	page    int
	written []string
}

// Begin implements Surface.
func (f *FileSurface) Begin(spec PageSpec) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if spec.PageRect().Empty() {
		return fmt.Errorf("empty page %v", spec.PageRect())
	}

	f.spec = spec
	f.page = 0
	f.written = nil
	f.canvas = blankPage(spec)
	return nil
}

// DrawImage implements Surface.
func (f *FileSurface) DrawImage(page int, img image.Image, r image.Rectangle, _ ColorMode) error {
	if f.canvas == nil {
		return errors.New("surface not started")
	}
	if page != f.page {
		return fmt.Errorf("draw on page %d while on page %d", page, f.page)
	}
	draw.Draw(f.canvas, r, img, img.Bounds().Min, draw.Over)
	return nil
}

// NewPage implements Surface.
func (f *FileSurface) NewPage() error {
	if f.canvas == nil {
		return errors.New("surface not started")
	}
	if err := f.flush(); err != nil {
		f.canvas = nil
		return err
	}
	f.page++
	f.canvas = blankPage(f.spec)
	return nil
}

// End implements Surface.
func (f *FileSurface) End() error {
	if f.canvas == nil {
		return nil
	}
	err := f.flush()
	f.canvas = nil
	return err
}

// Pages returns the files written so far.
func (f *FileSurface) Pages() []string {
	return f.written
}

func (f *FileSurface) flush() error {
	var out image.Image = f.canvas
	if f.spec.ColorMode == Monochrome {
		out = effect.Grayscale(f.canvas)
	}

	prefix := f.Prefix
	if prefix == "" {
		prefix = "page"
	}
	ext, enc := "png", imgio.PNGEncoder()
	if f.Quality > 0 {
		ext, enc = "jpg", imgio.JPEGEncoder(f.Quality)
	}

	p := filepath.Join(f.Dir, fmt.Sprintf("%s-%03d.%s", prefix, f.page+1, ext))
	klog.Infof("writing page %d to %s", f.page+1, p)
	if err := imgio.Save(p, out, enc); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	f.written = append(f.written, p)
	return nil
}

func blankPage(spec PageSpec) *image.RGBA {
	r := spec.PageRect()
	img := image.NewRGBA(r)
	draw.Draw(img, r, image.White, image.Point{}, draw.Src)
	return img
}
