package fototid

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

const mmPerInch = 25.4

// PageSize is a physical page size in millimeters.
type PageSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Margins are in millimeters.
type Margins struct {
	Top    float64 `yaml:"top"`
	Right  float64 `yaml:"right"`
	Bottom float64 `yaml:"bottom"`
	Left   float64 `yaml:"left"`
}

// PageSpec describes the page every photo of a job is laid out on.
type PageSpec struct {
	Size          PageSize `yaml:"size"`
	DPI           int      `yaml:"dpi"`
	Margins       Margins  `yaml:"margins"`
	PhotosPerPage int      `yaml:"photos_per_page"`
	// ColorMode is a device setting for the whole job, independent of
	// the style each photo was annotated with.
	ColorMode ColorMode `yaml:"color_mode"`
}

// LSize is the 89x127mm photo print.
var LSize = PageSize{Width: 89, Height: 127}

// DefaultPageSpec returns one borderless L-size photo per page at 300 DPI.
func DefaultPageSpec() PageSpec {
	return PageSpec{
		Size:          LSize,
		DPI:           300,
		PhotosPerPage: 1,
		ColorMode:     Color,
	}
}

func (p PageSpec) px(mm float64) int {
	return int(mm * float64(p.DPI) / mmPerInch)
}

// PageRect returns the whole page in device pixels.
func (p PageSpec) PageRect() image.Rectangle {
	return image.Rect(0, 0, p.px(p.Size.Width), p.px(p.Size.Height))
}

// PrintableRect returns the page minus margins in device pixels.
func (p PageSpec) PrintableRect() image.Rectangle {
	m := p.Margins
	x0, y0 := p.px(m.Left), p.px(m.Top)
	w := p.px(p.Size.Width - m.Left - m.Right)
	h := p.px(p.Size.Height - m.Top - m.Bottom)
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return image.Rect(x0, y0, x0+w, y0+h)
}

// Cells splits the printable area into PhotosPerPage equal cells, in row
// major order. Two photos split the longer side; four make a 2x2 grid.
func (p PageSpec) Cells() []image.Rectangle {
	pr := p.PrintableRect()
	cols, rows := 1, 1
	switch p.PhotosPerPage {
	case 2:
		if pr.Dx() > pr.Dy() {
			cols = 2
		} else {
			rows = 2
		}
	case 4:
		cols, rows = 2, 2
	}

	cw, ch := pr.Dx()/cols, pr.Dy()/rows
	cells := make([]image.Rectangle, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			o := pr.Min.Add(image.Pt(c*cw, r*ch))
			cells = append(cells, image.Rectangle{Min: o, Max: o.Add(image.Pt(cw, ch))})
		}
	}
	return cells
}

// FitSize scales src to the largest size that fits within box without
// changing its aspect ratio. It returns the zero point if either is empty.
func FitSize(src, box image.Point) image.Point {
	if src.X <= 0 || src.Y <= 0 || box.X <= 0 || box.Y <= 0 {
		return image.Point{}
	}

	w := int(int64(box.Y) * int64(src.X) / int64(src.Y))
	if w <= box.X {
		return image.Pt(max(w, 1), box.Y)
	}
	h := int(int64(box.X) * int64(src.Y) / int64(src.X))
	return image.Pt(box.X, max(h, 1))
}

// Center returns a rectangle of the given size centered in cell.
func Center(cell image.Rectangle, size image.Point) image.Rectangle {
	off := image.Pt((cell.Dx()-size.X)/2, (cell.Dy()-size.Y)/2)
	o := cell.Min.Add(off)
	return image.Rectangle{Min: o, Max: o.Add(size)}
}

// Placement is one scaled photo and where it goes on its page.
type Placement struct {
	Image  *Annotated
	Scaled image.Image
	Rect   image.Rectangle
}

// Page is one physical page of a job.
type Page struct {
	Index      int
	Placements []Placement
}

// Job is a laid out print job.
type Job struct {
	Spec      PageSpec
	Printable image.Rectangle
	Pages     []Page
	Failures  []Failure
}

// PageBreaks returns how many page breaks the job emits.
func (j *Job) PageBreaks() int {
	if len(j.Pages) == 0 {
		return 0
	}
	return len(j.Pages) - 1
}

// Layout scales and places images onto pages in input order. Images that
// cannot be placed are recorded as failures without affecting the rest.
func Layout(spec PageSpec, images []*Annotated) (*Job, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("page spec: %w", err)
	}

	cells := spec.Cells()
	job := &Job{Spec: spec, Printable: spec.PrintableRect()}
	klog.Infof("laying out %d photos, %d per page, printable area %v", len(images), len(cells), job.Printable)

	placed := 0
	for _, a := range images {
		slot := placed % len(cells)
		cell := cells[slot]

		pl, err := place(a, cell)
		if err != nil {
			klog.Errorf("layout: %v", err)
			job.Failures = append(job.Failures, Failure{Path: pathOf(a), Err: err})
			continue
		}

		if slot == 0 {
			job.Pages = append(job.Pages, Page{Index: len(job.Pages)})
		}
		pg := &job.Pages[len(job.Pages)-1]
		pg.Placements = append(pg.Placements, pl)
		klog.V(1).Infof("page %d: %s at %v", pg.Index, pathOf(a), pl.Rect)
		placed++
	}

	return job, nil
}

func pathOf(a *Annotated) string {
	if a == nil {
		return ""
	}
	return a.Path
}

func place(a *Annotated, cell image.Rectangle) (Placement, error) {
	if a == nil || a.Image == nil {
		return Placement{}, errors.New("no image")
	}
	size := FitSize(a.Image.Bounds().Size(), cell.Size())
	if size == (image.Point{}) {
		return Placement{}, fmt.Errorf("cannot fit %v into %v", a.Image.Bounds().Size(), cell.Size())
	}

	return Placement{
		Image:  a,
		Scaled: transform.Resize(a.Image, size.X, size.Y, transform.Lanczos),
		Rect:   Center(cell, size),
	}, nil
}

// Preview fits an annotated image into a box of the given size.
func Preview(a *Annotated, box image.Point) (image.Image, error) {
	if a == nil || a.Image == nil {
		return nil, errors.New("no image to preview")
	}
	size := FitSize(a.Image.Bounds().Size(), box)
	if size == (image.Point{}) {
		return nil, fmt.Errorf("cannot fit %v into %v", a.Image.Bounds().Size(), box)
	}
	return transform.Resize(a.Image, size.X, size.Y, transform.Lanczos), nil
}
