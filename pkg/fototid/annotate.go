package fototid

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"k8s.io/klog/v2"
)

var (
	// textAnchor is where the top-left of the text box is drawn.
	textAnchor = image.Pt(10, 10)
	// panelPadding surrounds the text on the background panel.
	panelPadding = 4
)

// Annotated is an image with its timestamp drawn in.
type Annotated struct {
	Path   string
	Image  draw.Image
	Layout PixelLayout
	Text   string
	// FontFallback is set when the fixed bitmap face replaced the requested font.
	FontFallback bool
}

// Failure records a file that could not be prepared.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Annotator draws timestamps onto images.
type Annotator struct {
	fontPath string
	font     *opentype.Font
	fontErr  error
}

// NewAnnotator loads the scalable font at fontPath, or the built-in Go
// Regular face when fontPath is empty. A font that fails to load is not
// fatal: text is drawn with a fixed bitmap face instead.
func NewAnnotator(fontPath string) *Annotator {
	a := &Annotator{fontPath: fontPath}
	a.font, a.fontErr = loadFont(fontPath)
	if a.fontErr != nil {
		klog.Warningf("unable to load font: %v", a.fontErr)
	}
	return a
}

func loadFont(path string) (*opentype.Font, error) {
	bs := goregular.TTF
	if path != "" {
		var err error
		bs, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w: %w", path, ErrFontLoad, err)
		}
	}

	f, err := opentype.Parse(bs)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w: %w", path, ErrFontLoad, err)
	}
	return f, nil
}

// FontErr returns why the scalable font is unavailable, or nil.
func (a *Annotator) FontErr() error {
	return a.fontErr
}

func (a *Annotator) face(size int) (font.Face, bool) {
	if a.font != nil {
		f, err := opentype.NewFace(a.font, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return f, false
		}
		klog.Warningf("unable to create %dpx face: %v", size, err)
	}
	klog.Warningf("using fixed 7x13 fallback font instead of %dpx", size)
	return basicfont.Face7x13, true
}

// Annotate returns a copy of src converted to the style's color mode, with
// the timestamp text drawn in. src is not modified.
func (a *Annotator) Annotate(src image.Image, ts Timestamp, st Style) (*Annotated, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, fmt.Errorf("empty image: %w", ErrDecode)
	}

	out := &Annotated{Text: st.Text(ts)}
	if st.ColorMode == Monochrome {
		out.Image = toGrayRGB(src)
		out.Layout = LayoutRGB
	} else {
		out.Image = clone.AsRGBA(src)
		out.Layout = LayoutRGBA
	}

	face, fallback := a.face(st.FontSize)
	defer face.Close()
	out.FontFallback = fallback

	drawText(out.Image, out.Text, face, st)
	klog.V(1).Infof("annotated %v %s image with %q", src.Bounds().Size(), out.Layout, out.Text)
	return out, nil
}

// AnnotateFile decodes path and annotates it.
func (a *Annotator) AnnotateFile(path string, ts Timestamp, st Style) (*Annotated, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrDecode, err)
	}

	out, err := a.Annotate(img, ts, st)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", path, err)
	}
	out.Path = path
	return out, nil
}

// Prepare annotates each record in order. Files that fail are returned
// separately and do not stop the rest.
func (a *Annotator) Prepare(records []PhotoRecord, st Style) ([]*Annotated, []Failure) {
	var out []*Annotated
	var failed []Failure

	for _, r := range records {
		an, err := a.AnnotateFile(r.Path, r.Taken, st)
		if err != nil {
			klog.Errorf("prepare failed: %v", err)
			failed = append(failed, Failure{Path: r.Path, Err: err})
			continue
		}
		out = append(out, an)
	}

	return out, failed
}

// toGrayRGB converts src to luminance, ignoring alpha: a transparent pixel
// keeps the gray of its own color rather than the color it would show over
// black.
func toGrayRGB(src image.Image) *RGBImage {
	b := src.Bounds()
	dst := NewRGBImage(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = 0xff
			g := color.GrayModel.Convert(c).(color.Gray).Y
			i := dst.PixOffset(x, y)
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = g, g, g
		}
	}
	return dst
}

func drawText(dst draw.Image, text string, face font.Face, st Style) {
	m := face.Metrics()
	origin := dst.Bounds().Min.Add(textAnchor)

	if st.BackgroundOpacity > 0 {
		adv := font.MeasureString(face, text)
		panel := image.Rect(origin.X, origin.Y, origin.X+adv.Ceil(), origin.Y+(m.Ascent+m.Descent).Ceil())
		panel = panel.Inset(-panelPadding).Intersect(dst.Bounds())
		alpha := uint8(st.BackgroundOpacity * 0xff / 100)
		draw.DrawMask(dst, panel, image.Black, image.Point{}, image.NewUniform(color.Alpha{A: alpha}), image.Point{}, draw.Over)
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: st.Color.R, G: st.Color.G, B: st.Color.B, A: 0xff}),
		Face: face,
		Dot:  fixed.P(origin.X, origin.Y+m.Ascent.Ceil()),
	}
	d.DrawString(text)
}
