package fototid

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, filled(w, h, color.RGBA{R: 200, G: 40, B: 40, A: 0xff})); err != nil {
		t.Fatal(err)
	}
}

func stamp() Timestamp {
	return newTimestamp(time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC), SourceFilename)
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func changedPixels(a, b image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if rgbaAt(a, x, y) != rgbaAt(b, x, y) {
				n++
			}
		}
	}
	return n
}

func TestAnnotate_ColorMode(t *testing.T) {
	src := filled(200, 100, color.RGBA{R: 200, G: 40, B: 40, A: 0xff})
	st := DefaultStyle()
	st.BackgroundOpacity = 0

	got, err := NewAnnotator("").Annotate(src, stamp(), st)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if got.Layout != LayoutRGBA || got.Layout.Channels() != 4 {
		t.Errorf("layout = %s, want RGBA", got.Layout)
	}
	if _, ok := got.Image.(*image.RGBA); !ok {
		t.Errorf("image is %T, want *image.RGBA", got.Image)
	}
	if got.Text != "2023/06/15 14:30" {
		t.Errorf("text = %q", got.Text)
	}
	if got.FontFallback {
		t.Error("built-in font fell back")
	}
	if c := rgbaAt(got.Image, 190, 90); c != (color.RGBA{R: 200, G: 40, B: 40, A: 0xff}) {
		t.Errorf("pixel away from text = %v, want source color", c)
	}
	if n := changedPixels(src, got.Image, image.Rect(10, 10, 190, 40)); n == 0 {
		t.Error("no text drawn near the anchor")
	}
	if n := changedPixels(src, got.Image, image.Rect(0, 0, 200, 9)); n != 0 {
		t.Errorf("%d pixels changed above the anchor", n)
	}
}

func TestAnnotate_Monochrome(t *testing.T) {
	src := filled(120, 80, color.RGBA{R: 200, G: 40, B: 40, A: 0xff})
	st := DefaultStyle()
	st.ColorMode = Monochrome

	got, err := NewAnnotator("").Annotate(src, stamp(), st)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if got.Layout != LayoutRGB || got.Layout.Channels() != 3 {
		t.Errorf("layout = %s, want RGB", got.Layout)
	}
	rgb, ok := got.Image.(*RGBImage)
	if !ok {
		t.Fatalf("image is %T, want *RGBImage", got.Image)
	}
	if len(rgb.Pix) != 3*120*80 {
		t.Errorf("len(Pix) = %d, want %d", len(rgb.Pix), 3*120*80)
	}
	if !rgb.Opaque() {
		t.Error("RGBImage reports transparency")
	}
	c := rgbaAt(rgb, 110, 70)
	if c.R != c.G || c.G != c.B || c.A != 0xff {
		t.Errorf("pixel = %v, want opaque gray", c)
	}
	if c.R == 200 {
		t.Errorf("pixel = %v, want luminance not the red channel", c)
	}
}

func TestAnnotate_MonochromeIgnoresAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			a := uint8(0)
			switch {
			case x >= 150:
				a = 0xff
			case x >= 100:
				a = 200
			case x >= 50:
				a = 128
			}
			src.SetNRGBA(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: a})
		}
	}
	st := DefaultStyle()
	st.ColorMode = Monochrome

	got, err := NewAnnotator("").Annotate(src, stamp(), st)
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	for _, x := range []int{20, 70, 120, 170} {
		want := color.RGBA{R: 200, G: 200, B: 200, A: 0xff}
		if c := rgbaAt(got.Image, x, 90); c != want {
			t.Errorf("pixel at x=%d (alpha %d) = %v, want %v", x, src.NRGBAAt(x, 90).A, c, want)
		}
	}
}

func TestAnnotate_SourceUntouched(t *testing.T) {
	src := filled(100, 60, color.White)
	if _, err := NewAnnotator("").Annotate(src, stamp(), DefaultStyle()); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if n := changedPixels(src, filled(100, 60, color.White), src.Bounds()); n != 0 {
		t.Errorf("source changed in %d pixels", n)
	}
}

func TestAnnotate_BackgroundOpacity(t *testing.T) {
	a := NewAnnotator("")
	src := filled(200, 60, color.White)

	tests := []struct {
		opacity int
		lo, hi  uint8
	}{
		{opacity: 0, lo: 0xff, hi: 0xff},
		{opacity: 50, lo: 120, hi: 136},
		{opacity: 100, lo: 0, hi: 0},
	}

	for _, tc := range tests {
		st := DefaultStyle()
		st.BackgroundOpacity = tc.opacity
		got, err := a.Annotate(src, stamp(), st)
		if err != nil {
			t.Fatalf("Annotate: %v", err)
		}
		// Inside the panel padding, clear of any glyph.
		c := rgbaAt(got.Image, 7, 7)
		if c.R < tc.lo || c.R > tc.hi {
			t.Errorf("opacity %d: panel pixel = %v, want R in [%d,%d]", tc.opacity, c, tc.lo, tc.hi)
		}
	}
}

func TestAnnotate_FontFallback(t *testing.T) {
	a := NewAnnotator(filepath.Join(t.TempDir(), "missing.ttf"))
	if !errors.Is(a.FontErr(), ErrFontLoad) {
		t.Errorf("FontErr = %v, want ErrFontLoad", a.FontErr())
	}

	src := filled(200, 60, color.Black)
	st := DefaultStyle()
	st.FontSize = 48
	got, err := a.Annotate(src, stamp(), st)
	if err != nil {
		t.Fatalf("Annotate with fallback font: %v", err)
	}
	if !got.FontFallback {
		t.Error("FontFallback not reported")
	}
	if n := changedPixels(src, got.Image, image.Rect(10, 10, 190, 30)); n == 0 {
		t.Error("fallback font drew nothing")
	}
}

func TestAnnotate_BadFontFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(p, []byte("not a font"), 0o600); err != nil {
		t.Fatal(err)
	}
	if a := NewAnnotator(p); !errors.Is(a.FontErr(), ErrFontLoad) {
		t.Errorf("FontErr = %v, want ErrFontLoad", a.FontErr())
	}
}

func TestAnnotate_UnknownAndFormats(t *testing.T) {
	a := NewAnnotator("")
	src := filled(300, 60, color.Black)

	tests := []struct {
		ts   Timestamp
		f    DateFormat
		cl   string
		want string
	}{
		{Unknown, FormatDefault, "", UnknownText},
		{Unknown, FormatCustom, "2006", UnknownText},
		{stamp(), FormatShort, "", "23.06.15"},
		{stamp(), FormatLong, "", "June 15, 2023 14:30"},
		{stamp(), FormatCustom, "2006-01-02", "2023-06-15"},
		{stamp(), FormatCustom, "", "2023/06/15 14:30"},
	}

	for _, tc := range tests {
		st := DefaultStyle()
		st.Format = tc.f
		st.CustomLayout = tc.cl
		got, err := a.Annotate(src, tc.ts, st)
		if err != nil {
			t.Fatalf("Annotate: %v", err)
		}
		if got.Text != tc.want {
			t.Errorf("%s %q: text = %q, want %q", tc.f, tc.cl, got.Text, tc.want)
		}
	}
}

func TestAnnotate_Empty(t *testing.T) {
	_, err := NewAnnotator("").Annotate(image.NewRGBA(image.Rect(0, 0, 0, 0)), stamp(), DefaultStyle())
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Annotate(empty) error = %v, want ErrDecode", err)
	}
}

func TestPrepare_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.png")
	bad := filepath.Join(dir, "bad.jpg")
	writePNG(t, good, 64, 48)
	if err := os.WriteFile(bad, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	records := []PhotoRecord{
		{Path: bad},
		{Path: good, Taken: stamp()},
		{Path: filepath.Join(dir, "missing.png")},
	}
	out, failed := NewAnnotator("").Prepare(records, DefaultStyle())

	if len(out) != 1 || out[0].Path != good {
		t.Fatalf("prepared %d images, want only %s", len(out), good)
	}
	if out[0].Image.Bounds().Size() != image.Pt(64, 48) {
		t.Errorf("size = %v, want 64x48", out[0].Image.Bounds().Size())
	}
	if len(failed) != 2 {
		t.Fatalf("got %d failures, want 2", len(failed))
	}
	for _, f := range failed {
		if !errors.Is(f, ErrDecode) {
			t.Errorf("failure %v is not ErrDecode", f)
		}
	}
	if failed[0].Path != bad {
		t.Errorf("first failure = %s, want %s", failed[0].Path, bad)
	}
}
