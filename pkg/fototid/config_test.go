package fototid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "job.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	p := writeConfig(t, `
out: /tmp/prints
exiftool: true
style:
  format: short
  color: "#ff8000"
  font_size: 24
  background_opacity: 0
  color_mode: monochrome
page:
  size: {width: 100, height: 150}
  dpi: 200
  margins: {top: 5, right: 5, bottom: 5, left: 5}
  photos_per_page: 4
  color_mode: grayscale
`)

	c := DefaultConfig()
	if err := LoadConfig(p, c); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := &Config{
		OutDir:   "/tmp/prints",
		Exiftool: true,
		Style: Style{
			Format:            FormatShort,
			Color:             RGB{R: 0xff, G: 0x80},
			FontSize:          24,
			BackgroundOpacity: 0,
			ColorMode:         Monochrome,
		},
		Page: PageSpec{
			Size:          PageSize{Width: 100, Height: 150},
			DPI:           200,
			Margins:       Margins{Top: 5, Right: 5, Bottom: 5, Left: 5},
			PhotosPerPage: 4,
			ColorMode:     Monochrome,
		},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_KeepsDefaults(t *testing.T) {
	p := writeConfig(t, "style:\n  font_size: 32\n")

	c := DefaultConfig()
	if err := LoadConfig(p, c); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Style.FontSize != 32 {
		t.Errorf("FontSize = %d, want 32", c.Style.FontSize)
	}
	if diff := cmp.Diff(DefaultPageSpec(), c.Page); diff != "" {
		t.Errorf("page changed (-want +got):\n%s", diff)
	}
	if c.Style.BackgroundOpacity != 50 {
		t.Errorf("BackgroundOpacity = %d, want default 50", c.Style.BackgroundOpacity)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"font too large", "style:\n  font_size: 60\n"},
		{"font too small", "style:\n  font_size: 4\n"},
		{"opacity", "style:\n  background_opacity: 101\n"},
		{"custom without layout", "style:\n  format: custom\n"},
		{"bad format", "style:\n  format: fancy\n"},
		{"bad color", "style:\n  color: \"#12\"\n"},
		{"per page", "page:\n  photos_per_page: 3\n"},
		{"dpi", "page:\n  dpi: -1\n"},
		{"negative margin", "page:\n  margins: {left: -1}\n"},
		{"margins too wide", "page:\n  margins: {left: 50, right: 50}\n"},
		{"not yaml", "style: [\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			if err := LoadConfig(writeConfig(t, tc.body), c); err == nil {
				t.Errorf("LoadConfig accepted %q", tc.body)
			}
		})
	}

	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig()); err == nil {
		t.Error("LoadConfig of a missing file succeeded")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}
