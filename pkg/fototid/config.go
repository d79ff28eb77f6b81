// Package fototid resolves when photos were taken, stamps that time onto
// them, and lays them out on pages for printing.
package fototid

import (
	"errors"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for fototid.
type Config struct {
	InDirs []string `yaml:"-"`
	OutDir string   `yaml:"out"`
	// FontPath is a TTF or OTF file; empty uses the built-in face.
	FontPath string   `yaml:"font"`
	Exiftool bool     `yaml:"exiftool"`
	Style    Style    `yaml:"style"`
	Page     PageSpec `yaml:"page"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Style: DefaultStyle(),
		Page:  DefaultPageSpec(),
	}
}

// LoadConfig reads a YAML job file over c and validates the result.
func LoadConfig(path string, c *Config) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(bs, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Style),
		validation.Field(&c.Page),
	)
}

// Validate validates the style settings.
func (s Style) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Format, validation.In(FormatDefault, FormatShort, FormatLong, FormatCustom)),
		validation.Field(&s.CustomLayout, validation.When(s.Format == FormatCustom, validation.Required)),
		validation.Field(&s.FontSize, validation.Required, validation.Min(8), validation.Max(48)),
		validation.Field(&s.BackgroundOpacity, validation.Min(0), validation.Max(100)),
		validation.Field(&s.ColorMode, validation.In(Color, Monochrome)),
	)
}

// Validate validates the page size.
func (s PageSize) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Width, validation.Required, validation.Min(1.0)),
		validation.Field(&s.Height, validation.Required, validation.Min(1.0)),
	)
}

// Validate validates the margins.
func (m Margins) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Top, validation.Min(0.0)),
		validation.Field(&m.Right, validation.Min(0.0)),
		validation.Field(&m.Bottom, validation.Min(0.0)),
		validation.Field(&m.Left, validation.Min(0.0)),
	)
}

// Validate validates the page geometry.
func (p PageSpec) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Size),
		validation.Field(&p.DPI, validation.Required, validation.Min(1), validation.Max(2400)),
		validation.Field(&p.Margins),
		validation.Field(&p.PhotosPerPage, validation.Required, validation.In(1, 2, 4)),
		validation.Field(&p.ColorMode, validation.In(Color, Monochrome)),
	)
	if err != nil {
		return err
	}

	for _, c := range p.Cells() {
		if c.Empty() {
			return errors.New("margins leave no printable area")
		}
	}
	return nil
}
