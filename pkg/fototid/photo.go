package fototid

import (
	"fmt"
	"strings"
	"time"
)

// DisplayFormat is how resolved timestamps are shown by default.
const DisplayFormat = "2006/01/02 15:04"

// UnknownText is rendered in place of a timestamp that could not be resolved.
const UnknownText = "date unknown"

// Source identifies the tier a timestamp was resolved from.
type Source int

const (
	SourceNone Source = iota
	SourceMetadata
	SourceFilesystem
	SourceFilename
)

func (s Source) String() string {
	switch s {
	case SourceMetadata:
		return "metadata"
	case SourceFilesystem:
		return "filesystem"
	case SourceFilename:
		return "filename"
	}
	return "none"
}

// Timestamp is a minute-precision capture time, or Unknown.
type Timestamp struct {
	t      time.Time
	source Source
}

// Unknown is the timestamp of a photo with no usable source.
var Unknown = Timestamp{}

// newTimestamp drops the seconds of t as shown in its own location.
func newTimestamp(t time.Time, s Source) Timestamp {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	return Timestamp{t: wall, source: s}
}

// Known reports whether a source produced this timestamp.
func (ts Timestamp) Known() bool {
	return ts.source != SourceNone
}

// Time returns the resolved instant, or the zero time for Unknown.
func (ts Timestamp) Time() time.Time {
	return ts.t
}

// Source returns the tier that produced the timestamp.
func (ts Timestamp) Source() Source {
	return ts.source
}

func (ts Timestamp) String() string {
	return ts.Format(FormatDefault, "")
}

// Format renders the timestamp in the given display format.
func (ts Timestamp) Format(f DateFormat, custom string) string {
	if !ts.Known() {
		return UnknownText
	}
	return ts.t.Format(f.layout(custom))
}

// PhotoRecord pairs a file with its resolved timestamp.
type PhotoRecord struct {
	Path  string
	Taken Timestamp
}

// DateFormat selects how the annotation text is written.
type DateFormat int

const (
	FormatDefault DateFormat = iota
	FormatShort
	FormatLong
	FormatCustom
)

var dateFormatNames = map[DateFormat]string{
	FormatDefault: "default",
	FormatShort:   "short",
	FormatLong:    "long",
	FormatCustom:  "custom",
}

func (f DateFormat) String() string {
	if n, ok := dateFormatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("DateFormat(%d)", int(f))
}

// MarshalText implements encoding.TextMarshaler.
func (f DateFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *DateFormat) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for k, v := range dateFormatNames {
		if v == s {
			*f = k
			return nil
		}
	}
	return fmt.Errorf("unknown date format %q", s)
}

func (f DateFormat) layout(custom string) string {
	switch f {
	case FormatShort:
		return "06.01.02"
	case FormatLong:
		return "January 2, 2006 15:04"
	case FormatCustom:
		if custom != "" {
			return custom
		}
	}
	return DisplayFormat
}

// ColorMode is either full color or monochrome.
type ColorMode int

const (
	Color ColorMode = iota
	Monochrome
)

func (m ColorMode) String() string {
	if m == Monochrome {
		return "monochrome"
	}
	return "color"
}

// MarshalText implements encoding.TextMarshaler.
func (m ColorMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ColorMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "color", "colour":
		*m = Color
	case "monochrome", "mono", "grayscale", "greyscale":
		*m = Monochrome
	default:
		return fmt.Errorf("unknown color mode %q", string(b))
	}
	return nil
}

// RGB is a text color.
type RGB struct {
	R, G, B uint8
}

// ParseRGB parses "#rrggbb" or "rrggbb".
func ParseRGB(s string) (RGB, error) {
	var c RGB
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return c, fmt.Errorf("invalid color %q", s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalText implements encoding.TextMarshaler.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RGB) UnmarshalText(b []byte) error {
	p, err := ParseRGB(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}

// Style holds the annotation settings.
type Style struct {
	Format            DateFormat `yaml:"format"`
	CustomLayout      string     `yaml:"custom_layout"`
	Color             RGB        `yaml:"color"`
	FontSize          int        `yaml:"font_size"`
	BackgroundOpacity int        `yaml:"background_opacity"`
	ColorMode         ColorMode  `yaml:"color_mode"`
}

// DefaultStyle returns white 16px text over a 50% panel, in color.
func DefaultStyle() Style {
	return Style{
		Format:            FormatDefault,
		Color:             RGB{R: 0xff, G: 0xff, B: 0xff},
		FontSize:          16,
		BackgroundOpacity: 50,
		ColorMode:         Color,
	}
}

// Text returns the annotation text for ts under this style.
func (s Style) Text(ts Timestamp) string {
	return ts.Format(s.Format, s.CustomLayout)
}
