package fototid

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const (
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004
)

// writeExifTIFF writes a minimal little-endian TIFF whose EXIF directory
// holds the given ASCII fields.
func writeExifTIFF(t *testing.T, path string, fields map[uint16]string) {
	t.Helper()

	var buf bytes.Buffer
	le := binary.LittleEndian
	w16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	w32 := func(v uint32) { _ = binary.Write(&buf, le, v) }

	buf.WriteString("II*\x00")
	w32(8)

	// IFD0: a single pointer to the EXIF directory at offset 26.
	w16(1)
	w16(0x8769)
	w16(4)
	w32(1)
	w32(26)
	w32(0)

	tags := make([]uint16, 0, len(fields))
	for k := range fields {
		tags = append(tags, k)
	}
	slices.Sort(tags)

	dataOff := 26 + 2 + 12*len(tags) + 4
	var data []byte
	w16(uint16(len(tags)))
	for _, tag := range tags {
		v := fields[tag] + "\x00"
		w16(tag)
		w16(2)
		w32(uint32(len(v)))
		w32(uint32(dataOff + len(data)))
		data = append(data, v...)
	}
	w32(0)
	buf.Write(data)

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestExifReader(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		fields map[uint16]string
		want   string
		found  bool
	}{
		{
			name:   "original",
			fields: map[uint16]string{tagDateTimeOriginal: "2021:03:04 05:06:07"},
			want:   "2021:03:04 05:06:07",
			found:  true,
		},
		{
			name:   "digitized",
			fields: map[uint16]string{tagDateTimeDigitized: "2020:01:02 03:04:05"},
			want:   "2020:01:02 03:04:05",
			found:  true,
		},
		{
			name: "original before digitized",
			fields: map[uint16]string{
				tagDateTimeOriginal:  "2021:03:04 05:06:07",
				tagDateTimeDigitized: "2020:01:02 03:04:05",
			},
			want:  "2021:03:04 05:06:07",
			found: true,
		},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := filepath.Join(dir, string(rune('a'+i))+".tiff")
			writeExifTIFF(t, p, tc.fields)

			got, found := ExifReader{}.CaptureTime(p)
			if found != tc.found || got != tc.want {
				t.Errorf("CaptureTime = %q, %v, want %q, %v", got, found, tc.want, tc.found)
			}
		})
	}
}

func TestExifReader_NotFound(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "plain.png")
	writePNG(t, png, 20, 10)

	for _, p := range []string{png, filepath.Join(dir, "missing.jpg")} {
		if got, found := (ExifReader{}).CaptureTime(p); found {
			t.Errorf("CaptureTime(%s) = %q, want not found", p, got)
		}
	}
}

func TestResolve_EmbeddedExif(t *testing.T) {
	p := filepath.Join(t.TempDir(), "20000101.tiff")
	writeExifTIFF(t, p, map[uint16]string{tagDateTimeOriginal: "2021:03:04 05:06:07"})

	r := NewResolver(ExifReader{})
	if got := r.Resolve(p); got.String() != "2021/03/04 05:06" {
		t.Errorf("Resolve = %q, want %q", got, "2021/03/04 05:06")
	}
}
