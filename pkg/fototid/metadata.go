package fototid

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"k8s.io/klog/v2"
)

// exifDate is the layout of EXIF date fields.
var exifDate = "2006:01:02 15:04:05"

// MetadataReader reads the embedded capture time of an image.
//
// CaptureTime returns the raw value of the first present tag, original
// capture time before digitized time. Any failure is reported as not found.
type MetadataReader interface {
	CaptureTime(path string) (raw string, found bool)
}

// ExifReader reads EXIF blocks in-process.
type ExifReader struct{}

var exifTags = []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized}

// CaptureTime implements MetadataReader.
func (ExifReader) CaptureTime(path string) (string, bool) {
	raw, err := readExif(path)
	if err != nil {
		klog.V(1).Infof("no embedded time for %s: %v", path, err)
		return "", false
	}
	return raw, true
}

func readExif(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode exif: %v: %w", err, ErrMetadataUnavailable)
	}

	for _, name := range exifTags {
		tag, err := x.Get(name)
		if err != nil {
			klog.V(2).Infof("%s: no %s: %v", path, name, err)
			continue
		}
		v, err := tag.StringVal()
		if err != nil {
			return "", fmt.Errorf("%s: %v: %w", name, err, ErrMetadataUnavailable)
		}
		return strings.TrimRight(v, "\x00 "), nil
	}

	return "", ErrMetadataUnavailable
}

// ExiftoolReader reads metadata through a long-running exiftool process.
type ExiftoolReader struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// exiftool names EXIF DateTimeDigitized "CreateDate".
var exiftoolTags = []string{"DateTimeOriginal", "CreateDate"}

// NewExiftoolReader starts exiftool. Close must be called when done.
func NewExiftoolReader() (*ExiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &ExiftoolReader{et: et}, nil
}

// CaptureTime implements MetadataReader.
func (r *ExiftoolReader) CaptureTime(path string) (string, bool) {
	r.mu.Lock()
	fis := r.et.ExtractMetadata(path)
	r.mu.Unlock()

	if len(fis) == 0 {
		klog.V(1).Infof("no metadata returned for %s", path)
		return "", false
	}
	fi := fis[0]
	if fi.Err != nil {
		klog.V(1).Infof("extract fail for %q: %v", path, fi.Err)
		return "", false
	}

	for _, k := range exiftoolTags {
		ds, err := fi.GetString(k)
		if err != nil {
			klog.V(2).Infof("unable to get %s for %s: %v", k, path, err)
			continue
		}
		return strings.TrimSpace(ds), true
	}

	klog.V(1).Infof("no date time for %s", path)
	return "", false
}

// Close stops the exiftool process.
func (r *ExiftoolReader) Close() error {
	return r.et.Close()
}
