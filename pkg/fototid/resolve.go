package fototid

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/djherbis/times"
	"k8s.io/klog/v2"
)

// filenamePattern infers a capture time from part of a file name.
type filenamePattern struct {
	re     *regexp.Regexp
	layout string
}

// Checked in order; the first pattern that matches and converts wins.
var filenamePatterns = []filenamePattern{
	{re: regexp.MustCompile(`IMG_(\d{8})_(\d{6})`), layout: "20060102150405"},
	{re: regexp.MustCompile(`(\d{8})_(\d{6})`), layout: "20060102150405"},
	{re: regexp.MustCompile(`DSC_(\d{14})`), layout: "20060102150405"},
	{re: regexp.MustCompile(`IMG_(\d{8})`), layout: "20060102"},
	{re: regexp.MustCompile(`(\d{8})`), layout: "20060102"},
}

// Resolver picks one display timestamp per file from embedded metadata,
// filesystem creation time and the file name, in that order.
type Resolver struct {
	Metadata MetadataReader
	// Created returns the creation time of a file.
	Created func(path string) (time.Time, error)
	// Location is used for times that carry no zone: EXIF values, file
	// names, and filesystem times.
	Location *time.Location
}

// NewResolver returns a resolver backed by m and the OS file status.
func NewResolver(m MetadataReader) *Resolver {
	return &Resolver{
		Metadata: m,
		Created:  CreationTime,
		Location: time.Local,
	}
}

// Resolve returns the timestamp for path, or Unknown.
func (r *Resolver) Resolve(path string) Timestamp {
	tiers := []struct {
		name string
		fn   func(string) (Timestamp, error)
	}{
		{"metadata", r.fromMetadata},
		{"filesystem", r.fromFilesystem},
		{"filename", r.fromFilename},
	}

	for _, tier := range tiers {
		ts, err := tier.fn(path)
		if err == nil {
			klog.V(1).Infof("%s: %s (%s)", path, ts, tier.name)
			return ts
		}
		klog.V(1).Infof("%s: %s tier: %v", path, tier.name, err)
	}

	klog.Warningf("no timestamp for %s", path)
	return Unknown
}

func (r *Resolver) loc() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Resolver) fromMetadata(path string) (Timestamp, error) {
	if r.Metadata == nil {
		return Unknown, ErrMetadataUnavailable
	}
	raw, ok := r.Metadata.CaptureTime(path)
	if !ok {
		return Unknown, ErrMetadataUnavailable
	}
	t, err := time.ParseInLocation(exifDate, raw, r.loc())
	if err != nil {
		return Unknown, fmt.Errorf("parse time %q: %v: %w", raw, err, ErrMetadataUnavailable)
	}
	return newTimestamp(t, SourceMetadata), nil
}

func (r *Resolver) fromFilesystem(path string) (Timestamp, error) {
	if r.Created == nil {
		return Unknown, ErrMetadataUnavailable
	}
	t, err := r.Created(path)
	if err != nil {
		return Unknown, fmt.Errorf("stat: %v: %w", err, ErrMetadataUnavailable)
	}
	return newTimestamp(t.In(r.loc()), SourceFilesystem), nil
}

func (r *Resolver) fromFilename(path string) (Timestamp, error) {
	t, ok := InferFromName(filepath.Base(path), r.loc())
	if !ok {
		return Unknown, ErrMetadataUnavailable
	}
	return newTimestamp(t, SourceFilename), nil
}

// InferFromName guesses a capture time from a file name such as
// IMG_20230615_143000.jpg or DSC_20230615143000.jpg.
func InferFromName(name string, loc *time.Location) (time.Time, bool) {
	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		v := strings.Join(m[1:], "")
		t, err := time.ParseInLocation(p.layout, v, loc)
		if err != nil {
			klog.V(2).Infof("%s: %q matched %s but does not convert: %v", name, m[0], p.re, err)
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// CreationTime returns the birth time of a file where the OS records one,
// falling back to the status change time and then the modification time.
func CreationTime(path string) (time.Time, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	switch {
	case ts.HasBirthTime():
		return ts.BirthTime(), nil
	case ts.HasChangeTime():
		return ts.ChangeTime(), nil
	}
	return ts.ModTime(), nil
}
