package fototid

import "errors"

var (
	// ErrMetadataUnavailable means a tier had nothing usable. It never leaves the resolver.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	// ErrDecode means a source image could not be read.
	ErrDecode = errors.New("decode failure")
	// ErrFontLoad means the scalable font could not be loaded.
	ErrFontLoad = errors.New("font load failure")
	// ErrDeviceInit means the rendering surface could not be started.
	ErrDeviceInit = errors.New("device init failure")
)
