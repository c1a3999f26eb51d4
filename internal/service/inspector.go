package service

import (
	"fmt"
	"strings"

	"github.com/h2non/bimg"
)

// ImageInfo describes a fetched asset: detected type (upper-cased, e.g.
// "GIF") and pixel dimensions.
type ImageInfo struct {
	Type   string
	Width  int
	Height int
}

// Inspector probes downloaded icon bytes with bimg (libvips bindings) so the
// report can show what actually came back from the host — LaMetric thumbs
// should all be 8x8. Probing is purely informational; the pipeline never
// fails on it.
type Inspector struct{}

// NewInspector creates an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// Probe returns the detected format and dimensions of the image bytes.
func (i *Inspector) Probe(data []byte) (*ImageInfo, error) {
	img := bimg.NewImage(data)

	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("reading image dimensions: %w", err)
	}

	typ := img.Type()
	if typ == "unknown" {
		return nil, fmt.Errorf("unrecognized image format")
	}

	return &ImageInfo{
		Type:   strings.ToUpper(typ),
		Width:  size.Width,
		Height: size.Height,
	}, nil
}
