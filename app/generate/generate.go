// Package generate renders mockups with an image-generation model. Generator is the remote collaborator,
// Runner drives a batch of variations through it one by one.
package generate

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNoImage returned when the model response has no image in it
	ErrNoImage = errors.New("no image data returned from model")
	// ErrNoLabel returned when generation requested without uploaded label
	ErrNoLabel = errors.New("label is not uploaded")
)

// AspectRatios lists ratios accepted by the model
var AspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9"}

// Generator produces a single image from the label and the scene description
type Generator interface {
	Generate(ctx context.Context, req Request) (Image, error)
}

// Request to the generator
type Request struct {
	Label       []byte
	MimeType    string // label mime type
	Prompt      string // scene description
	AspectRatio string // one of AspectRatios, empty for 1:1
}

// Image returned by the generator
type Image struct {
	Data     []byte
	MimeType string
}

// CheckAspectRatio validates ratio, empty is allowed and means the default
func CheckAspectRatio(ratio string) error {
	if ratio == "" || slices.Contains(AspectRatios, ratio) {
		return nil
	}
	return fmt.Errorf("unsupported aspect ratio %q, expected one of %v", ratio, AspectRatios)
}
