package studio

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // jpeg decoder
	_ "image/png"  // png decoder
	"time"

	_ "golang.org/x/image/webp" // webp decoder
)

// MaxLabelSize is the largest accepted label image, in bytes
const MaxLabelSize = 10 * 1024 * 1024

var (
	// ErrLabelTooLarge returned for label images above MaxLabelSize
	ErrLabelTooLarge = errors.New("label image is too large")
	// ErrUnsupportedImage returned for anything but png, jpeg and webp
	ErrUnsupportedImage = errors.New("unsupported label image")
)

var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// Label is an uploaded label image. Never modified after creation, snapshots share it by pointer.
type Label struct {
	Name       string
	MimeType   string
	Data       []byte
	Digest     string // hex sha256 of Data
	Width      int
	Height     int
	UploadedAt time.Time
}

// NewLabel checks the image format and size and makes a Label from it
func NewLabel(name string, data []byte) (*Label, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedImage)
	}
	if len(data) > MaxLabelSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrLabelTooLarge, len(data), MaxLabelSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	mimeType, ok := mimeTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}

	sum := sha256.Sum256(data)
	return &Label{
		Name:       name,
		MimeType:   mimeType,
		Data:       data,
		Digest:     hex.EncodeToString(sum[:]),
		Width:      cfg.Width,
		Height:     cfg.Height,
		UploadedAt: time.Now(),
	}, nil
}

// Size returns label size in bytes
func (l *Label) Size() int {
	return len(l.Data)
}

func (l *Label) String() string {
	return fmt.Sprintf("%s (%s, %dx%d, %d bytes)", l.Name, l.MimeType, l.Width, l.Height, len(l.Data))
}
