// Package gallery keeps generated mockups per session. Mockups of a batch are published together,
// either all of them get stored or none. Newest batch is listed first.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound returned when mockup is not in the gallery
var ErrNotFound = errors.New("mockup not found")

// Mockup is a generated image with the configuration it was produced from
type Mockup struct {
	ID          string    `json:"id"`
	BatchID     string    `json:"batch_id"`
	Variation   int       `json:"variation"`
	MimeType    string    `json:"mime_type"`
	Image       []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	Config      Config    `json:"config"`
}

// Config is the human-readable configuration a mockup was rendered with
type Config struct {
	Product    string `json:"product"`
	Size       string `json:"size"`
	Background string `json:"background"`
	Finish     string `json:"finish"`
	Material   string `json:"material"`
	BodyColor  string `json:"body_color"`
	CapColor   string `json:"cap_color"`
	Prompt     string `json:"prompt,omitempty"`
}

// Store is a gallery backend. List returns mockups without image data, Get returns the full mockup.
type Store interface {
	Publish(ctx context.Context, sessionID string, mockups []Mockup) error
	List(ctx context.Context, sessionID string) ([]Mockup, error)
	Get(ctx context.Context, sessionID, id string) (Mockup, error)
	Clear(ctx context.Context, sessionID string) (int, error)
	Close() error
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename makes download file name like brand-studio-cosmetic-jar-glossy-2025-01-02.png
func Filename(m Mockup) string {
	name := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(m.Config.Product), "-"), "-")
	ext := "png"
	switch m.MimeType {
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	return fmt.Sprintf("brand-studio-%s-%s-%s.%s", name, m.Config.Finish, m.CreatedAt.UTC().Format("2006-01-02"), ext)
}

func checkBatch(sessionID string, mockups []Mockup) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	for i, m := range mockups {
		if m.ID == "" {
			return fmt.Errorf("mockup %d: id required", i)
		}
		if len(m.Image) == 0 {
			return fmt.Errorf("mockup %s: empty image", m.ID)
		}
	}
	return nil
}
