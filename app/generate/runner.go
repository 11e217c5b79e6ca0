package generate

import (
	"context"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/mockstudio/app/catalog"
	"github.com/umputun/mockstudio/app/gallery"
	"github.com/umputun/mockstudio/app/studio"
)

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Runner renders all variations of a batch, one after another
type Runner struct {
	Generator   Generator
	Catalog     *catalog.Catalog
	Repeater    Repeater // optional, single attempt if nil
	AspectRatio string
}

// Batch is a generation request captured at submit time
type Batch struct {
	ID       string
	Snapshot studio.Snapshot
	Progress func(done, total int) // optional, called after each rendered variation
}

// Run renders Snapshot.Settings.Variations mockups. Variation i+1 is requested only after i is done.
// Any failure stops the batch and nothing rendered so far is returned.
func (r *Runner) Run(ctx context.Context, b Batch) ([]gallery.Mockup, error) {
	if !b.Snapshot.HasLabel() {
		return nil, ErrNoLabel
	}
	s := b.Snapshot.Settings
	if err := r.Catalog.CheckSettings(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	product, err := r.Catalog.Product(s.ProductTypeID)
	if err != nil {
		return nil, err
	}
	background, err := r.Catalog.Background(s.BackgroundID)
	if err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	st := time.Now()
	label := b.Snapshot.Label
	results := make([]gallery.Mockup, 0, s.Variations)
	for i := range s.Variations {
		prompt := Prompt(s, product, background, i)
		req := Request{Label: label.Data, MimeType: label.MimeType, Prompt: prompt, AspectRatio: r.AspectRatio}

		img, err := r.generate(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("variation %d of %d: %w", i+1, s.Variations, err)
		}
		results = append(results, gallery.Mockup{
			ID:        uuid.NewString(),
			BatchID:   b.ID,
			Variation: i + 1,
			MimeType:  img.MimeType,
			Image:     img.Data,
			CreatedAt: time.Now(),
			Config: gallery.Config{
				Product:    product.Name,
				Size:       s.Size,
				Background: background.Name,
				Finish:     s.Finish,
				Material:   s.Material,
				BodyColor:  s.BodyColor,
				CapColor:   s.CapColor,
				Prompt:     prompt,
			},
		})
		if b.Progress != nil {
			b.Progress(i+1, s.Variations)
		}
	}
	log.Printf("[INFO] batch %s rendered %d mockups of %s in %v", b.ID, len(results), product.Name,
		time.Since(st).Truncate(time.Millisecond))
	return results, nil
}

func (r *Runner) generate(ctx context.Context, req Request) (img Image, err error) {
	if r.Repeater == nil {
		return r.Generator.Generate(ctx, req)
	}
	err = r.Repeater.Do(ctx, func() error {
		var e error
		img, e = r.Generator.Generate(ctx, req)
		return e
	})
	return img, err
}
