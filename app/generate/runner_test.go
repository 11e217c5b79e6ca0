package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/mockstudio/app/catalog"
	"github.com/umputun/mockstudio/app/studio"
)

// fakeGenerator fails on calls listed in failOn (1-based)
// generatorFunc adapts a function to Generator
type generatorFunc func(ctx context.Context, req Request) (Image, error)

func (f generatorFunc) Generate(ctx context.Context, req Request) (Image, error) { return f(ctx, req) }

type fakeGenerator struct {
	mu       sync.Mutex
	calls    []Request
	failOn   map[int]bool
	inFlight int
	overlap  bool
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (Image, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.calls = append(f.calls, req)
	n := len(f.calls)
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.failOn[n] {
		return Image{}, fmt.Errorf("call %d failed", n)
	}
	return Image{Data: fmt.Appendf(nil, "img-%d", n), MimeType: "image/png"}, nil
}

func testSnapshot(t *testing.T, variations int) studio.Snapshot {
	t.Helper()
	s := studio.DefaultSettings()
	s.Variations = variations
	label := &studio.Label{Name: "label.png", MimeType: "image/png", Data: []byte("label-data"), Digest: "abc"}
	return studio.Snapshot{Settings: s, Label: label}
}

func testRunner(t *testing.T, gen Generator) *Runner {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return &Runner{Generator: gen, Catalog: cat, AspectRatio: "1:1"}
}

func TestRunner_Run(t *testing.T) {
	gen := &fakeGenerator{}
	r := testRunner(t, gen)

	var progress []int
	res, err := r.Run(t.Context(), Batch{ID: "b1", Snapshot: testSnapshot(t, 3),
		Progress: func(done, total int) {
			assert.Equal(t, 3, total)
			progress = append(progress, done)
		}})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.False(t, gen.overlap, "variations must not overlap")

	ids := map[string]bool{}
	for i, m := range res {
		assert.Equal(t, "b1", m.BatchID)
		assert.Equal(t, i+1, m.Variation)
		assert.Equal(t, fmt.Appendf(nil, "img-%d", i+1), m.Image)
		assert.Equal(t, "image/png", m.MimeType)
		assert.Equal(t, "50g / 1.7 oz", m.Config.Size)
		assert.Equal(t, "matte", m.Config.Finish)
		assert.Equal(t, "#FFFFFF", m.Config.BodyColor)
		assert.NotEmpty(t, m.Config.Product)
		assert.NotEmpty(t, m.Config.Background)
		assert.False(t, m.CreatedAt.IsZero())
		ids[m.ID] = true
	}
	assert.Len(t, ids, 3, "ids must be unique")

	require.Len(t, gen.calls, 3)
	assert.NotContains(t, gen.calls[0].Prompt, "variation")
	assert.Contains(t, gen.calls[1].Prompt, "(variation 2)")
	assert.Contains(t, gen.calls[2].Prompt, "(variation 3)")
	assert.Equal(t, []byte("label-data"), gen.calls[0].Label)
	assert.Equal(t, "1:1", gen.calls[0].AspectRatio)
}

func TestRunner_FailureDiscardsBatch(t *testing.T) {
	gen := &fakeGenerator{failOn: map[int]bool{2: true}}
	r := testRunner(t, gen)

	res, err := r.Run(t.Context(), Batch{Snapshot: testSnapshot(t, 4)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variation 2 of 4")
	assert.Nil(t, res)
	assert.Len(t, gen.calls, 2, "no calls after the failed one")
}

func TestRunner_Repeater(t *testing.T) {
	gen := &fakeGenerator{failOn: map[int]bool{1: true}}
	r := testRunner(t, gen)
	r.Repeater = repeater.New(&strategy.Backoff{Repeats: 2, Duration: time.Millisecond, Factor: 1.5})

	res, err := r.Run(t.Context(), Batch{Snapshot: testSnapshot(t, 2)})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Len(t, gen.calls, 3, "first variation retried once")
	assert.Equal(t, []byte("img-2"), res[0].Image)
	assert.NotEmpty(t, res[0].BatchID, "batch id generated")
	assert.Equal(t, res[0].BatchID, res[1].BatchID)
}

func TestRunner_Rejects(t *testing.T) {
	gen := &fakeGenerator{}
	r := testRunner(t, gen)

	snap := testSnapshot(t, 1)
	snap.Label = nil
	_, err := r.Run(t.Context(), Batch{Snapshot: snap})
	require.ErrorIs(t, err, ErrNoLabel)

	snap = testSnapshot(t, 1)
	snap.Settings.BackgroundID = "moon"
	_, err = r.Run(t.Context(), Batch{Snapshot: snap})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")

	snap = testSnapshot(t, 9)
	_, err = r.Run(t.Context(), Batch{Snapshot: snap})
	require.Error(t, err)
	assert.Empty(t, gen.calls)
}

func TestRunner_ContextCanceled(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, _ Request) (Image, error) {
		<-ctx.Done()
		return Image{}, ctx.Err()
	})
	r := testRunner(t, gen)
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, Batch{Snapshot: testSnapshot(t, 2)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
