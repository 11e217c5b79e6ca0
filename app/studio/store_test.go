package studio

import (
	"fmt"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_New(t *testing.T) {
	st := NewStore(DefaultSettings())
	cur := st.Current()
	assert.Equal(t, DefaultSettings(), cur.Settings)
	assert.Nil(t, cur.Label)
	assert.Equal(t, Position{Cursor: 0, Len: 1}, st.Position())
}

func TestStore_Scenario(t *testing.T) {
	st := NewStore(DefaultSettings())
	l1, err := NewLabel("l1.png", makePNG(t, 2, 2, color.White))
	require.NoError(t, err)

	st.SetLabel(l1)
	st.ApplyChange(func(s Settings) Settings { s.Finish = "glossy"; return s })
	st.ApplyChange(func(s Settings) Settings { s.BodyColor = "#000000"; return s })
	assert.Equal(t, Position{Cursor: 3, Len: 4, CanUndo: true}, st.Position())

	_, ok := st.Undo()
	require.True(t, ok)
	cur, ok := st.Undo()
	require.True(t, ok)
	assert.Equal(t, 1, st.Position().Cursor)
	assert.Equal(t, DefaultSettings(), cur.Settings)
	assert.Same(t, l1, cur.Label)
	assert.Equal(t, cur, st.Current())

	cur, ok = st.Redo()
	require.True(t, ok)
	assert.Equal(t, 2, st.Position().Cursor)
	assert.Equal(t, "glossy", cur.Settings.Finish)
	assert.Equal(t, "#FFFFFF", cur.Settings.BodyColor)
	assert.Same(t, l1, cur.Label)
}

func TestStore_RemoveLabelAndUndo(t *testing.T) {
	st := NewStore(DefaultSettings())
	l1, err := NewLabel("l1.png", makePNG(t, 2, 2, color.White))
	require.NoError(t, err)
	st.SetLabel(l1)

	cur := st.SetLabel(nil)
	assert.Nil(t, cur.Label)
	assert.Equal(t, 3, st.Position().Len)

	cur, ok := st.Undo()
	require.True(t, ok)
	assert.Same(t, l1, cur.Label, "undo restores the same label reference")
}

func TestStore_DuplicateChange(t *testing.T) {
	st := NewStore(DefaultSettings())
	st.Replace(DefaultSettings())
	assert.Equal(t, Position{Cursor: 0, Len: 1}, st.Position())

	st.ApplyChange(func(s Settings) Settings { s.Variations = 2; return s })
	before := st.Position()
	st.ApplyChange(func(s Settings) Settings { s.Variations = 2; return s })
	assert.Equal(t, before, st.Position())

	st.SetLabel(nil)
	assert.Equal(t, before, st.Position())
}

func TestStore_SameLabelContentKeepsReference(t *testing.T) {
	st := NewStore(DefaultSettings())
	data := makePNG(t, 3, 3, color.Black)
	l1, err := NewLabel("first.png", data)
	require.NoError(t, err)
	l2, err := NewLabel("second.png", data)
	require.NoError(t, err)

	st.SetLabel(l1)
	cur := st.SetLabel(l2)
	assert.Equal(t, 2, st.Position().Len)
	assert.Same(t, l1, cur.Label, "duplicate content keeps the head reference")
}

func TestStore_UndoAfterNewEdit(t *testing.T) {
	st := NewStore(DefaultSettings())
	st.ApplyChange(func(s Settings) Settings { s.Material = "metal"; return s })
	st.ApplyChange(func(s Settings) Settings { s.Material = "paper"; return s })
	st.Undo()
	st.ApplyChange(func(s Settings) Settings { s.CapColor = "#D4AF37"; return s })

	cur, ok := st.Redo()
	assert.False(t, ok)
	assert.Equal(t, "metal", cur.Settings.Material)
	assert.Equal(t, "#D4AF37", cur.Settings.CapColor)
	assert.Equal(t, Position{Cursor: 2, Len: 3, CanUndo: true}, st.Position())
}

func TestStore_Concurrent(t *testing.T) {
	st := NewStore(DefaultSettings())
	wg := sync.WaitGroup{}
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.ApplyChange(func(s Settings) Settings { s.BodyColor = fmt.Sprintf("#%06d", i); return s })
			if i%3 == 0 {
				st.Undo()
			}
			if i%5 == 0 {
				st.Redo()
			}
		}()
	}
	wg.Wait()

	pos := st.Position()
	assert.GreaterOrEqual(t, pos.Cursor, 0)
	assert.Less(t, pos.Cursor, pos.Len)
	assert.True(t, st.history.Head().Equal(st.Current()))
}

func TestStore_StateConsistentWithWriter(t *testing.T) {
	st := NewStore(DefaultSettings())
	snap, pos := st.State()
	assert.Equal(t, DefaultSettings(), snap.Settings)
	assert.Equal(t, Position{Cursor: 0, Len: 1}, pos)

	// entry k of the log has Variations k+1, so the snapshot tells where the cursor must be
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 2; i <= 500; i++ {
			st.ApplyChange(func(s Settings) Settings { s.Variations = i; return s })
		}
	}()

	for {
		snap, pos := st.State()
		require.Equal(t, pos.Cursor+1, snap.Settings.Variations, "snapshot and position read together")
		require.Equal(t, pos.Len, pos.Cursor+1)
		select {
		case <-done:
			snap, pos = st.State()
			assert.Equal(t, 500, snap.Settings.Variations)
			assert.Equal(t, 499, pos.Cursor)
			return
		default:
		}
	}
}
