package gallery

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory is an in-process gallery, lost on restart
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]Mockup // newest first
}

// NewMemory makes an empty in-memory gallery
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]Mockup)}
}

// Publish prepends the batch to the session gallery
func (g *Memory) Publish(_ context.Context, sessionID string, mockups []Mockup) error {
	if err := checkBatch(sessionID, mockups); err != nil {
		return fmt.Errorf("can't publish: %w", err)
	}
	if len(mockups) == 0 {
		return nil
	}
	now := time.Now()
	batch := make([]Mockup, len(mockups))
	for i, m := range mockups {
		m.PublishedAt = now
		batch[i] = m
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionID] = append(batch, g.sessions[sessionID]...)
	return nil
}

// List returns session mockups, newest batch first, without image data
func (g *Memory) List(_ context.Context, sessionID string) ([]Mockup, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := make([]Mockup, 0, len(g.sessions[sessionID]))
	for _, m := range g.sessions[sessionID] {
		m.Image = nil
		res = append(res, m)
	}
	return res, nil
}

// Get returns mockup with its image
func (g *Memory) Get(_ context.Context, sessionID, id string) (Mockup, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx := slices.IndexFunc(g.sessions[sessionID], func(m Mockup) bool { return m.ID == id })
	if idx < 0 {
		return Mockup{}, fmt.Errorf("mockup %s: %w", id, ErrNotFound)
	}
	return g.sessions[sessionID][idx], nil
}

// Clear removes all session mockups and returns how many were removed
func (g *Memory) Clear(_ context.Context, sessionID string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.sessions[sessionID])
	delete(g.sessions, sessionID)
	return n, nil
}

// Close does nothing for in-memory gallery
func (g *Memory) Close() error { return nil }
