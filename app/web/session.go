package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/mockstudio/app/studio"
	"github.com/umputun/mockstudio/app/web/enums"
)

const sessionCookie = "mockstudio-session"

// failedNotice is the only message shown for a failed batch
const failedNotice = "Production Failed. Please ensure your configuration is valid."

// workspace is the per-session state: configuration store with its history and the last batch
type workspace struct {
	id    string
	store *studio.Store

	mu    sync.Mutex // protects batch
	batch batchState
}

// runningBatch is an in-flight batch with the workspace it belongs to
type runningBatch struct {
	id string
	ws *workspace
}

// batchState describes the last generation batch of a workspace
type batchState struct {
	ID        string
	Status    enums.BatchStatus
	Done      int
	Total     int
	StartedAt time.Time
	Notice    string
	announced bool // finished batch already reported to the client
}

func newWorkspace(id string, initial studio.Settings) *workspace {
	return &workspace{id: id, store: studio.NewStore(initial),
		batch: batchState{Status: enums.BatchStatusIdle}}
}

// startBatch marks batch as running, false if another batch is still running
func (ws *workspace) startBatch(id string, total int) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.batch.Status == enums.BatchStatusRunning {
		return false
	}
	ws.batch = batchState{ID: id, Status: enums.BatchStatusRunning, Total: total, StartedAt: time.Now()}
	return true
}

func (ws *workspace) progress(done, _ int) {
	ws.mu.Lock()
	ws.batch.Done = done
	ws.mu.Unlock()
}

// finishBatch sets final status, failed if notice is not empty
func (ws *workspace) finishBatch(notice string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.batch.Status = enums.BatchStatusDone
	if notice != "" {
		ws.batch.Status = enums.BatchStatusFailed
	}
	ws.batch.Notice = notice
	ws.batch.announced = false
}

// batchStatus returns a copy of the batch state
func (ws *workspace) batchStatus() batchState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.batch
}

// announceBatch returns a copy of the batch state, the second value is true only once per finished batch
func (ws *workspace) announceBatch() (batchState, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	res := ws.batch
	finished := ws.batch.Status == enums.BatchStatusDone || ws.batch.Status == enums.BatchStatusFailed
	if finished && !ws.batch.announced {
		ws.batch.announced = true
		return res, true
	}
	return res, false
}

// workspace returns the workspace of the request session, a new one is made for unknown sessions.
// Known but expired ids, e.g. after restart, get a fresh workspace under the same id
// so a persistent gallery stays reachable.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) *workspace {
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	s.sessionsMu.Lock()
	ws, ok := s.sessions.Get(id)
	if !ok {
		ws, ok = s.runningWorkspace(id) // evicted while generating, take it back
	}
	if !ok {
		ws = newWorkspace(id, s.initial)
		log.Printf("[DEBUG] new session %s", shortID(id))
	}
	s.sessions.Set(id, ws, 0) // extends expiration
	s.sessionsMu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     s.cookiePath(),
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   isSecure(r),
	})
	return ws
}

// beginBatch registers a running batch of the workspace session. Returns false if the session
// already has a batch in flight, including one started by an evicted workspace of the same session.
func (s *Server) beginBatch(ws *workspace, batchID string, total int) bool {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if _, busy := s.running[ws.id]; busy {
		return false
	}
	if !ws.startBatch(batchID, total) {
		return false
	}
	s.running[ws.id] = runningBatch{id: batchID, ws: ws}
	return true
}

// endBatch removes the batch from the running set
func (s *Server) endBatch(sessionID, batchID string) {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	if rb, ok := s.running[sessionID]; ok && rb.id == batchID {
		delete(s.running, sessionID)
	}
}

func (s *Server) runningWorkspace(id string) (*workspace, bool) {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()
	rb, ok := s.running[id]
	return rb.ws, ok
}

// onSessionEvicted drops the gallery of expired session unless it is persistent
// or the session is still generating
func (s *Server) onSessionEvicted(id string, _ *workspace) {
	log.Printf("[DEBUG] session %s expired", shortID(id))
	if s.keepGallery {
		return
	}
	if _, busy := s.runningWorkspace(id); busy {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.gallery.Clear(ctx, id)
	if err != nil {
		log.Printf("[WARN] failed to clear gallery of expired session %s: %v", shortID(id), err)
		return
	}
	if n > 0 {
		log.Printf("[INFO] removed %d mockups of expired session %s", n, shortID(id))
	}
}

// cleanupSessions evicts expired sessions periodically
func (s *Server) cleanupSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.DeleteExpired()
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
