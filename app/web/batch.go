package web

import (
	"context"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/mockstudio/app/generate"
	"github.com/umputun/mockstudio/app/notify"
	"github.com/umputun/mockstudio/app/studio"
)

// handleGenerate starts a generation batch for the current snapshot. The batch runs in background,
// the client polls /api/status. Only one batch per session can run at a time.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	snap := ws.store.Current()
	if !snap.HasLabel() {
		s.renderNotice(w, http.StatusBadRequest, "Upload a label first")
		return
	}
	if err := s.catalog.CheckSettings(snap.Settings); err != nil {
		log.Printf("[WARN] session %s has invalid settings: %v", shortID(ws.id), err)
		s.renderNotice(w, http.StatusBadRequest, failedNotice)
		return
	}

	batchID := uuid.NewString()
	if !s.beginBatch(ws, batchID, snap.Settings.Variations) {
		s.renderNotice(w, http.StatusConflict, "Generation is already in progress")
		return
	}
	log.Printf("[INFO] session %s started batch %s, %d variation(s) of %s", shortID(ws.id), batchID,
		snap.Settings.Variations, snap.Settings.ProductTypeID)

	s.batches.Go(func(context.Context) { s.runBatch(ws, batchID, snap) })
	s.renderStatus(w, r, ws)
}

// runBatch renders all variations and publishes them to the gallery at once.
// History is not touched, the snapshot is the one captured at submit time.
func (s *Server) runBatch(ws *workspace, batchID string, snap studio.Snapshot) {
	st := time.Now()
	ev := notify.Event{BatchID: batchID, Product: snap.Settings.ProductTypeID, Variations: snap.Settings.Variations}
	if p, err := s.catalog.Product(snap.Settings.ProductTypeID); err == nil {
		ev.Product = p.Name
	}

	mockups, err := s.runner.Run(s.ctx, generate.Batch{ID: batchID, Snapshot: snap, Progress: ws.progress})
	if err == nil {
		err = s.gallery.Publish(s.ctx, ws.id, mockups)
	}
	ev.Duration = time.Since(st).Truncate(time.Millisecond)

	if err != nil {
		log.Printf("[WARN] batch %s of session %s failed: %v", batchID, shortID(ws.id), err)
		s.metrics.observe("failed", 0, ev.Duration.Seconds())
		ws.finishBatch(failedNotice)
		s.endBatch(ws.id, batchID)
		ev.Error = err.Error()
		if s.notifier != nil {
			s.notifier.BatchFailed(s.ctx, ev)
		}
		return
	}

	log.Printf("[INFO] batch %s of session %s published %d mockup(s) in %v", batchID, shortID(ws.id), len(mockups), ev.Duration)
	s.metrics.observe("done", len(mockups), ev.Duration.Seconds())
	ws.finishBatch("")
	s.endBatch(ws.id, batchID)
	if s.notifier != nil {
		s.notifier.BatchCompleted(s.ctx, ev)
	}
}

// handleStatus renders batch status, polled by the client while a batch is running
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	s.renderStatus(w, r, ws)
}

// renderStatus renders the status partial, triggers gallery refresh once the batch is finished
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, ws *workspace) {
	data := s.newTemplateData(r, ws)
	batch, finished := ws.announceBatch()
	data.Batch = batch
	data.IsOOB = true // refresh generate button along with the status
	if finished {
		w.Header().Set("HX-Trigger", "gallery-updated")
	}
	s.render(w, "partials", "status", data)
}
