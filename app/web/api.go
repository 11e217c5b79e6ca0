package web

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/mockstudio/app/gallery"
	"github.com/umputun/mockstudio/app/studio"
	"github.com/umputun/mockstudio/app/web/enums"
)

// APIStateResponse is the JSON response for /api/v1/state
type APIStateResponse struct {
	Settings  studio.Settings `json:"settings"`
	Label     *APILabel       `json:"label,omitempty"`
	History   studio.Position `json:"history"`
	Batch     APIBatch        `json:"batch"`
	Timestamp time.Time       `json:"timestamp"`
}

// APILabel describes uploaded label without image data
type APILabel struct {
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int       `json:"size"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Digest     string    `json:"digest"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// APIBatch describes the last generation batch
type APIBatch struct {
	ID        string            `json:"id,omitempty"`
	Status    enums.BatchStatus `json:"status"`
	Done      int               `json:"done"`
	Total     int               `json:"total"`
	StartedAt time.Time         `json:"started_at,omitzero"`
	Notice    string            `json:"notice,omitempty"`
}

// APIGalleryResponse is the JSON response for /api/v1/gallery
type APIGalleryResponse struct {
	Mockups []APIMockup `json:"mockups"`
	Total   int         `json:"total"`
}

// APIMockup is a gallery entry with links to the image
type APIMockup struct {
	gallery.Mockup
	Filename    string `json:"filename"`
	ImageURL    string `json:"image_url"`
	DownloadURL string `json:"download_url"`
}

// handleAPIState returns current settings, label info, history position and batch status
func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	snap, pos := ws.store.State()
	batch := ws.batchStatus()

	resp := APIStateResponse{
		Settings: snap.Settings,
		History:  pos,
		Batch: APIBatch{ID: batch.ID, Status: batch.Status, Done: batch.Done, Total: batch.Total,
			StartedAt: batch.StartedAt, Notice: batch.Notice},
		Timestamp: time.Now(),
	}
	if l := snap.Label; l != nil {
		resp.Label = &APILabel{Name: l.Name, MimeType: l.MimeType, Size: l.Size(), Width: l.Width, Height: l.Height,
			Digest: l.Digest, UploadedAt: l.UploadedAt}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPIGallery returns gallery of the session, newest batch first
func (s *Server) handleAPIGallery(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	mockups, err := s.gallery.List(r.Context(), ws.id)
	if err != nil {
		log.Printf("[ERROR] failed to list gallery of %s: %v", shortID(ws.id), err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load gallery")
		return
	}
	resp := APIGalleryResponse{Mockups: make([]APIMockup, 0, len(mockups)), Total: len(mockups)}
	for _, m := range mockups {
		img := s.url("/gallery/" + m.ID + "/image")
		resp.Mockups = append(resp.Mockups, APIMockup{Mockup: m, Filename: gallery.Filename(m),
			ImageURL: img, DownloadURL: img + "?download=1"})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPICatalog returns the catalog
func (s *Server) handleAPICatalog(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
