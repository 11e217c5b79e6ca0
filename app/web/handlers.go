package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/mockstudio/app/gallery"
	"github.com/umputun/mockstudio/app/studio"
	"github.com/umputun/mockstudio/app/web/enums"
)

// newTemplateData creates a TemplateData with common and workspace fields populated
func (s *Server) newTemplateData(r *http.Request, ws *workspace) TemplateData {
	snap, pos := ws.store.State()
	data := TemplateData{
		BaseURL:     s.baseURL,
		Version:     shortVersion(s.version),
		CurrentYear: time.Now().Year(),
		Theme:       s.getTheme(r),
		AuthEnabled: s.passwordHash != "",
		Catalog:     s.catalog,
		Settings:    snap.Settings,
		Label:       snap.Label,
		Position:    pos,
		Products:    s.catalog.ProductsIn(snap.Settings.Category),
	}
	if p, err := s.catalog.Product(snap.Settings.ProductTypeID); err == nil {
		data.Sizes = p.Sizes
	}
	data.Batch = ws.batchStatus()
	return data
}

// handleDashboard renders the configurator page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	data := s.newTemplateData(r, ws)
	mockups, err := s.gallery.List(r.Context(), ws.id)
	if err != nil {
		log.Printf("[WARN] failed to list gallery of %s: %v", shortID(ws.id), err)
	}
	data.Mockups = mockups
	s.render(w, "base.html", "base", data)
}

// renderStudio renders the configurator panel after a change
func (s *Server) renderStudio(w http.ResponseWriter, r *http.Request, ws *workspace) {
	s.render(w, "partials", "studio", s.newTemplateData(r, ws))
}

// renderNotice renders a short message into the notice area with the given status code
func (s *Server) renderNotice(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("HX-Retarget", "#notice")
	w.Header().Set("HX-Reswap", "innerHTML")
	s.renderCode(w, code, "partials", "notice", TemplateData{Notice: msg})
}

// handleSettingsChange applies a single settings field change
func (s *Server) handleSettingsChange(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	field, value := r.FormValue("field"), r.FormValue("value")
	update, err := s.catalog.Change(field, value)
	if err != nil {
		log.Printf("[DEBUG] rejected change %s=%q: %v", field, value, err)
		s.renderNotice(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s value", field))
		return
	}
	ws.store.ApplyChange(update)
	s.renderStudio(w, r, ws)
}

// handleCategoryChange switches category and selects its first product and size
func (s *Server) handleCategoryChange(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	category := r.FormValue("value")
	if !s.catalog.HasCategory(category) {
		s.renderNotice(w, http.StatusBadRequest, "Unknown category")
		return
	}
	ws.store.ApplyChange(func(st studio.Settings) studio.Settings { return s.catalog.SelectCategory(st, category) })
	s.renderStudio(w, r, ws)
}

// handleProductChange switches product type and selects its first size
func (s *Server) handleProductChange(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	id := r.FormValue("value")
	if _, err := s.catalog.Product(id); err != nil {
		s.renderNotice(w, http.StatusBadRequest, "Unknown product type")
		return
	}
	ws.store.ApplyChange(func(st studio.Settings) studio.Settings { return s.catalog.SelectProduct(st, id) })
	s.renderStudio(w, r, ws)
}

// handleLabelUpload accepts label image as multipart "label" field
func (s *Server) handleLabelUpload(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	file, header, err := r.FormFile("label")
	if err != nil {
		var mbErr *http.MaxBytesError
		if errors.As(err, &mbErr) {
			s.renderNotice(w, http.StatusRequestEntityTooLarge, "Label image is larger than 10MB")
			return
		}
		s.renderNotice(w, http.StatusBadRequest, "Label image is required")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close uploaded file: %v", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(file, studio.MaxLabelSize+1))
	if err != nil {
		log.Printf("[WARN] failed to read uploaded label: %v", err)
		s.renderNotice(w, http.StatusBadRequest, "Failed to read label image")
		return
	}

	label, err := studio.NewLabel(header.Filename, data)
	switch {
	case errors.Is(err, studio.ErrLabelTooLarge):
		s.renderNotice(w, http.StatusRequestEntityTooLarge, "Label image is larger than 10MB")
		return
	case errors.Is(err, studio.ErrUnsupportedImage):
		s.renderNotice(w, http.StatusUnsupportedMediaType, "Only PNG, JPEG and WebP images are supported")
		return
	case err != nil:
		log.Printf("[WARN] failed to make label: %v", err)
		s.renderNotice(w, http.StatusBadRequest, "Invalid label image")
		return
	}

	ws.store.SetLabel(label)
	log.Printf("[INFO] session %s uploaded label %s", shortID(ws.id), label)
	s.renderStudio(w, r, ws)
}

// handleLabelRemove drops the label, undo brings it back
func (s *Server) handleLabelRemove(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	ws.store.SetLabel(nil)
	s.renderStudio(w, r, ws)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	ws.store.Undo()
	s.renderStudio(w, r, ws)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	ws.store.Redo()
	s.renderStudio(w, r, ws)
}

// handleLabelImage serves the current label image
func (s *Server) handleLabelImage(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	label := ws.store.Current().Label
	if label == nil {
		http.Error(w, "Label not uploaded", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", label.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(label.Data); err != nil {
		log.Printf("[WARN] failed to write label image: %v", err)
	}
}

// handleGallery renders the gallery partial
func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	s.renderGallery(w, r, ws)
}

// handleGalleryClear removes all mockups of the session
func (s *Server) handleGalleryClear(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	n, err := s.gallery.Clear(r.Context(), ws.id)
	if err != nil {
		log.Printf("[ERROR] failed to clear gallery of %s: %v", shortID(ws.id), err)
		s.renderNotice(w, http.StatusInternalServerError, "Failed to clear gallery")
		return
	}
	log.Printf("[INFO] session %s cleared %d mockups", shortID(ws.id), n)
	s.renderGallery(w, r, ws)
}

func (s *Server) renderGallery(w http.ResponseWriter, r *http.Request, ws *workspace) {
	mockups, err := s.gallery.List(r.Context(), ws.id)
	if err != nil {
		log.Printf("[ERROR] failed to list gallery of %s: %v", shortID(ws.id), err)
		s.renderNotice(w, http.StatusInternalServerError, "Failed to load gallery")
		return
	}
	data := s.newTemplateData(r, ws)
	data.Mockups = mockups
	s.render(w, "partials", "gallery", data)
}

// handleMockupImage serves mockup image, as attachment with a file name if download=1
func (s *Server) handleMockupImage(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	m, err := s.gallery.Get(r.Context(), ws.id, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, gallery.ErrNotFound) {
			http.Error(w, "Mockup not found", http.StatusNotFound)
			return
		}
		log.Printf("[ERROR] failed to get mockup %s: %v", r.PathValue("id"), err)
		http.Error(w, "Failed to load mockup", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", m.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", gallery.Filename(m)))
	}
	if _, err := w.Write(m.Image); err != nil {
		log.Printf("[WARN] failed to write mockup image: %v", err)
	}
}

// handleThemeToggle switches between light and dark theme
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	newTheme := enums.ThemeDark
	if s.getTheme(r) == enums.ThemeDark {
		newTheme = enums.ThemeLight
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "theme",
		Value:    newTheme.String(),
		Path:     s.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("HX-Refresh", "true")
	w.WriteHeader(http.StatusOK)
}
