package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"golang.org/x/crypto/bcrypt"

	"github.com/umputun/mockstudio/app/web/enums"
)

const (
	authCookie       = "mockstudio-auth"
	secureAuthCookie = "__Host-mockstudio-auth"
	basicAuthUser    = "mockstudio"
)

// loginLimiter allows a burst of 5 login attempts per client, then one per 10 seconds
var loginLimiter = func() *limiter.Limiter {
	lmt := tollbooth.NewLimiter(0.1, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetBurst(5)
	lmt.SetMessage("Too many login attempts, try again later")
	return lmt
}()

type loginData struct {
	Error   string
	Theme   enums.Theme
	BaseURL string
}

// handleLoginForm displays the login form
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, http.StatusOK, loginData{Theme: s.getTheme(r), BaseURL: s.baseURL})
}

// handleLogin processes the login form submission
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		s.renderLogin(w, http.StatusUnauthorized, loginData{Error: "Password is required", Theme: s.getTheme(r), BaseURL: s.baseURL})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		s.renderLogin(w, http.StatusUnauthorized, loginData{Error: "Invalid password", Theme: s.getTheme(r), BaseURL: s.baseURL})
		return
	}

	secure := isSecure(r)
	cookie := &http.Cookie{
		Name:     authCookie,
		Value:    s.authToken(),
		Path:     s.cookiePath(),
		MaxAge:   7 * 24 * 60 * 60, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		cookie.Name = secureAuthCookie
		cookie.Path = "/" // required by __Host- prefix
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, cookie)
	http.Redirect(w, r, s.url("/"), http.StatusSeeOther)
}

// handleLogout clears the auth cookie
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{authCookie, secureAuthCookie} {
		c := &http.Cookie{Name: name, Value: "", Path: s.cookiePath(), MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode}
		if name == secureAuthCookie {
			c.Path, c.Secure = "/", true
		}
		http.SetCookie(w, c)
	}
	w.Header().Set("HX-Refresh", "true")
	http.Redirect(w, r, s.url("/login"), http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, code int, data loginData) {
	tmpl := s.templates["login"]
	if tmpl == nil {
		log.Printf("[ERROR] login template not found in templates map")
		http.Error(w, "Login template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	if err := tmpl.ExecuteTemplate(w, "login", data); err != nil {
		log.Printf("[ERROR] failed to render login template: %v", err)
	}
}

// authMiddleware checks for auth cookie or falls back to basic auth
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" || strings.HasPrefix(r.URL.Path, "/static/") {
			next.ServeHTTP(w, r)
			return
		}

		for _, name := range []string{secureAuthCookie, authCookie} {
			if c, err := r.Cookie(name); err == nil && s.validAuthToken(c.Value) {
				next.ServeHTTP(w, r)
				return
			}
		}

		// basic auth for API clients
		if username, password, ok := r.BasicAuth(); ok && username == basicAuthUser {
			if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		if r.Header.Get("Accept") == "" || strings.Contains(r.Header.Get("Accept"), "text/html") {
			http.Redirect(w, r, s.url("/login"), http.StatusSeeOther)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="Mockstudio"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

// authToken derives cookie token from the password hash
func (s *Server) authToken() string {
	h := sha256.Sum256([]byte(s.passwordHash + "mockstudio-auth-token"))
	return hex.EncodeToString(h[:])
}

func (s *Server) validAuthToken(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken())) == 1
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
