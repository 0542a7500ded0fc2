package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/hondadog/internal/service"
)

// Options configures cookie and CSRF behaviour.
type Options struct {
	// CookieSecure marks every cookie Secure; enable behind HTTPS.
	CookieSecure bool
	// CSRFKey is the 32-byte key that signs CSRF tokens.
	CSRFKey []byte
	// StoreLimit caps how many stores the reservation pages list.
	StoreLimit int
}

type Server struct {
	service   *service.DaycareService
	templates embed.FS
	mux       *http.ServeMux
	handler   http.Handler
	tmplFuncs template.FuncMap
	opts      Options
	logger    *slog.Logger
}

func NewServer(svc *service.DaycareService, tmpl embed.FS, opts Options, logger *slog.Logger) *Server {
	if opts.StoreLimit <= 0 {
		opts.StoreLimit = 2
	}
	s := &Server{
		service:   svc,
		templates: tmpl,
		mux:       http.NewServeMux(),
		opts:      opts,
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"inc":      func(i int) int { return i + 1 },
			"sub":      func(a, b int) int { return a - b },
			"stars":    stars,
			"checked":  func(b bool) template.HTMLAttr { return attrIf(b, "checked") },
			"selected": func(a, b string) template.HTMLAttr { return attrIf(a == b, "selected") },
		},
	}
	s.registerRoutes()

	protect := csrf.Protect(opts.CSRFKey,
		csrf.Secure(opts.CookieSecure),
		csrf.Path("/"),
		csrf.CookieName("hondadog_csrf"),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	)
	s.handler = chimw.RequestID(chimw.RealIP(
		requestLogger(logger, chimw.Recoverer(
			securityHeaders(limitUploads(protect(instrument(s.mux))))))))
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.Handle("GET /static/", s.staticHandler())

	s.mux.HandleFunc("GET /account/login", s.handleLoginPage)
	s.mux.HandleFunc("POST /account/login", s.handleLogin)
	s.mux.HandleFunc("POST /account/logout", s.handleLogout)
	s.mux.HandleFunc("GET /account/register", s.handleRegisterPage)
	s.mux.HandleFunc("POST /account/register", s.handleRegister)
	s.mux.HandleFunc("GET /account/profile", s.requireLogin(s.handleUserSettingsPage))
	s.mux.HandleFunc("POST /account/profile", s.requireLogin(s.handleUserSettings))

	s.mux.HandleFunc("GET /setting", s.requireLogin(s.handleSettingsPage))
	s.mux.HandleFunc("GET /setting/user", s.requireLogin(s.handleUserSettingsPage))
	s.mux.HandleFunc("POST /setting/user", s.requireLogin(s.handleUserSettings))
	s.mux.HandleFunc("GET /setting/dog", s.requireLogin(s.handleDogSettingsPage))
	s.mux.HandleFunc("POST /setting/dog", s.requireLogin(s.handleDogSettings))

	s.mux.HandleFunc("GET /mypage", s.requireLogin(s.handleMyPage))
	s.mux.HandleFunc("GET /reserve/now", s.requireLogin(s.handleReservePage(service.ModeNow)))
	s.mux.HandleFunc("POST /reserve/now", s.requireLogin(s.handleReserve(service.ModeNow)))
	s.mux.HandleFunc("GET /reserve/schedule", s.requireLogin(s.handleReservePage(service.ModeScheduled)))
	s.mux.HandleFunc("POST /reserve/schedule", s.requireLogin(s.handleReserve(service.ModeScheduled)))
	s.mux.HandleFunc("GET /reserve/complete", s.requireLogin(s.handleReserveComplete))

	s.mux.HandleFunc("GET /locations/{id}", s.requireLogin(s.handleLocationDetail))
	s.mux.HandleFunc("POST /locations/{id}/favorite", s.requireLogin(s.handleToggleFavorite))
	s.mux.HandleFunc("GET /favorites", s.requireLogin(s.handleFavorites))

	s.mux.HandleFunc("GET /checkin", s.requireLogin(s.handleCheckInList))
	s.mux.HandleFunc("GET /checkin/qr/{id}", s.requireLogin(s.handleCheckInQR))
	s.mux.HandleFunc("GET /checkin/qr/{id}/code.png", s.requireLogin(s.handleCheckInQRImage))
}

func (s *Server) staticHandler() http.Handler {
	sub, err := fs.Sub(s.templates, "static")
	if err != nil {
		s.logger.Error("static assets unavailable", "error", err)
		return http.NotFoundHandler()
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "フォームの有効期限が切れました。もう一度お試しください。", http.StatusForbidden)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPage parses and executes a full-page template set with the given
// status. The layout fields (CSRF token, flash, login state) are added to
// data before execution.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data map[string]any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	data["CSRFField"] = csrf.TemplateField(r)
	data["CSRFToken"] = csrf.Token(r)
	data["Flash"] = s.popFlash(w, r)
	data["LoggedIn"] = tokenFromRequest(r) != ""
	if _, ok := data["ActiveNav"]; !ok {
		data["ActiveNav"] = ""
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

// stars renders a rating out of five, e.g. 4.5 as ★★★★☆.
func stars(rating float64) string {
	full := int(rating)
	if full > 5 {
		full = 5
	}
	if full < 0 {
		full = 0
	}
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}

func attrIf(ok bool, attr string) template.HTMLAttr {
	if ok {
		return template.HTMLAttr(attr)
	}
	return ""
}
