package web

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vbonduro/hondadog/internal/api"
)

const (
	tokenCookie = "hondadog_token"
	flashCookie = "hondadog_flash"
)

type ctxKey int

const tokenKey ctxKey = iota

// setTokenCookie stores the backend bearer token. When the token is a JWT
// with an exp claim the cookie expires with it; otherwise it lasts for the
// browser session. The signature is not checked here because the backend
// verifies the token on every call.
func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if exp, ok := tokenExpiry(token); ok {
		c.Expires = exp
	}
	http.SetCookie(w, c)
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Server) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(tokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// tokenFrom returns the token requireLogin placed in the context.
func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// requireLogin sends visitors without a token cookie to the login page.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			s.redirect(w, r, "/account/login")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), tokenKey, token)))
	}
}

// redirect issues a 303, or an HX-Redirect for htmx requests so the whole
// page navigates instead of swapping the target.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

type flashKind string

const (
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
)

// Flash is a one-shot message shown at the top of the next rendered page.
type Flash struct {
	Kind    flashKind
	Message string
}

func (s *Server) setFlash(w http.ResponseWriter, kind flashKind, msg string) {
	http.SetCookie(w, s.newFlashCookie(base64.RawURLEncoding.EncodeToString([]byte(string(kind)+"|"+msg)), 60))
}

func (s *Server) newFlashCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// popFlash returns the pending flash, if any, and clears it.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, s.newFlashCookie("", -1))

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(string(raw), "|")
	if !ok || msg == "" {
		return nil
	}
	return &Flash{Kind: flashKind(kind), Message: msg}
}

// handleLoadError handles a failed backend lookup while building a page. An
// expired or rejected token logs the user out; anything else is a 502.
func (s *Server) handleLoadError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if s.loggedOut(w, r, err) {
		return
	}
	if errors.Is(err, api.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	s.logger.Error(msg, "path", r.URL.Path, "error", err)
	http.Error(w, msg, http.StatusBadGateway)
}

// handleSubmitError handles a failed form submission: the message is flashed
// and the user is sent back to the form.
func (s *Server) handleSubmitError(w http.ResponseWriter, r *http.Request, err error, msg, back string) {
	if s.loggedOut(w, r, err) {
		return
	}
	s.logger.Error(msg, "path", r.URL.Path, "error", err)
	s.setFlash(w, flashError, msg)
	s.redirect(w, r, back)
}

// loggedOut clears the session and redirects to the login page when the
// backend rejected the token.
func (s *Server) loggedOut(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	s.clearTokenCookie(w)
	s.setFlash(w, flashError, "ログインの有効期限が切れました。再度ログインしてください。")
	s.redirect(w, r, "/account/login")
	return true
}
