package web

import (
	"net/http"

	"github.com/vbonduro/hondadog/internal/forms"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if tokenFromRequest(r) != "" {
		http.Redirect(w, r, "/mypage", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/account/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if tokenFromRequest(r) != "" {
		http.Redirect(w, r, "/mypage", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, forms.LoginForm{}, nil, "")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, form forms.LoginForm, errs forms.Errors, loginError string) {
	form.Password = ""
	if err := s.renderPage(w, r, status,
		map[string]any{"Form": form, "Errors": errs, "LoginError": loginError},
		"base.html", "pages/login.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form := forms.NewLoginForm(r.PostForm)
	if errs := form.Validate(); errs.Any() {
		s.renderLogin(w, r, http.StatusUnprocessableEntity, form, errs, "")
		return
	}

	token, err := s.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		s.logger.Warn("login failed", "error", err)
		s.renderLogin(w, r, http.StatusUnauthorized, form, nil, forms.LoginFailedMessage)
		return
	}

	s.setTokenCookie(w, token)
	http.Redirect(w, r, "/mypage", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearTokenCookie(w)
	s.redirect(w, r, "/account/login")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderUserForm(w, r, http.StatusOK, "register", forms.UserForm{}, nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form := forms.NewUserForm(r.PostForm)
	if errs := form.Validate(true); errs.Any() {
		s.renderUserForm(w, r, http.StatusUnprocessableEntity, "register", form, errs)
		return
	}

	if err := s.service.Register(r.Context(), form.User()); err != nil {
		s.handleSubmitError(w, r, err, "登録に失敗しました", "/account/register")
		return
	}

	s.setFlash(w, flashSuccess, "登録完了！")
	http.Redirect(w, r, "/account/login", http.StatusSeeOther)
}

// renderUserForm renders the shared registration/profile form. mode is
// "register" or "profile".
func (s *Server) renderUserForm(w http.ResponseWriter, r *http.Request, status int, mode string, form forms.UserForm, errs forms.Errors) {
	form.Password = ""
	if err := s.renderPage(w, r, status,
		map[string]any{
			"Mode":        mode,
			"Form":        form,
			"Errors":      errs,
			"Genders":     forms.Genders,
			"Prefectures": form.PrefectureOptions(),
			"ActiveNav":   "setting",
		},
		"base.html", "pages/user_form.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// parseForm parses the urlencoded body, answering 400 when it is malformed.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	return true
}
