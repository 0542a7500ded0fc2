package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/hondadog/internal/forms"
	"github.com/vbonduro/hondadog/internal/service"
)

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{"ActiveNav": "setting"},
		"base.html", "pages/settings.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleUserSettingsPage(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.CurrentUser(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		s.handleLoadError(w, r, err, "ユーザー情報の取得に失敗しました")
		return
	}
	s.renderUserForm(w, r, http.StatusOK, "profile", forms.UserFormFrom(user), nil)
}

func (s *Server) handleUserSettings(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	form := forms.NewUserForm(r.PostForm)
	if errs := form.Validate(false); errs.Any() {
		s.renderUserForm(w, r, http.StatusUnprocessableEntity, "profile", form, errs)
		return
	}

	if err := s.service.UpdateProfile(r.Context(), tokenFrom(r.Context()), form.User()); err != nil {
		s.handleSubmitError(w, r, err, "更新に失敗しました", r.URL.Path)
		return
	}

	s.setFlash(w, flashSuccess, "更新しました")
	http.Redirect(w, r, "/mypage", http.StatusSeeOther)
}

func (s *Server) handleDogSettingsPage(w http.ResponseWriter, r *http.Request) {
	s.renderDogForm(w, r, http.StatusOK, forms.DogForm{}, nil)
}

func (s *Server) renderDogForm(w http.ResponseWriter, r *http.Request, status int, form forms.DogForm, errs forms.Errors) {
	dogs, err := s.service.MyDogs(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		s.handleLoadError(w, r, err, "愛犬情報の取得に失敗しました")
		return
	}
	if err := s.renderPage(w, r, status,
		map[string]any{
			"Form":      form,
			"Errors":    errs,
			"Dogs":      dogs,
			"DogTypes":  forms.DogTypes,
			"ActiveNav": "setting",
		},
		"base.html", "pages/dog_form.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleDogSettings(w http.ResponseWriter, r *http.Request) {
	photo, err := readPhoto(r, "photo", s.logger)
	if err != nil {
		var perr *photoError
		if errors.As(err, &perr) {
			form := forms.NewDogForm(r.PostForm)
			s.renderDogForm(w, r, http.StatusUnprocessableEntity, form, forms.Errors{"photo": perr.msg})
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form := forms.NewDogForm(r.PostForm)
	if errs := form.Validate(); errs.Any() {
		s.renderDogForm(w, r, http.StatusUnprocessableEntity, form, errs)
		return
	}

	_, err = s.service.RegisterDog(r.Context(), tokenFrom(r.Context()), form.Dog(), photo)
	switch {
	case errors.Is(err, service.ErrPhotoUpload):
		s.logger.Error("dog photo upload failed", "error", err)
		s.setFlash(w, flashError, "愛犬を登録しましたが、写真のアップロードに失敗しました")
	case err != nil:
		s.handleSubmitError(w, r, err, "登録に失敗しました", "/setting/dog")
		return
	default:
		s.setFlash(w, flashSuccess, "登録完了！")
	}
	http.Redirect(w, r, "/setting/dog", http.StatusSeeOther)
}
