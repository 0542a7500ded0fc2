package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vbonduro/hondadog/internal/domain"
	"github.com/vbonduro/hondadog/internal/service"
	"github.com/vbonduro/hondadog/internal/timeslot"
)

func (s *Server) handleMyPage(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab != "pickup" {
		tab = "drop"
	}

	cards, err := s.service.Dashboard(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		s.handleLoadError(w, r, err, "予約情報の取得に失敗しました")
		return
	}

	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{"Reservations": cards, "Tab": tab, "ActiveNav": "home"},
		"base.html", "pages/mypage.html", "partials/reservation_card.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// handleReservePage renders the reservation form. ModeNow offers the
// 今日/明日 tabs; ModeScheduled offers a date picker.
func (s *Server) handleReservePage(mode service.ReserveMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := tokenFrom(ctx)
		q := r.URL.Query()

		user, err := s.service.CurrentUser(ctx, token)
		if err != nil {
			s.handleLoadError(w, r, err, "ユーザー情報の取得に失敗しました")
			return
		}
		stores, err := s.service.Stores(ctx, user.ID, s.opts.StoreLimit)
		if err != nil {
			s.handleLoadError(w, r, err, "店舗情報の取得に失敗しました")
			return
		}
		dogs, err := s.service.MyDogs(ctx, token)
		if err != nil {
			s.handleLoadError(w, r, err, "愛犬情報の取得に失敗しました")
			return
		}

		now := time.Now()
		date := q.Get("date")
		if date == "" {
			date = timeslot.Today(now)
		}
		day := q.Get("day")
		if day != "tomorrow" {
			day = "today"
		}
		selected, _ := strconv.ParseInt(q.Get("location_id"), 10, 64)
		if selected == 0 && len(stores) > 0 {
			selected = stores[0].ID
		}

		if err := s.renderPage(w, r, http.StatusOK,
			map[string]any{
				"Mode":       string(mode),
				"Action":     reservePath(mode),
				"Day":        day,
				"Date":       date,
				"MinDate":    timeslot.Today(now),
				"Stores":     stores,
				"Dogs":       dogs,
				"LocationID": selected,
				"ActiveNav":  "home",
			},
			"base.html", "pages/reserve.html", "partials/store_card.html", "partials/favorite_button.html",
		); err != nil {
			s.logger.Error("render page failed", "error", err)
		}
	}
}

func reservePath(mode service.ReserveMode) string {
	if mode == service.ModeScheduled {
		return "/reserve/schedule"
	}
	return "/reserve/now"
}

func (s *Server) handleReserve(mode service.ReserveMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseForm(w, r) {
			return
		}
		f := r.PostForm
		in := service.ReserveInput{
			Mode:     mode,
			Tomorrow: f.Get("day") == "tomorrow",
			Date:     f.Get("date"),
			Start:    f.Get("start_time"),
			End:      f.Get("end_time"),
			Options: domain.Options{
				Snack:    f.Get("snack") != "",
				Walk:     f.Get("walk") != "",
				Medicine: f.Get("medicine") != "",
			},
		}
		in.LocationID, _ = strconv.ParseInt(f.Get("location_id"), 10, 64)
		in.DogID, _ = strconv.ParseInt(f.Get("dog_id"), 10, 64)

		back := backToForm(mode, f)
		res, err := s.service.Reserve(r.Context(), tokenFrom(r.Context()), in)
		if err != nil {
			if msg, ok := reserveErrorMessage(err); ok {
				s.setFlash(w, flashError, msg)
				http.Redirect(w, r, back, http.StatusSeeOther)
				return
			}
			s.handleSubmitError(w, r, err, "予約登録に失敗しました", back)
			return
		}

		http.Redirect(w, r, "/reserve/complete?id="+strconv.FormatInt(res.ID, 10), http.StatusSeeOther)
	}
}

// backToForm rebuilds the form URL so a failed submission returns to the
// same tab, date and store.
func backToForm(mode service.ReserveMode, f url.Values) string {
	q := url.Values{}
	if v := f.Get("location_id"); v != "" {
		q.Set("location_id", v)
	}
	if mode == service.ModeScheduled {
		if v := f.Get("date"); v != "" {
			q.Set("date", v)
		}
	} else if f.Get("day") == "tomorrow" {
		q.Set("day", "tomorrow")
	}
	if len(q) == 0 {
		return reservePath(mode)
	}
	return reservePath(mode) + "?" + q.Encode()
}

// reserveErrorMessage maps input problems to the message shown to the user.
// Backend failures report ok=false.
func reserveErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrNoStoreSelected):
		return "店舗を選択してください", true
	case errors.Is(err, timeslot.ErrTimeRequired):
		return "時間を指定してください", true
	case errors.Is(err, timeslot.ErrEndBeforeStart):
		return "終了時間は開始時間より後にしてください", true
	case errors.Is(err, timeslot.ErrDateInPast):
		return "過去の日付は予約できません", true
	case errors.Is(err, timeslot.ErrInvalidClock), errors.Is(err, timeslot.ErrInvalidDate):
		return "日時の形式が正しくありません", true
	}
	return "", false
}

func (s *Server) handleReserveComplete(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{"ReservationID": id, "ActiveNav": "home"},
		"base.html", "pages/reserve_complete.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleLocationDetail(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	user, err := s.service.CurrentUser(ctx, tokenFrom(ctx))
	if err != nil {
		s.handleLoadError(w, r, err, "ユーザー情報の取得に失敗しました")
		return
	}
	store, err := s.service.Store(ctx, user.ID, locationID)
	if err != nil {
		s.handleLoadError(w, r, err, "店舗情報の取得に失敗しました")
		return
	}

	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{"Store": store, "ActiveNav": "search"},
		"base.html", "pages/location.html", "partials/favorite_button.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	locationID, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid location id", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	user, err := s.service.CurrentUser(ctx, tokenFrom(ctx))
	if err != nil {
		s.handleLoadError(w, r, err, "ユーザー情報の取得に失敗しました")
		return
	}
	fav, err := s.service.ToggleFavorite(ctx, user.ID, locationID)
	if err != nil {
		s.handleLoadError(w, r, err, "お気に入りの更新に失敗しました")
		return
	}

	if r.Header.Get("HX-Request") != "true" {
		http.Redirect(w, r, "/locations/"+strconv.FormatInt(locationID, 10), http.StatusSeeOther)
		return
	}
	if err := s.renderPartial(w, "partials/favorite_button.html",
		map[string]any{"ID": locationID, "Favorite": fav},
	); err != nil {
		s.logger.Error("render partial failed", "error", err)
	}
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := s.service.CurrentUser(ctx, tokenFrom(ctx))
	if err != nil {
		s.handleLoadError(w, r, err, "ユーザー情報の取得に失敗しました")
		return
	}
	stores, err := s.service.Favorites(ctx, user.ID)
	if err != nil {
		s.handleLoadError(w, r, err, "お気に入りの取得に失敗しました")
		return
	}

	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{"Stores": stores, "ActiveNav": "favorite"},
		"base.html", "pages/favorites.html", "partials/store_card.html", "partials/favorite_button.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
