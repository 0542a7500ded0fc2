package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

func (s *Server) handleCheckInList(w http.ResponseWriter, r *http.Request) {
	cards, err := s.service.Dashboard(r.Context(), tokenFrom(r.Context()))
	if err != nil {
		s.handleLoadError(w, r, err, "予約情報の取得に失敗しました")
		return
	}
	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{"Reservations": cards, "ActiveNav": "home"},
		"base.html", "pages/checkin.html", "partials/reservation_card.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleCheckInQR(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid reservation id", http.StatusBadRequest)
		return
	}

	ticket, err := s.service.CheckIn(r.Context(), tokenFrom(r.Context()), id)
	if err != nil {
		s.handleLoadError(w, r, err, "チェックイン情報の取得に失敗しました")
		return
	}

	if err := s.renderPage(w, r, http.StatusOK,
		map[string]any{
			"Ticket":  ticket,
			"QRImage": qrImageSource(ticket.QRCode, id),
			// The payload itself is shown below the image when it is
			// not an image URL.
			"ShowCode":  !isImageSource(ticket.QRCode),
			"ActiveNav": "home",
		},
		"base.html", "pages/checkin_qr.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// handleCheckInQRImage encodes the reservation's check-in code as a PNG.
func (s *Server) handleCheckInQRImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid reservation id", http.StatusBadRequest)
		return
	}

	code, err := s.service.CheckInCode(r.Context(), tokenFrom(r.Context()), id)
	if err != nil {
		s.handleLoadError(w, r, err, "QRコードの取得に失敗しました")
		return
	}
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		s.logger.Error("qr encode failed", "reservation_id", id, "error", err)
		http.Error(w, "QRコードの生成に失敗しました", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// isImageSource reports whether the backend handed back something a browser
// can display directly rather than a raw payload.
func isImageSource(code string) bool {
	return strings.HasPrefix(code, "https://") ||
		strings.HasPrefix(code, "http://") ||
		strings.HasPrefix(code, "data:image/")
}

// qrImageSource is the img src for a ticket. Only values accepted by
// isImageSource are marked safe, so data URIs survive template escaping.
func qrImageSource(code string, reservationID int64) template.URL {
	if isImageSource(code) {
		return template.URL(code)
	}
	return template.URL(fmt.Sprintf("/checkin/qr/%d/code.png", reservationID))
}
