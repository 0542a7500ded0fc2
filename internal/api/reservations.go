package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/vbonduro/hondadog/internal/domain"
)

// QRTypeCheckin is the qr_type the check-in ticket asks for.
const QRTypeCheckin = "checkin"

// CreateReservation posts a new reservation. Each call carries a fresh
// Idempotency-Key so the backend can discard a retried duplicate.
func (c *Client) CreateReservation(ctx context.Context, token string, r *domain.NewReservation) (*domain.Reservation, error) {
	h := http.Header{}
	h.Set("Idempotency-Key", uuid.NewString())

	var out domain.Reservation
	if err := c.sendJSON(ctx, "create_reservation", http.MethodPost, "reservations/me", token, h, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUpcomingReservations(ctx context.Context, token string) ([]*domain.Reservation, error) {
	var out []*domain.Reservation
	if err := c.getJSON(ctx, "list_upcoming_reservations", "reservations/me/upcoming", nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	var out domain.Reservation
	if err := c.getJSON(ctx, "get_reservation", idPath("reservations", id), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateQR(ctx context.Context, reservationID int64, qrType string) (*domain.QRCode, error) {
	q := url.Values{}
	q.Set("reservation_id", strconv.FormatInt(reservationID, 10))
	q.Set("qr_type", qrType)

	var out domain.QRCode
	if err := c.getJSON(ctx, "generate_qr", "qr/generate", q, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
