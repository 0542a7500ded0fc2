package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/hondadog/internal/api"
	"github.com/vbonduro/hondadog/internal/domain"
	"github.com/vbonduro/hondadog/internal/metrics"
	"github.com/vbonduro/hondadog/internal/timeslot"
)

var ErrNoStoreSelected = errors.New("no store selected")

type ReserveMode string

const (
	ModeNow       ReserveMode = "now"
	ModeScheduled ReserveMode = "scheduled"
)

// ReserveInput is what the reservation forms collect.
type ReserveInput struct {
	Mode       ReserveMode
	Tomorrow   bool   // ModeNow: the 明日 tab
	Date       string // ModeScheduled: YYYY-MM-DD
	Start      string // HH:MM
	End        string // HH:MM
	LocationID int64
	DogID      int64
	Options    domain.Options
}

// Reserve books a stay. Chosen options are stored locally once the backend
// has assigned the reservation an id; failing to store them does not undo
// the booking.
func (s *DaycareService) Reserve(ctx context.Context, token string, in ReserveInput) (*domain.Reservation, error) {
	if in.LocationID == 0 {
		return nil, ErrNoStoreSelected
	}

	var (
		w   timeslot.Window
		err error
	)
	switch in.Mode {
	case ModeScheduled:
		w, err = timeslot.ComposeScheduled(s.now(), in.Date, in.Start, in.End)
	default:
		day := timeslot.Today(s.now())
		if in.Tomorrow {
			day = timeslot.Tomorrow(s.now())
		}
		w, err = timeslot.Compose(day, in.Start, in.End)
	}
	if err != nil {
		return nil, err
	}

	req := &domain.NewReservation{
		LocationID:         in.LocationID,
		ScheduledStartTime: w.StartString(),
		ScheduledEndTime:   w.EndString(),
	}
	if in.DogID != 0 {
		req.DogID = &in.DogID
	}

	res, err := s.api.CreateReservation(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}
	metrics.ReservationsCreatedTotal.WithLabelValues(string(in.Mode)).Inc()
	s.logger.Info("reservation created", "reservation_id", res.ID, "location_id", in.LocationID, "start", req.ScheduledStartTime)

	if in.Options.Any() && res.ID != 0 {
		if err := s.options.Save(ctx, res.ID, in.Options); err != nil {
			s.logger.Error("failed to save reservation options", "reservation_id", res.ID, "error", err)
		}
	}
	return res, nil
}

// ReservationCard is one upcoming reservation as listed on my page and the
// check-in page.
type ReservationCard struct {
	ID        int64
	StoreName string
	Date      string
	TimeSlot  string
	start     string
}

// Dashboard lists the user's upcoming reservations. Each distinct store is
// fetched once, concurrently; any failure fails the whole view.
func (s *DaycareService) Dashboard(ctx context.Context, token string) ([]*ReservationCard, error) {
	reservations, err := s.api.ListUpcomingReservations(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range reservations {
		if !seen[r.LocationID] {
			seen[r.LocationID] = true
			ids = append(ids, r.LocationID)
		}
	}

	locations, err := s.locations(ctx, ids)
	if err != nil {
		return nil, err
	}

	cards := make([]*ReservationCard, 0, len(reservations))
	for _, r := range reservations {
		card, err := reservationCard(r, locations[r.LocationID])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].start < cards[j].start })
	return cards, nil
}

func reservationCard(r *domain.Reservation, loc *domain.Location) (*ReservationCard, error) {
	start, err := timeslot.ParseTimestamp(r.ScheduledStartTime)
	if err != nil {
		return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	end, err := timeslot.ParseTimestamp(r.ScheduledEndTime)
	if err != nil {
		return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	return &ReservationCard{
		ID:        r.ID,
		StoreName: loc.Name,
		Date:      timeslot.FormatDate(start),
		TimeSlot:  timeslot.Range(start, end),
		start:     start.UTC().Format("20060102150405"),
	}, nil
}

// Detail is one labelled row of the check-in ticket.
type Detail struct {
	Label string
	Value string
}

type CheckInTicket struct {
	ReservationID int64
	StoreName     string
	Date          string
	TimeRange     string
	QRCode        string
	Details       []Detail
}

// ownedReservation loads a reservation and confirms it belongs to the
// session's user. A reservation held by someone else is reported as not
// found.
func (s *DaycareService) ownedReservation(ctx context.Context, token string, reservationID int64) (*domain.Reservation, error) {
	var (
		me  *domain.User
		res *domain.Reservation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		me, err = s.api.Me(gctx, token)
		return err
	})
	g.Go(func() (err error) {
		res, err = s.api.GetReservation(gctx, reservationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res.UserID != me.ID {
		s.logger.Warn("reservation owned by another user", "reservation_id", reservationID, "user_id", me.ID)
		return nil, fmt.Errorf("reservation %d: %w", reservationID, api.ErrNotFound)
	}
	return res, nil
}

// CheckIn assembles the QR ticket for one of the user's reservations: the
// reservation and the QR code first, then its user, dog and store
// concurrently.
func (s *DaycareService) CheckIn(ctx context.Context, token string, reservationID int64) (*CheckInTicket, error) {
	res, err := s.ownedReservation(ctx, token, reservationID)
	if err != nil {
		return nil, err
	}
	qr, err := s.api.GenerateQR(ctx, reservationID, api.QRTypeCheckin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate qr code: %w", err)
	}

	var (
		user *domain.User
		dog  *domain.Dog
		loc  *domain.Location
		opts *domain.Options
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.api.GetUser(gctx, res.UserID)
		return err
	})
	if res.DogID != nil {
		g.Go(func() (err error) {
			dog, err = s.api.GetDog(gctx, *res.DogID)
			return err
		})
	}
	g.Go(func() (err error) {
		loc, err = s.location(gctx, res.LocationID)
		return err
	})
	g.Go(func() (err error) {
		opts, err = s.options.Get(gctx, res.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load check-in details: %w", err)
	}

	card, err := reservationCard(res, loc)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &domain.Options{}
	}

	dogName, breed, weight := "-", "-", "-"
	if dog != nil {
		dogName = dog.Name
		breed = dog.Breed
		weight = strconv.FormatFloat(dog.Weight, 'f', -1, 64) + "kg"
	}

	return &CheckInTicket{
		ReservationID: res.ID,
		StoreName:     loc.Name,
		Date:          card.Date,
		TimeRange:     card.TimeSlot,
		QRCode:        qr.Code,
		Details: []Detail{
			{Label: "利用者名", Value: user.FullName()},
			{Label: "愛犬名", Value: dogName},
			{Label: "犬種", Value: breed},
			{Label: "体重", Value: weight},
			{Label: "オプション", Value: opts.Label()},
			{Label: "予約ID", Value: "#" + strconv.FormatInt(res.ID, 10)},
		},
	}, nil
}

// CheckInCode returns only the check-in code of one of the user's
// reservations, for rendering it as an image.
func (s *DaycareService) CheckInCode(ctx context.Context, token string, reservationID int64) (string, error) {
	if _, err := s.ownedReservation(ctx, token, reservationID); err != nil {
		return "", err
	}
	qr, err := s.api.GenerateQR(ctx, reservationID, api.QRTypeCheckin)
	if err != nil {
		return "", fmt.Errorf("failed to generate qr code: %w", err)
	}
	return qr.Code, nil
}
