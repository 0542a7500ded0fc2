package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/hondadog/internal/domain"
)

// OptionStore keeps the extras (snack, walk, medicine) chosen for each
// reservation, keyed by the backend's reservation id.
type OptionStore struct {
	db *sql.DB
}

func NewOptionStore(db *sql.DB) *OptionStore {
	return &OptionStore{db: db}
}

// Save replaces any options already stored for reservationID.
func (s *OptionStore) Save(ctx context.Context, reservationID int64, opts domain.Options) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservation_options (reservation_id, snack, walk, medicine) VALUES (?, ?, ?, ?)
		ON CONFLICT (reservation_id) DO UPDATE SET
			snack = excluded.snack,
			walk = excluded.walk,
			medicine = excluded.medicine
	`, reservationID, opts.Snack, opts.Walk, opts.Medicine)
	if err != nil {
		return fmt.Errorf("failed to save reservation options: %w", err)
	}
	return nil
}

// Get returns nil, nil when nothing was stored for reservationID.
func (s *OptionStore) Get(ctx context.Context, reservationID int64) (*domain.Options, error) {
	opts := &domain.Options{}
	err := s.db.QueryRowContext(ctx, `
		SELECT snack, walk, medicine FROM reservation_options WHERE reservation_id = ?
	`, reservationID).Scan(&opts.Snack, &opts.Walk, &opts.Medicine)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation options: %w", err)
	}

	return opts, nil
}
