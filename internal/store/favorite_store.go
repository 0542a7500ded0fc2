package store

import (
	"context"
	"database/sql"
	"fmt"
)

// FavoriteStore records which locations a user has marked as favourite.
type FavoriteStore struct {
	db *sql.DB
}

func NewFavoriteStore(db *sql.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// Add is idempotent.
func (s *FavoriteStore) Add(ctx context.Context, userID, locationID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (user_id, location_id) VALUES (?, ?)
		ON CONFLICT (user_id, location_id) DO NOTHING
	`, userID, locationID)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) Remove(ctx context.Context, userID, locationID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND location_id = ?
	`, userID, locationID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) Exists(ctx context.Context, userID, locationID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM favorites WHERE user_id = ? AND location_id = ?
	`, userID, locationID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns the user's favourite location IDs, most recent first.
func (s *FavoriteStore) ListByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location_id FROM favorites WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}

	return ids, nil
}
