package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vbonduro/hondadog/internal/api"
	"github.com/vbonduro/hondadog/internal/domain"
	"github.com/vbonduro/hondadog/internal/metrics"
)

// DefaultStoreImage is shown when a store has no photo or its lookup fails.
const DefaultStoreImage = "/static/store-default.svg"

// StoreCard is a location with the presentation data its card shows.
type StoreCard struct {
	*domain.Location
	ImageURL    string
	Favorite    bool
	SizeTags    []string
	Rating      float64
	ReviewCount int
	Description string
	Price       string
	Distance    string
	TravelTime  string
}

func newStoreCard(loc *domain.Location, imageURL string, favorite bool) *StoreCard {
	if imageURL == "" {
		imageURL = DefaultStoreImage
	}
	// The backend has no ratings, pricing or geolocation yet, so every card
	// carries the same placeholder figures.
	return &StoreCard{
		Location:    loc,
		ImageURL:    imageURL,
		Favorite:    favorite,
		SizeTags:    []string{"超小型犬", "小型犬", "中型犬", "大型犬"},
		Rating:      4.5,
		ReviewCount: 123,
		Description: "スタッフによる見守りと快適な個室、広いドッグランで安心のサービスを提供します。",
		Price:       "￥1,000/時間",
		Distance:    "1km",
		TravelTime:  "5分",
	}
}

// Stores lists up to limit stores. Photos are looked up concurrently and a
// failed lookup falls back to DefaultStoreImage rather than failing the page.
func (s *DaycareService) Stores(ctx context.Context, userID int64, limit int) ([]*StoreCard, error) {
	locations, err := s.api.ListLocations(ctx, 0, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	favs, err := s.favoriteSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	images := s.storeImages(ctx, locations)

	cards := make([]*StoreCard, 0, len(locations))
	for i, loc := range locations {
		cards = append(cards, newStoreCard(loc, images[i], favs[loc.ID]))
	}
	return cards, nil
}

// Store returns a single store for its detail page.
func (s *DaycareService) Store(ctx context.Context, userID, locationID int64) (*StoreCard, error) {
	loc, err := s.location(ctx, locationID)
	if err != nil {
		return nil, err
	}
	fav, err := s.favorites.Exists(ctx, userID, locationID)
	if err != nil {
		return nil, err
	}
	return newStoreCard(loc, s.storeImages(ctx, []*domain.Location{loc})[0], fav), nil
}

// Favorites lists the user's favourite stores, most recently added first.
func (s *DaycareService) Favorites(ctx context.Context, userID int64) ([]*StoreCard, error) {
	ids, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID, err := s.locations(ctx, ids)
	if err != nil {
		return nil, err
	}

	locations := make([]*domain.Location, 0, len(ids))
	for _, id := range ids {
		locations = append(locations, byID[id])
	}
	images := s.storeImages(ctx, locations)

	cards := make([]*StoreCard, 0, len(locations))
	for i, loc := range locations {
		cards = append(cards, newStoreCard(loc, images[i], true))
	}
	return cards, nil
}

// ToggleFavorite flips the favourite flag and reports the new state.
func (s *DaycareService) ToggleFavorite(ctx context.Context, userID, locationID int64) (bool, error) {
	fav, err := s.favorites.Exists(ctx, userID, locationID)
	if err != nil {
		return false, err
	}
	if fav {
		return false, s.favorites.Remove(ctx, userID, locationID)
	}
	// Only real stores can be favourited.
	if _, err := s.location(ctx, locationID); err != nil {
		return false, err
	}
	return true, s.favorites.Add(ctx, userID, locationID)
}

func (s *DaycareService) favoriteSet(ctx context.Context, userID int64) (map[int64]bool, error) {
	ids, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// locations fetches each id concurrently. Any failure fails the whole call.
func (s *DaycareService) locations(ctx context.Context, ids []int64) (map[int64]*domain.Location, error) {
	out := make(map[int64]*domain.Location, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for _, id := range ids {
		g.Go(func() error {
			loc, err := s.location(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = loc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// storeImages returns one image URL per location, in order. A location that
// carries its own image_url needs no lookup.
func (s *DaycareService) storeImages(ctx context.Context, locations []*domain.Location) []string {
	images := make([]string, len(locations))

	var g errgroup.Group
	g.SetLimit(maxFanOut)
	for i, loc := range locations {
		if loc.ImageURL != "" {
			images[i] = loc.ImageURL
			continue
		}
		g.Go(func() error {
			u, err := s.locationImage(ctx, loc.ID)
			if err != nil {
				s.logger.Warn("store image lookup failed", "location_id", loc.ID, "error", err)
				u = ""
			}
			images[i] = u
			return nil
		})
	}
	_ = g.Wait()
	return images
}

func locationKey(id int64) string      { return fmt.Sprintf("location:%d", id) }
func locationImageKey(id int64) string { return fmt.Sprintf("location-image:%d", id) }

// location is a read-through cached GetLocation. A store the backend no
// longer knows is evicted along with its cached photo.
func (s *DaycareService) location(ctx context.Context, id int64) (*domain.Location, error) {
	var loc domain.Location
	if s.cacheGet(ctx, locationKey(id), &loc) {
		return &loc, nil
	}

	fetched, err := s.api.GetLocation(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			s.cacheDelete(ctx, locationKey(id))
			s.cacheDelete(ctx, locationImageKey(id))
		}
		return nil, fmt.Errorf("failed to get location %d: %w", id, err)
	}
	s.cacheSet(ctx, locationKey(id), fetched)
	return fetched, nil
}

func (s *DaycareService) locationImage(ctx context.Context, id int64) (string, error) {
	var u string
	if s.cacheGet(ctx, locationImageKey(id), &u) {
		return u, nil
	}

	u, err := s.api.GetLocationImage(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get image for location %d: %w", id, err)
	}
	s.cacheSet(ctx, locationImageKey(id), u)
	return u, nil
}

// cacheGet decodes a cached value into out. Cache failures are logged and
// treated as misses.
func (s *DaycareService) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	case !ok:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		s.cacheDelete(ctx, key)
		return false
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return true
}

func (s *DaycareService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (s *DaycareService) cacheDelete(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}
