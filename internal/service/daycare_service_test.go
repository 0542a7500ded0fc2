package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/hondadog/internal/api"
	"github.com/vbonduro/hondadog/internal/cache/memory"
	"github.com/vbonduro/hondadog/internal/db"
	"github.com/vbonduro/hondadog/internal/domain"
	"github.com/vbonduro/hondadog/internal/store"
	"github.com/vbonduro/hondadog/internal/timeslot"
)

// fakeBackend is an in-memory stand-in for api.Client.
type fakeBackend struct {
	mu sync.Mutex

	users        map[int64]*domain.User
	dogs         map[int64]*domain.Dog
	locations    []*domain.Location
	images       map[int64]string
	reservations []*domain.Reservation

	failLocation map[int64]bool
	failImage    map[int64]bool
	failUpload   bool

	locationCalls map[int64]int
	qrCalls       int
	created       []*domain.NewReservation
}

func newFakeBackend() *fakeBackend {
	dogID := int64(5)
	return &fakeBackend{
		users: map[int64]*domain.User{
			1: {ID: 1, NameLast: "山田", NameFirst: "花子", Email: "hanako@example.com"},
		},
		dogs: map[int64]*domain.Dog{
			5: {ID: 5, UserID: 1, Name: "ポチ", Breed: "柴犬", Weight: 8.5},
		},
		locations: []*domain.Location{
			{ID: 10, Name: "渋谷店", Prefecture: "東京都", City: "渋谷区", AddressLine: "神南1-2-3"},
			{ID: 20, Name: "横浜店", Prefecture: "神奈川県", City: "横浜市", AddressLine: "中区4-5"},
		},
		images: map[int64]string{10: "https://cdn.example.com/10.jpg", 20: "https://cdn.example.com/20.jpg"},
		reservations: []*domain.Reservation{
			{ID: 100, UserID: 1, DogID: &dogID, LocationID: 20, ScheduledStartTime: "2025-06-02T10:00:00+09:00", ScheduledEndTime: "2025-06-02T12:00:00+09:00"},
			{ID: 101, UserID: 1, LocationID: 10, ScheduledStartTime: "2025-06-01T15:00:00+09:00", ScheduledEndTime: "2025-06-01T17:00:00+09:00"},
			{ID: 102, UserID: 1, LocationID: 10, ScheduledStartTime: "2025-06-03T09:00:00", ScheduledEndTime: "2025-06-03T11:30:00"},
		},
		failLocation:  map[int64]bool{},
		failImage:     map[int64]bool{},
		locationCalls: map[int64]int{},
	}
}

var errBackendDown = errors.New("backend down")

func (f *fakeBackend) Login(_ context.Context, email, password string) (string, error) {
	if email == "hanako@example.com" && password == "secret1" {
		return "tok", nil
	}
	return "", &api.HTTPError{Op: "login", StatusCode: 401}
}

func (f *fakeBackend) Register(_ context.Context, u *domain.User) (*domain.User, error) {
	out := *u
	out.ID = 2
	return &out, nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (*domain.User, error) {
	if token != "tok" {
		return nil, &api.HTTPError{Op: "me", StatusCode: 401}
	}
	return f.users[1], nil
}

func (f *fakeBackend) GetUser(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, &api.HTTPError{Op: "get_user", StatusCode: 404}
	}
	return u, nil
}

func (f *fakeBackend) UpdateMe(_ context.Context, _ string, u *domain.User) (*domain.User, error) {
	return u, nil
}

func (f *fakeBackend) CreateDog(_ context.Context, _ string, d *domain.Dog) (*domain.Dog, error) {
	out := *d
	out.ID = 6
	return &out, nil
}

func (f *fakeBackend) ListMyDogs(context.Context, string) ([]*domain.Dog, error) {
	return []*domain.Dog{f.dogs[5]}, nil
}

func (f *fakeBackend) GetDog(_ context.Context, id int64) (*domain.Dog, error) {
	return f.dogs[id], nil
}

func (f *fakeBackend) UploadDogImage(_ context.Context, _ string, dogID int64, _ []byte, _ string) (string, error) {
	if f.failUpload {
		return "", errBackendDown
	}
	return "https://cdn.example.com/dogs/6.png", nil
}

func (f *fakeBackend) ListLocations(_ context.Context, skip, limit int) ([]*domain.Location, error) {
	end := min(skip+limit, len(f.locations))
	return f.locations[skip:end], nil
}

func (f *fakeBackend) GetLocation(_ context.Context, id int64) (*domain.Location, error) {
	f.mu.Lock()
	f.locationCalls[id]++
	f.mu.Unlock()
	if f.failLocation[id] {
		return nil, errBackendDown
	}
	for _, l := range f.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, &api.HTTPError{Op: "get_location", StatusCode: 404}
}

func (f *fakeBackend) GetLocationImage(_ context.Context, id int64) (string, error) {
	if f.failImage[id] {
		return "", errBackendDown
	}
	return f.images[id], nil
}

func (f *fakeBackend) CreateReservation(_ context.Context, _ string, r *domain.NewReservation) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
	return &domain.Reservation{ID: 200, LocationID: r.LocationID, ScheduledStartTime: r.ScheduledStartTime, ScheduledEndTime: r.ScheduledEndTime}, nil
}

func (f *fakeBackend) ListUpcomingReservations(context.Context, string) ([]*domain.Reservation, error) {
	return f.reservations, nil
}

func (f *fakeBackend) GetReservation(_ context.Context, id int64) (*domain.Reservation, error) {
	for _, r := range f.reservations {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &api.HTTPError{Op: "get_reservation", StatusCode: 404}
}

func (f *fakeBackend) GenerateQR(_ context.Context, reservationID int64, qrType string) (*domain.QRCode, error) {
	f.qrCalls++
	return &domain.QRCode{Code: "CHECKIN-" + qrType}, nil
}

func newTestService(t *testing.T, backend *fakeBackend) *DaycareService {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDaycareService(backend, store.NewFavoriteStore(d), store.NewOptionStore(d), memory.NewMemoryCache(), time.Minute, logger)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, timeslot.Zone) }
	return svc
}

func TestDashboardFetchesEachStoreOnce(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)

	cards, err := svc.Dashboard(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, cards, 3)

	assert.Equal(t, 1, backend.locationCalls[10])
	assert.Equal(t, 1, backend.locationCalls[20])

	// Sorted by start time.
	assert.Equal(t, int64(101), cards[0].ID)
	assert.Equal(t, "渋谷店", cards[0].StoreName)
	assert.Equal(t, "2025-06-01", cards[0].Date)
	assert.Equal(t, "15:00〜17:00", cards[0].TimeSlot)
	assert.Equal(t, int64(100), cards[1].ID)
	assert.Equal(t, "横浜店", cards[1].StoreName)
	assert.Equal(t, "09:00〜11:30", cards[2].TimeSlot)
}

func TestDashboardFailsWhenAStoreFails(t *testing.T) {
	backend := newFakeBackend()
	backend.failLocation[20] = true
	svc := newTestService(t, backend)

	_, err := svc.Dashboard(context.Background(), "tok")
	assert.ErrorIs(t, err, errBackendDown)
}

func TestReserveNowTomorrow(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ctx := context.Background()

	res, err := svc.Reserve(ctx, "tok", ReserveInput{
		Mode:       ModeNow,
		Tomorrow:   true,
		Start:      "15:00",
		End:        "17:00",
		LocationID: 10,
		DogID:      5,
		Options:    domain.Options{Walk: true, Snack: true},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.ID)

	require.Len(t, backend.created, 1)
	sent := backend.created[0]
	assert.Equal(t, "2025-06-02T15:00:00+09:00", sent.ScheduledStartTime)
	assert.Equal(t, "2025-06-02T17:00:00+09:00", sent.ScheduledEndTime)
	require.NotNil(t, sent.DogID)
	assert.Equal(t, int64(5), *sent.DogID)

	opts, err := svc.options.Get(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, opts)
	assert.Equal(t, "おさんぽ・おやつ", opts.Label())
}

func TestReserveScheduled(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)

	_, err := svc.Reserve(context.Background(), "tok", ReserveInput{
		Mode:       ModeScheduled,
		Date:       "2025-06-10",
		Start:      "09:00",
		End:        "18:00",
		LocationID: 20,
	})
	require.NoError(t, err)

	require.Len(t, backend.created, 1)
	assert.Equal(t, "2025-06-10T09:00:00+09:00", backend.created[0].ScheduledStartTime)
	assert.Nil(t, backend.created[0].DogID)
}

func TestReserveValidation(t *testing.T) {
	tests := []struct {
		name string
		in   ReserveInput
		want error
	}{
		{"no store", ReserveInput{Mode: ModeNow, Start: "15:00", End: "17:00"}, ErrNoStoreSelected},
		{"no time", ReserveInput{Mode: ModeNow, LocationID: 10}, timeslot.ErrTimeRequired},
		{"reversed", ReserveInput{Mode: ModeNow, LocationID: 10, Start: "17:00", End: "15:00"}, timeslot.ErrEndBeforeStart},
		{"past date", ReserveInput{Mode: ModeScheduled, LocationID: 10, Date: "2025-05-01", Start: "15:00", End: "17:00"}, timeslot.ErrDateInPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			svc := newTestService(t, backend)

			_, err := svc.Reserve(context.Background(), "tok", tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, backend.created, "nothing sent to the backend")
		})
	}
}

func TestStoresImageFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.failImage[20] = true
	svc := newTestService(t, backend)

	cards, err := svc.Stores(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "https://cdn.example.com/10.jpg", cards[0].ImageURL)
	assert.Equal(t, DefaultStoreImage, cards[1].ImageURL)
	assert.Equal(t, 4.5, cards[0].Rating)
	assert.Len(t, cards[0].SizeTags, 4)
}

func TestStoresPreferLocationImage(t *testing.T) {
	backend := newFakeBackend()
	backend.locations[0].ImageURL = "https://cdn.example.com/own/10.jpg"
	backend.failImage[10] = true
	svc := newTestService(t, backend)

	cards, err := svc.Stores(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/own/10.jpg", cards[0].ImageURL)
	assert.Equal(t, "https://cdn.example.com/20.jpg", cards[1].ImageURL)
}

func TestStoresRespectsLimit(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	cards, err := svc.Stores(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestStoreIsCached(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ctx := context.Background()

	for range 3 {
		card, err := svc.Store(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, "東京都渋谷区神南1-2-3", card.Address())
	}
	assert.Equal(t, 1, backend.locationCalls[10])
}

func TestStoreNotFound(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	_, err := svc.Store(context.Background(), 1, 999)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRemovedStoreIsEvicted(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ctx := context.Background()

	_, err := svc.Store(ctx, 1, 10)
	require.NoError(t, err)
	require.NoError(t, svc.cache.Delete(ctx, locationKey(10)), "location entry expires first")
	backend.locations = backend.locations[1:]

	_, err = svc.Store(ctx, 1, 10)
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, ok, err := svc.cache.Get(ctx, locationImageKey(10))
	require.NoError(t, err)
	assert.False(t, ok, "stale photo evicted")
}

func TestUndecodableCacheEntryIsDropped(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ctx := context.Background()
	require.NoError(t, svc.cache.Set(ctx, locationKey(10), []byte("{not json"), time.Minute))

	card, err := svc.Store(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "渋谷店", card.Name)
	assert.Equal(t, 1, backend.locationCalls[10])

	raw, ok, err := svc.cache.Get(ctx, locationKey(10))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), "渋谷店", "refetched entry replaces the bad one")
}

func TestToggleFavorite(t *testing.T) {
	svc := newTestService(t, newFakeBackend())
	ctx := context.Background()

	fav, err := svc.ToggleFavorite(ctx, 1, 20)
	require.NoError(t, err)
	assert.True(t, fav)

	cards, err := svc.Favorites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "横浜店", cards[0].Name)
	assert.True(t, cards[0].Favorite)

	stores, err := svc.Stores(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, stores[0].Favorite)
	assert.True(t, stores[1].Favorite)

	fav, err = svc.ToggleFavorite(ctx, 1, 20)
	require.NoError(t, err)
	assert.False(t, fav)

	cards, err = svc.Favorites(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestToggleFavoriteUnknownStore(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	_, err := svc.ToggleFavorite(context.Background(), 1, 999)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestCheckIn(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ctx := context.Background()
	require.NoError(t, svc.options.Save(ctx, 100, domain.Options{Walk: true, Snack: true}))

	ticket, err := svc.CheckIn(ctx, "tok", 100)
	require.NoError(t, err)

	assert.Equal(t, "横浜店", ticket.StoreName)
	assert.Equal(t, "2025-06-02", ticket.Date)
	assert.Equal(t, "10:00〜12:00", ticket.TimeRange)
	assert.Equal(t, "CHECKIN-checkin", ticket.QRCode)
	assert.Equal(t, []Detail{
		{Label: "利用者名", Value: "山田 花子"},
		{Label: "愛犬名", Value: "ポチ"},
		{Label: "犬種", Value: "柴犬"},
		{Label: "体重", Value: "8.5kg"},
		{Label: "オプション", Value: "おさんぽ・おやつ"},
		{Label: "予約ID", Value: "#100"},
	}, ticket.Details)
}

func TestCheckInWithoutDog(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	ticket, err := svc.CheckIn(context.Background(), "tok", 101)
	require.NoError(t, err)
	assert.Equal(t, "-", ticket.Details[1].Value)
	assert.Equal(t, "なし", ticket.Details[4].Value)
}

func TestCheckInUnknownReservation(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	_, err := svc.CheckIn(context.Background(), "tok", 999)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestCheckInCode(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	code, err := svc.CheckInCode(context.Background(), "tok", 100)
	require.NoError(t, err)
	assert.Equal(t, "CHECKIN-checkin", code)
}

func TestCheckInOtherUsersReservation(t *testing.T) {
	backend := newFakeBackend()
	backend.users[2] = &domain.User{ID: 2, NameLast: "佐藤", NameFirst: "一郎"}
	backend.reservations = append(backend.reservations, &domain.Reservation{
		ID: 200, UserID: 2, LocationID: 10,
		ScheduledStartTime: "2025-06-04T10:00:00+09:00", ScheduledEndTime: "2025-06-04T12:00:00+09:00",
	})
	svc := newTestService(t, backend)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, "tok", 200)
	assert.ErrorIs(t, err, api.ErrNotFound)

	_, err = svc.CheckInCode(ctx, "tok", 200)
	assert.ErrorIs(t, err, api.ErrNotFound)

	assert.Zero(t, backend.qrCalls, "no code issued for a foreign reservation")
}

func TestCheckInExpiredSession(t *testing.T) {
	svc := newTestService(t, newFakeBackend())

	_, err := svc.CheckIn(context.Background(), "stale", 100)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRegisterDog(t *testing.T) {
	backend := newFakeBackend()
	svc := newTestService(t, backend)
	ctx := context.Background()

	dog, err := svc.RegisterDog(ctx, "tok", &domain.Dog{Name: "モモ"}, &Photo{Data: []byte{0x89}, MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/dogs/6.png", dog.ImageURL)

	backend.failUpload = true
	dog, err = svc.RegisterDog(ctx, "tok", &domain.Dog{Name: "モモ"}, &Photo{Data: []byte{0x89}, MimeType: "image/png"})
	assert.ErrorIs(t, err, ErrPhotoUpload)
	require.NotNil(t, dog, "dog is still created")
	assert.Equal(t, int64(6), dog.ID)
}
