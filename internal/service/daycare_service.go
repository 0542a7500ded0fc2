package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/hondadog/internal/cache"
	"github.com/vbonduro/hondadog/internal/domain"
)

// backend is the subset of api.Client that DaycareService requires.
type backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, u *domain.User) (*domain.User, error)
	Me(ctx context.Context, token string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateMe(ctx context.Context, token string, u *domain.User) (*domain.User, error)
	CreateDog(ctx context.Context, token string, d *domain.Dog) (*domain.Dog, error)
	ListMyDogs(ctx context.Context, token string) ([]*domain.Dog, error)
	GetDog(ctx context.Context, id int64) (*domain.Dog, error)
	UploadDogImage(ctx context.Context, token string, dogID int64, data []byte, mimeType string) (string, error)
	ListLocations(ctx context.Context, skip, limit int) ([]*domain.Location, error)
	GetLocation(ctx context.Context, id int64) (*domain.Location, error)
	GetLocationImage(ctx context.Context, id int64) (string, error)
	CreateReservation(ctx context.Context, token string, r *domain.NewReservation) (*domain.Reservation, error)
	ListUpcomingReservations(ctx context.Context, token string) ([]*domain.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*domain.Reservation, error)
	GenerateQR(ctx context.Context, reservationID int64, qrType string) (*domain.QRCode, error)
}

// favoriteRepository is the subset of store.FavoriteStore that DaycareService requires.
type favoriteRepository interface {
	Add(ctx context.Context, userID, locationID int64) error
	Remove(ctx context.Context, userID, locationID int64) error
	Exists(ctx context.Context, userID, locationID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]int64, error)
}

// optionRepository is the subset of store.OptionStore that DaycareService requires.
type optionRepository interface {
	Save(ctx context.Context, reservationID int64, opts domain.Options) error
	Get(ctx context.Context, reservationID int64) (*domain.Options, error)
}

// ErrPhotoUpload reports that a dog was registered but its photo was not stored.
var ErrPhotoUpload = errors.New("dog photo upload failed")

// maxFanOut bounds concurrent backend lookups for a single page.
const maxFanOut = 8

type DaycareService struct {
	api       backend
	favorites favoriteRepository
	options   optionRepository
	cache     cache.Cache
	cacheTTL  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewDaycareService wires the service. locationCache may be nil to disable
// caching of store lookups.
func NewDaycareService(
	api backend,
	favorites favoriteRepository,
	options optionRepository,
	locationCache cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *DaycareService {
	return &DaycareService{
		api:       api,
		favorites: favorites,
		options:   options,
		cache:     locationCache,
		cacheTTL:  cacheTTL,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *DaycareService) Login(ctx context.Context, email, password string) (string, error) {
	return s.api.Login(ctx, email, password)
}

func (s *DaycareService) Register(ctx context.Context, u *domain.User) error {
	created, err := s.api.Register(ctx, u)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	s.logger.Info("user registered", "user_id", created.ID)
	return nil
}

func (s *DaycareService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	return s.api.Me(ctx, token)
}

func (s *DaycareService) UpdateProfile(ctx context.Context, token string, u *domain.User) error {
	if _, err := s.api.UpdateMe(ctx, token, u); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (s *DaycareService) MyDogs(ctx context.Context, token string) ([]*domain.Dog, error) {
	return s.api.ListMyDogs(ctx, token)
}

// Photo is an uploaded image that has already been size- and type-checked.
type Photo struct {
	Data     []byte
	MimeType string
}

// RegisterDog creates the dog and, when photo is non-nil, uploads its
// picture. If only the upload fails the created dog is returned together
// with an error wrapping ErrPhotoUpload.
func (s *DaycareService) RegisterDog(ctx context.Context, token string, d *domain.Dog, photo *Photo) (*domain.Dog, error) {
	dog, err := s.api.CreateDog(ctx, token, d)
	if err != nil {
		return nil, fmt.Errorf("failed to register dog: %w", err)
	}
	s.logger.Info("dog registered", "dog_id", dog.ID)

	if photo == nil {
		return dog, nil
	}
	imageURL, err := s.api.UploadDogImage(ctx, token, dog.ID, photo.Data, photo.MimeType)
	if err != nil {
		return dog, fmt.Errorf("%w: %w", ErrPhotoUpload, err)
	}
	dog.ImageURL = imageURL
	return dog, nil
}
