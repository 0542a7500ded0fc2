package domain

import "strings"

type User struct {
	ID          int64   `json:"id,omitempty"`
	NameLast    string  `json:"name_last"`
	NameFirst   string  `json:"name_first"`
	Gender      string  `json:"gender"`
	Birthday    *string `json:"birthday"`
	PostalCode  string  `json:"postal_code"`
	Prefecture  string  `json:"prefecture"`
	City        string  `json:"city"`
	AddressLine string  `json:"address_line"`
	PhoneNumber string  `json:"phone_number"`
	Email       string  `json:"email"`
	Password    string  `json:"password,omitempty"`
}

// FullName is the family name followed by the given name.
func (u *User) FullName() string {
	return u.NameLast + " " + u.NameFirst
}

type Dog struct {
	ID           int64   `json:"id,omitempty"`
	UserID       int64   `json:"user_id,omitempty"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	Breed        string  `json:"breed"`
	Birthday     *string `json:"birthday"`
	Weight       float64 `json:"weight"`
	IsVaccinated bool    `json:"is_vaccinated"`
	IsNeutered   bool    `json:"is_neutered"`
	ImageURL     string  `json:"image_url,omitempty"`
}

type Location struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Prefecture  string `json:"prefecture"`
	City        string `json:"city"`
	AddressLine string `json:"address_line"`
	PostalCode  string `json:"postal_code,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

func (l *Location) Address() string {
	return l.Prefecture + l.City + l.AddressLine
}

type Reservation struct {
	ID                 int64  `json:"id"`
	UserID             int64  `json:"user_id"`
	DogID              *int64 `json:"dog_id"`
	LocationID         int64  `json:"location_id"`
	ScheduledStartTime string `json:"scheduled_start_time"`
	ScheduledEndTime   string `json:"scheduled_end_time"`
}

// NewReservation is the payload for creating a reservation.
type NewReservation struct {
	LocationID         int64  `json:"location_id"`
	DogID              *int64 `json:"dog_id,omitempty"`
	ScheduledStartTime string `json:"scheduled_start_time"`
	ScheduledEndTime   string `json:"scheduled_end_time"`
}

type QRCode struct {
	Code string `json:"code"`
}

// Options are the extras chosen alongside a reservation. The backend does not
// model them, so they are kept locally.
type Options struct {
	Snack    bool
	Walk     bool
	Medicine bool
}

func (o Options) Any() bool {
	return o.Snack || o.Walk || o.Medicine
}

// Label renders the chosen options the way the check-in ticket shows them,
// e.g. "おさんぽ・おやつ". No options renders as "なし".
func (o Options) Label() string {
	var parts []string
	if o.Walk {
		parts = append(parts, "おさんぽ")
	}
	if o.Snack {
		parts = append(parts, "おやつ")
	}
	if o.Medicine {
		parts = append(parts, "おくすり")
	}
	if len(parts) == 0 {
		return "なし"
	}
	return strings.Join(parts, "・")
}
