package forms

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/vbonduro/hondadog/internal/domain"
)

var (
	Genders     = []string{"男性", "女性", "その他"}
	Prefectures = []string{"東京都", "神奈川県", "千葉県", "埼玉県"}
)

// UserForm backs both registration and the profile settings page.
type UserForm struct {
	NameLast    string `form:"name_last" validate:"required"`
	NameFirst   string `form:"name_first" validate:"required"`
	Gender      string `form:"gender" validate:"required,oneof=男性 女性 その他"`
	Birthday    string `form:"birthday" validate:"omitempty,datetime=2006-01-02"`
	PostalCode  string `form:"postal_code" validate:"len=7"`
	Prefecture  string `form:"prefecture" validate:"required"`
	City        string `form:"city" validate:"required"`
	AddressLine string `form:"address_line" validate:"required"`
	PhoneNumber string `form:"phone_number"`
	Email       string `form:"email" validate:"required,email"`
	Password    string `form:"password" validate:"omitempty,min=6"`
}

func NewUserForm(v url.Values) UserForm {
	return UserForm{
		NameLast:    strings.TrimSpace(v.Get("name_last")),
		NameFirst:   strings.TrimSpace(v.Get("name_first")),
		Gender:      v.Get("gender"),
		Birthday:    v.Get("birthday"),
		PostalCode:  strings.ReplaceAll(strings.TrimSpace(v.Get("postal_code")), "-", ""),
		Prefecture:  v.Get("prefecture"),
		City:        strings.TrimSpace(v.Get("city")),
		AddressLine: strings.TrimSpace(v.Get("address_line")),
		PhoneNumber: strings.TrimSpace(v.Get("phone_number")),
		Email:       strings.TrimSpace(v.Get("email")),
		Password:    v.Get("password"),
	}
}

// UserFormFrom prefills the form from the backend's view of the user. The
// password is never echoed back.
func UserFormFrom(u *domain.User) UserForm {
	f := UserForm{
		NameLast:    u.NameLast,
		NameFirst:   u.NameFirst,
		Gender:      u.Gender,
		PostalCode:  u.PostalCode,
		Prefecture:  u.Prefecture,
		City:        u.City,
		AddressLine: u.AddressLine,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
	}
	if u.Birthday != nil {
		f.Birthday, _, _ = strings.Cut(*u.Birthday, "T")
	}
	return f
}

// PrefectureOptions lists the selectable prefectures, keeping a stored value
// that is not one of the defaults so the profile page can be saved as is.
func (f UserForm) PrefectureOptions() []string {
	if f.Prefecture == "" || slices.Contains(Prefectures, f.Prefecture) {
		return Prefectures
	}
	return append([]string{f.Prefecture}, Prefectures...)
}

func (UserForm) messages() map[string]string {
	return map[string]string{
		"name_last":    "姓は必須です",
		"name_first":   "名は必須です",
		"gender":       "性別を選択してください",
		"birthday":     "生年月日の形式が正しくありません",
		"postal_code":  "郵便番号は7桁で入力してください",
		"prefecture":   "都道府県を選択してください",
		"city":         "市区町村は必須です",
		"address_line": "番地以下を入力してください",
		"email":        "正しいメール形式で入力してください",
		"password":     "6文字以上のパスワードにしてください",
	}
}

// Validate checks the form. Registration requires a password; the profile
// page leaves the current password in place when the field is blank.
func (f UserForm) Validate(requirePassword bool) Errors {
	errs := check(f)
	if requirePassword && f.Password == "" {
		errs.Add("password", f.messages()["password"])
	}
	return errs
}

// User converts a validated form into the backend payload.
func (f UserForm) User() *domain.User {
	return &domain.User{
		NameLast:    f.NameLast,
		NameFirst:   f.NameFirst,
		Gender:      f.Gender,
		Birthday:    isoDate(f.Birthday),
		PostalCode:  f.PostalCode,
		Prefecture:  f.Prefecture,
		City:        f.City,
		AddressLine: f.AddressLine,
		PhoneNumber: f.PhoneNumber,
		Email:       f.Email,
		Password:    f.Password,
	}
}

// isoDate turns a YYYY-MM-DD date into midnight UTC in RFC 3339 form, or nil
// when the date is empty or malformed.
func isoDate(s string) *string {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	out := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return &out
}
