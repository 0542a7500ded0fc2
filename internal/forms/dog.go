package forms

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/vbonduro/hondadog/internal/domain"
)

// DogTypes are the size classes the backend accepts.
var DogTypes = []string{"超小型", "小型", "中型", "大型"}

type DogForm struct {
	Name         string `form:"name" validate:"required"`
	Type         string `form:"type" validate:"required,oneof=超小型 小型 中型 大型"`
	Breed        string `form:"breed" validate:"required"`
	Birthday     string `form:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Weight       string `form:"weight" validate:"required,numeric"`
	IsVaccinated bool   `form:"is_vaccinated"`
	IsNeutered   bool   `form:"is_neutered"`
}

func NewDogForm(v url.Values) DogForm {
	return DogForm{
		Name:         strings.TrimSpace(v.Get("name")),
		Type:         v.Get("type"),
		Breed:        strings.TrimSpace(v.Get("breed")),
		Birthday:     v.Get("birthday"),
		Weight:       strings.TrimSpace(v.Get("weight")),
		IsVaccinated: checked(v.Get("is_vaccinated")),
		IsNeutered:   checked(v.Get("is_neutered")),
	}
}

func checked(s string) bool {
	switch s {
	case "on", "true", "1":
		return true
	}
	return false
}

func (DogForm) messages() map[string]string {
	return map[string]string{
		"name":     "名前は必須です",
		"type":     "サイズを選択してください",
		"breed":    "犬種は必須です",
		"birthday": "生年月日の形式が正しくありません",
		"weight":   "体重は数値で入力してください",
	}
}

func (f DogForm) Validate() Errors {
	return check(f)
}

// Dog converts a validated form into the backend payload.
func (f DogForm) Dog() *domain.Dog {
	weight, _ := strconv.ParseFloat(f.Weight, 64)
	return &domain.Dog{
		Name:         f.Name,
		Type:         f.Type,
		Breed:        f.Breed,
		Birthday:     isoDate(f.Birthday),
		Weight:       weight,
		IsVaccinated: f.IsVaccinated,
		IsNeutered:   f.IsNeutered,
	}
}
