package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationAddress(t *testing.T) {
	loc := &Location{Prefecture: "東京都", City: "渋谷区", AddressLine: "神南1-2-3"}
	assert.Equal(t, "東京都渋谷区神南1-2-3", loc.Address())
}

func TestOptionsLabel(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"none", Options{}, "なし"},
		{"walk and snack", Options{Snack: true, Walk: true}, "おさんぽ・おやつ"},
		{"all", Options{Snack: true, Walk: true, Medicine: true}, "おさんぽ・おやつ・おくすり"},
		{"medicine only", Options{Medicine: true}, "おくすり"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Label())
			assert.Equal(t, tt.want != "なし", tt.opts.Any())
		})
	}
}
