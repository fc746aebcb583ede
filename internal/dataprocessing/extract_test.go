package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRating(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"4.1/5", 4.1, true},
		{"3.8", 3.8, true},
		{"3.8 /5", 3.8, true},
		{"0 out of 5", 0, true},
		{"4", 4, true},
		{"NEW", 0, false},
		{"-", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExtractRating(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseCost(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1,200", 1200, true},
		{"800", 800, true},
		{" 1,000,000 ", 1000000, true},
		{"12.5", 12.5, true},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCost(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"north indian, chinese", "North Indian, Chinese"},
		{"CAFE COFFEE DAY", "Cafe Coffee Day"},
		{"btm 2nd stage", "Btm 2Nd Stage"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := TitleCase(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, TitleCase(got))
		})
	}
}

func TestCountCuisines(t *testing.T) {
	placeholders := []string{"Unknown", "Not Specified"}
	tests := []struct {
		name    string
		text    string
		missing bool
		want    int
	}{
		{"three entries", "North Indian, Chinese, Mughlai", false, 3},
		{"single entry", "Cafe", false, 1},
		{"missing", "", true, 0},
		{"placeholder", "Unknown", false, 0},
		{"blank", "   ", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountCuisines(tt.text, tt.missing, placeholders...))
		})
	}
}
