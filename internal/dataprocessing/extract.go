package dataprocessing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var ratingPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// ExtractRating pulls the first decimal number out of a rating text such as
// "4.1/5". It reports false when the text holds no number.
func ExtractRating(text string) (float64, bool) {
	match := ratingPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseCost reads a cost text with thousands separators, "1,200" -> 1200.
// Unparseable or non-finite values report false.
func ParseCost(text string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// TitleCase upper-cases the first letter of every run of letters and
// lower-cases the rest. Applying it twice gives the same result.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// CountCuisines counts comma separated entries. Missing values and the
// placeholder labels count as zero.
func CountCuisines(text string, missing bool, placeholders ...string) int {
	if missing || strings.TrimSpace(text) == "" {
		return 0
	}
	for _, p := range placeholders {
		if text == p {
			return 0
		}
	}
	return len(strings.Split(text, ","))
}
