package exporter

import (
	"strconv"

	"zomatoclean/pkg/contracts/domain"
)

// formatFloat writes the shortest representation that round-trips, with a
// trailing ".0" for whole numbers so float columns stay recognizable
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'I' || r == 'N' {
			return s
		}
	}
	return s + ".0"
}

// formatInt formats an integer cell
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatValue renders a cell for CSV output. Missing cells are empty.
func formatValue(v domain.Value) string {
	if v.IsMissing() {
		return ""
	}
	switch v.Kind() {
	case domain.KindFloat:
		f, _ := v.Float()
		return formatFloat(f)
	case domain.KindInteger:
		i, _ := v.Int()
		return formatInt(i)
	default:
		return v.Text()
	}
}
