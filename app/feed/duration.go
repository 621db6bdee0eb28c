package feed

import (
	"math"
	"strconv"
	"strings"
)

const (
	FallbackHours = 1.0
	MinHours      = 0.25
	MaxHours      = 40.0

	hourIncrement = 0.25
)

// ParseDuration converts an "H:MM:SS", "MM:SS" or plain seconds value into
// credit hours, rounded to the nearest quarter hour. Anything unparseable
// yields FallbackHours.
func ParseDuration(raw string) float64 {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")

	// float64 keeps huge components from wrapping around.
	var seconds float64
	switch len(parts) {
	case 3:
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		s, errS := strconv.Atoi(parts[2])
		if errH != nil || errM != nil || errS != nil {
			return FallbackHours
		}
		seconds = float64(h)*3600 + float64(m)*60 + float64(s)
	case 2:
		m, errM := strconv.Atoi(parts[0])
		s, errS := strconv.Atoi(parts[1])
		if errM != nil || errS != nil {
			return FallbackHours
		}
		seconds = float64(m)*60 + float64(s)
	default:
		s, err := strconv.Atoi(raw)
		if err != nil {
			return FallbackHours
		}
		seconds = float64(s)
	}

	hours := seconds / 3600
	rounded := math.Floor(hours/hourIncrement+0.5) * hourIncrement
	return min(max(rounded, MinHours), MaxHours)
}

// FormatHours renders hours the way they are stored: "1.0", "0.75", "2.5".
func FormatHours(hours float64) string {
	s := strconv.FormatFloat(hours, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
