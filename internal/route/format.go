package route

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// stopBaySuffix matches trailing stop-bay labels such as "(Stop A)", "Stand B"
// or a lone " C", and a name that is nothing but a labelled bay.
var stopBaySuffix = regexp.MustCompile(`(?i)(?:\s+\(?\s*(?:(?:stop|stand|bay)\s+)?[a-z]|^\(?\s*(?:stop|stand|bay)\s+[a-z])\s*\)?$`)

// CleanDestination strips a trailing stop-bay label and surrounding whitespace.
func CleanDestination(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSpace(stopBaySuffix.ReplaceAllString(name, ""))
}

// ParseClock parses an "HH:MM" wall-clock time into minutes after midnight.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		// Tolerate "HH:MM:SS" and RFC 3339 timestamps.
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
		if t, err := time.Parse("15:04:05", s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
		return 0, false
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// FormatClock formats minutes after midnight as "HH:MM", wrapping past midnight.
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock returns s as "HH:MM", or Unknown when it cannot be parsed.
func NormalizeClock(s string) string {
	m, ok := ParseClock(s)
	if !ok {
		return Unknown
	}
	return FormatClock(m)
}

// FormatDuration renders minutes as "1h 30m", "2h" or "45m".
func FormatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

// DurationBetween formats the time from departure to arrival. An arrival
// earlier than the departure is taken to be on the following day.
func DurationBetween(departure, arrival string) string {
	dep, ok := ParseClock(departure)
	if !ok {
		return Unknown
	}
	arr, ok := ParseClock(arrival)
	if !ok {
		return Unknown
	}
	diff := arr - dep
	if diff < 0 {
		diff += minutesPerDay
	}
	return FormatDuration(diff)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}
