package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String returns HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "HH:MM" (24h). Single-digit hours like "8:05" are accepted.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: expected HH:MM", ErrInvalidTimeFormat, s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: invalid hour", ErrInvalidTimeFormat, s)
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q: invalid minute", ErrInvalidTimeFormat, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// ValidateTZ checks that tz resolves and returns its canonical name.
func ValidateTZ(zones ZoneResolver, tz string) (string, error) {
	loc, err := zones.Resolve(strings.TrimSpace(tz))
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// FormatUTCOffset renders the offset of loc at t as "UTC+3", "UTC-4:30" or "UTC+0".
func FormatUTCOffset(t time.Time, loc *time.Location) string {
	_, off := t.In(loc).Zone()
	sign := "+"
	if off < 0 {
		sign = "-"
		off = -off
	}
	h, m := off/3600, (off%3600)/60
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}

// ZoneFromLongitude maps a longitude to a fixed-offset Etc/GMT zone.
// The Etc/GMT sign is inverted: Etc/GMT-3 is UTC+3.
func ZoneFromLongitude(lon float64) string {
	off := int(math.Round(lon / 15))
	if off > 12 {
		off = 12
	}
	if off < -12 {
		off = -12
	}
	switch {
	case off == 0:
		return "Etc/GMT"
	case off > 0:
		return fmt.Sprintf("Etc/GMT-%d", off)
	default:
		return fmt.Sprintf("Etc/GMT+%d", -off)
	}
}

// LocalizeTime formats t in the given location as HH:MM.
func LocalizeTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}
