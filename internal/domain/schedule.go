package domain

import (
	"errors"
	"time"
)

// Zone labels attached to computed fire times.
const (
	LabelServer   = "UTC (server)"
	LabelFallback = "UTC (fallback)"
	LabelDefault  = "UTC (default)"
)

// GraceWindow is how far in the past a custom target may be before it
// rolls over to the next day.
const GraceWindow = 60 * time.Second

// FireTime is one user's next notification instant.
type FireTime struct {
	At        time.Time     // UTC
	Wait      time.Duration // At - now; may be slightly negative inside the grace window
	LocalTime string        // HH:MM as stored
	Zone      string        // zone name or one of the UTC labels
}

// Calculator computes next fire times. It holds no mutable state: for fixed
// inputs it always returns the same instant.
type Calculator struct {
	Zones ZoneResolver
}

func NewCalculator(zones ZoneResolver) Calculator {
	return Calculator{Zones: zones}
}

// NextFire computes the next fire time for localTime in zone. An empty zone
// uses server (UTC) time. An unresolvable zone fails with ErrUnknownTimezone;
// callers are expected to retry through NextFireServer with fallback set.
func (c Calculator) NextFire(localTime, zone string, now time.Time) (FireTime, error) {
	tod, err := ParseTimeOfDay(localTime)
	if err != nil {
		return FireTime{}, err
	}
	if zone == "" {
		return nextFireIn(tod, time.UTC, now, LabelServer, localTime), nil
	}
	if c.Zones == nil {
		return FireTime{}, errors.Join(ErrUnknownTimezone, errors.New("no zone resolver"))
	}
	loc, err := c.Zones.Resolve(zone)
	if err != nil {
		return FireTime{}, err
	}
	return nextFireIn(tod, loc, now, zone, localTime), nil
}

// NextFireServer computes the next fire time against server (UTC) time,
// labelled as a fallback when fallback is set.
func (c Calculator) NextFireServer(localTime string, now time.Time, fallback bool) (FireTime, error) {
	tod, err := ParseTimeOfDay(localTime)
	if err != nil {
		return FireTime{}, err
	}
	label := LabelServer
	if fallback {
		label = LabelFallback
	}
	return nextFireIn(tod, time.UTC, now, label, localTime), nil
}

// NextDefaultFire computes the shared instant for default recipients. Unlike
// custom times there is no grace window: reaching the target rolls it over.
func NextDefaultFire(tod TimeOfDay, now time.Time) FireTime {
	nowUTC := now.UTC()
	target := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), tod.Hour, tod.Minute, 0, 0, time.UTC)
	if !nowUTC.Before(target) {
		target = time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day()+1, tod.Hour, tod.Minute, 0, 0, time.UTC)
	}
	return FireTime{
		At:        target,
		Wait:      target.Sub(now),
		LocalTime: tod.String(),
		Zone:      LabelDefault,
	}
}

// nextFireIn builds the candidate at tod on now's civil date in loc and
// moves it one civil day forward when it is more than GraceWindow old.
func nextFireIn(tod TimeOfDay, loc *time.Location, now time.Time, label, localTime string) FireTime {
	localNow := now.In(loc)
	target := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), tod.Hour, tod.Minute, 0, 0, loc)
	if localNow.Sub(target) > GraceWindow {
		target = time.Date(localNow.Year(), localNow.Month(), localNow.Day()+1, tod.Hour, tod.Minute, 0, 0, loc)
	}
	at := target.UTC()
	return FireTime{
		At:        at,
		Wait:      at.Sub(now),
		LocalTime: localTime,
		Zone:      label,
	}
}
