package utils

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// LocalLayout is the wall-clock format the dashboard submits.
const LocalLayout = "2006-01-02T15:04"

var localLayouts = []string{
	"2006-01-02T15:04:05",
	LocalLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func NowInstant() time.Time {
	return time.Now().UTC()
}

// LocalToInstant converts a wall-clock time in the given IANA zone to an
// absolute instant in UTC. exact is false when the zone could not be applied
// (unknown zone, or a wall clock skipped by a DST transition); the input is then
// taken as already absolute. Inputs carrying their own offset are parsed as is.
func LocalToInstant(local, zone string) (instant time.Time, exact bool, err error) {
	if t, err := time.Parse(time.RFC3339, local); err == nil {
		return t.UTC(), true, nil
	}

	wall, err := parseWallClock(local)
	if err != nil {
		return time.Time{}, false, err
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return wall, false, nil
	}

	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
	if !sameWallClock(t, wall) {
		return wall, false, nil
	}
	return t.UTC(), true, nil
}

// InstantToLocal returns t in the given zone, or in UTC when the zone is unknown.
func InstantToLocal(t time.Time, zone string) time.Time {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

func FormatInZone(t time.Time, zone, layout string) string {
	return InstantToLocal(t, zone).Format(layout)
}

func IsDue(t time.Time) bool {
	return IsDueAt(t, time.Now())
}

func IsDueAt(t, now time.Time) bool {
	return !t.After(now)
}

// SoonestFuture returns the earliest instant strictly after now.
func SoonestFuture(instants []time.Time, now time.Time) (time.Time, bool) {
	var soonest time.Time
	found := false
	for _, t := range instants {
		if !t.After(now) {
			continue
		}
		if !found || t.Before(soonest) {
			soonest = t
			found = true
		}
	}
	return soonest, found
}

func parseWallClock(local string) (time.Time, error) {
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, local, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid local date time %q", local)
}

func sameWallClock(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
