// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package schema

import (
	"fmt"
	"strings"
	"time"
)

// InstantLayout is the canonical absolute-instant representation sent to the server.
const InstantLayout = "2006-01-02T15:04:05.000Z"

// LocalDatetimeLayout is the zero-padded wall-clock representation used for editing.
const LocalDatetimeLayout = "2006-01-02T15:04:05"

// localLayouts are interpreted in the caller's location.
var localLayouts = []string{
	LocalDatetimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ToLocalDatetimeText formats an absolute instant as local wall-clock text.
func ToLocalDatetimeText(instant string) (string, error) {
	return ToLocalDatetimeTextIn(instant, time.Local)
}

// ToLocalDatetimeTextIn is ToLocalDatetimeText for an explicit location.
func ToLocalDatetimeTextIn(instant string, loc *time.Location) (string, error) {
	t, err := parseTime(instant, loc)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format(LocalDatetimeLayout), nil
}

// ToInstant reads local wall-clock text (or any RFC 3339 instant) and returns the
// canonical absolute instant.
func ToInstant(text string) (string, error) {
	return ToInstantIn(text, time.Local)
}

// ToInstantIn is ToInstant for an explicit location.
func ToInstantIn(text string, loc *time.Location) (string, error) {
	t, err := parseTime(text, loc)
	if err != nil {
		return "", err
	}
	return FormatInstant(t), nil
}

// FormatInstant renders t in the canonical instant layout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

func parseTime(text string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(text)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if wall, err := time.Parse(layout, s); err == nil {
			return inLocation(wall, loc), nil
		}
	}
	// A bare date is an absolute UTC midnight, not a local one.
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", text)
}

// inLocation reads the UTC fields of wall as wall-clock time in loc. A wall
// time repeated by a daylight-saving fall-back resolves to the earlier instant.
func inLocation(wall time.Time, loc *time.Location) time.Time {
	var best time.Time
	for _, near := range []time.Time{wall.Add(-12 * time.Hour), wall.Add(12 * time.Hour)} {
		_, offset := near.In(loc).Zone()
		t := wall.Add(-time.Duration(offset) * time.Second).In(loc)
		if sameWall(t, wall) && (best.IsZero() || t.Before(best)) {
			best = t
		}
	}
	if best.IsZero() {
		// Skipped by a spring-forward gap.
		return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)
	}
	return best
}

func sameWall(t, wall time.Time) bool {
	y, mo, d := t.Date()
	wy, wmo, wd := wall.Date()
	return y == wy && mo == wmo && d == wd &&
		t.Hour() == wall.Hour() && t.Minute() == wall.Minute() && t.Second() == wall.Second() && t.Nanosecond() == wall.Nanosecond()
}
