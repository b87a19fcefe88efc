/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package health

import (
	"strings"
	"time"
)

// StartOfDay returns midnight of t's calendar day in loc. A nil loc means UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	local := t.In(loc)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the half-open interval [start, end) covering t's
// calendar day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// SameKind reports whether two biomarkers measure the same analyte:
// case-insensitive name and exact unit.
func SameKind(a, b Biomarker) bool {
	return a.Unit == b.Unit && strings.ToLower(a.Name) == strings.ToLower(b.Name)
}

// IsDuplicate reports whether b repeats an existing measurement of the same
// kind with the same value.
func IsDuplicate(existing []Biomarker, b Biomarker) bool {
	for _, e := range existing {
		if SameKind(e, b) && e.Value == b.Value {
			return true
		}
	}

	return false
}

// MergeBiomarkers appends incoming biomarkers to existing ones, skipping
// exact repeats of an existing measurement. Same-kind entries with a
// different value are kept so same-day re-measurements survive. Existing
// entries are never modified or removed. The second return value lists the
// biomarkers that were appended.
func MergeBiomarkers(existing, incoming []Biomarker) ([]Biomarker, []Biomarker) {
	merged := make([]Biomarker, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)

	var appended []Biomarker

	for _, b := range incoming {
		if IsDuplicate(existing, b) {
			continue
		}

		merged = append(merged, b)
		appended = append(appended, b)
	}

	return merged, appended
}
