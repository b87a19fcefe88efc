/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"html/template"
	"time"

	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/health"
)

// TemplateFuncs returns the helpers available to page templates. Dates are
// shown in loc.
func TemplateFuncs(loc *time.Location) template.FuncMap {
	if loc == nil {
		loc = time.UTC
	}

	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.In(loc).Format("January 2, 2006")
		},
		"formatShortDate": func(t time.Time) string {
			return t.In(loc).Format("Jan 2, 2006")
		},
		"formatTime": func(t time.Time) string {
			return t.In(loc).Format("Jan 2, 15:04")
		},
		"formatValue": assistant.FormatValue,
		"statusLabel": statusLabel,
		"categoryLabel": func(c health.Category) string {
			return c.Label()
		},
	}
}

func statusLabel(s health.Status) string {
	switch s {
	case health.StatusOptimal:
		return "Optimal"
	case health.StatusSubOptimal:
		return "Sub-optimal"
	case health.StatusDanger:
		return "Out of range"
	default:
		return string(s)
	}
}
