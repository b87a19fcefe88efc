/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/template"

	"github.com/kavana-health/vault/archive"
	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/metrics"
)

// CSRFInjector adds the CSRF token to template data.
func CSRFInjector() flamego.Handler {
	return func(x csrf.CSRF, data template.Data) {
		data["csrf_token"] = x.Token()
	}
}

// NoCacheHeaders keeps health data out of shared caches and search indexes.
func NoCacheHeaders() flamego.Handler {
	return func(c flamego.Context) {
		header := c.ResponseWriter().Header()
		header.Set("X-Robots-Tag", "noindex, nofollow, noarchive, nosnippet")

		if c.Request().Method == http.MethodGet || c.Request().Method == http.MethodHead {
			header.Set("Cache-Control", "no-store, max-age=0")
			header.Set("Pragma", "no-cache")
		}

		c.Next()
	}
}

// ServiceInjector maps the services shared by all handlers. arch and m are
// nil when the archive or metrics are disabled.
func ServiceInjector(store Store, ingester Ingester, a *assistant.Assistant, arch *archive.Archive, m *metrics.Metrics) flamego.Handler {
	return func(c flamego.Context) {
		c.MapTo(store, (*Store)(nil))
		c.MapTo(ingester, (*Ingester)(nil))
		c.Map(a, arch, m)
	}
}
