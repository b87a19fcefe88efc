/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
)

// Session keys.
const (
	sessionUserID      = "user_id"
	sessionExternalID  = "external_id"
	sessionDisplayName = "user_display_name"
)

// AuthConfig describes how the authenticating proxy passes identities.
type AuthConfig struct {
	// Header carries the external user id set by the trusted proxy.
	Header string
	// NameHeader optionally carries the user's display name.
	NameHeader string
	// DevUser is used when Header is absent. Development only.
	DevUser string
	// LogoutURL is where users are sent after logging out.
	LogoutURL string
}

// ProxyAuth resolves the identity asserted by the proxy into a vault user
// and keeps its id in the session. Requests without an identity lose any
// previous session identity.
func ProxyAuth(cfg AuthConfig) flamego.Handler {
	return func(c flamego.Context, s session.Session, store Store) {
		externalID := strings.TrimSpace(c.Request().Header.Get(cfg.Header))
		if externalID == "" {
			externalID = cfg.DevUser
		}

		if externalID == "" {
			clearSessionUser(s)
			c.Next()
			return
		}

		if current, _ := s.Get(sessionExternalID).(string); current == externalID {
			if _, ok := getSessionUserID(s); ok {
				c.Next()
				return
			}
		}

		displayName := ""
		if cfg.NameHeader != "" {
			displayName = strings.TrimSpace(c.Request().Header.Get(cfg.NameHeader))
		}

		user, err := store.EnsureUser(c.Request().Context(), externalID, displayName)
		if err != nil {
			logger.Error("Failed to resolve user", "external_id", externalID, "error", err)
			http.Error(c.ResponseWriter(), http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		s.Set(sessionUserID, user.ID)
		s.Set(sessionExternalID, externalID)
		s.Set(sessionDisplayName, user.DisplayName)

		logger.Info("User signed in", "user_id", user.ID, "external_id", externalID)

		c.Next()
	}
}

// RequireAuth rejects requests without a session user.
func RequireAuth(s session.Session, c flamego.Context) {
	if _, ok := getSessionUserID(s); !ok {
		logAccessDenied(c, s, "unauthenticated", http.StatusUnauthorized)

		if strings.HasPrefix(c.Request().URL.Path, "/api/") {
			writeJSONError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	c.Next()
}

// UserContextInjector exposes the session user to templates.
func UserContextInjector() flamego.Handler {
	return func(s session.Session, data template.Data) {
		if _, ok := getSessionUserID(s); !ok {
			return
		}

		data["IsAuthenticated"] = true
		data["DisplayName"], _ = s.Get(sessionDisplayName).(string)
	}
}

// Logout clears the session and hands the user back to the proxy.
func Logout(cfg AuthConfig) flamego.Handler {
	return func(s session.Session, c flamego.Context) {
		clearSessionUser(s)

		target := cfg.LogoutURL
		if target == "" {
			target = "/"
		}

		c.Redirect(target, http.StatusSeeOther)
	}
}

func clearSessionUser(s session.Session) {
	s.Delete(sessionUserID)
	s.Delete(sessionExternalID)
	s.Delete(sessionDisplayName)
}

func getSessionUserID(s session.Session) (string, bool) {
	if val := s.Get(sessionUserID); val != nil {
		if userID, ok := val.(string); ok && userID != "" {
			return userID, true
		}
	}

	return "", false
}

// requireSessionUserID is used by handlers behind RequireAuth.
func requireSessionUserID(s session.Session) (string, error) {
	userID, ok := getSessionUserID(s)
	if !ok {
		return "", errSessionUserMissing
	}
	return userID, nil
}
