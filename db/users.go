/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"strings"
	"time"
)

// User is an account known to the vault. ExternalID is the identity given
// by the authentication provider.
type User struct {
	ID          string
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// EnsureUser returns the user for externalID, creating it on first sight.
// A non-empty displayName replaces the stored one.
func (s *Store) EnsureUser(ctx context.Context, externalID, displayName string) (*User, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrUserIDRequired
	}

	var u User

	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (external_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
			last_seen_at = NOW()
		RETURNING id, external_id, display_name, created_at, last_seen_at`,
		externalID, strings.TrimSpace(displayName),
	).Scan(&u.ID, &u.ExternalID, &u.DisplayName, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		return nil, storageError("failed to upsert user", err)
	}

	return &u, nil
}
