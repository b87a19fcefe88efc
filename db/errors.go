/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStorageUnavailable is returned when the database cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned when a record does not exist for the user.
	ErrNotFound = errors.New("not found")

	ErrDatabaseURLNotSet                = errors.New("database URL is not set")
	ErrDatabaseNameNotSpecified         = errors.New("database name not specified in connection URL")
	ErrDatabaseConnectionNotInitialized = fmt.Errorf("%w: database connection not initialized", ErrStorageUnavailable)
	ErrUserIDRequired                   = errors.New("user id is required")
	ErrInvalidRole                      = errors.New("invalid message role")
)

// storageError annotates err with op and marks connectivity failures with
// ErrStorageUnavailable.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}

	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, ErrStorageUnavailable) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.SafeToRetry(err)
}
