/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/flamego/flamego"
)

// maxJSONBody bounds API request bodies. Page images are sent inline.
const maxJSONBody = 64 << 20

func writeJSON(c flamego.Context, status int, v any) {
	w := c.ResponseWriter()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeJSONError(c flamego.Context, status int, message string) {
	writeJSON(c, status, map[string]string{"error": message})
}

func readJSON(c flamego.Context, v any) error {
	body := http.MaxBytesReader(c.ResponseWriter(), c.Request().Request.Body, maxJSONBody)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidRequestBody, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidRequestBody, err)
	}

	return nil
}
