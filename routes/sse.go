/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"
)

// sseWriter writes Server-Sent Events. Streaming keeps reverse proxies from
// timing out during long model generations.
type sseWriter struct {
	w http.ResponseWriter
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w}
}

func (s *sseWriter) send(event, data string) error {
	var sb strings.Builder

	if event != "" {
		sb.WriteString("event: " + event + "\n")
	}
	sb.WriteString("data: " + strings.ReplaceAll(data, "\n", "\ndata: ") + "\n\n")

	if _, err := s.w.Write([]byte(sb.String())); err != nil {
		return err
	}

	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

func (s *sseWriter) chunk(data string) error {
	return s.send("chunk", data)
}

func (s *sseWriter) fail(message string) {
	_ = s.send("error", message)
}

func (s *sseWriter) done() {
	_ = s.send("done", "")
}
