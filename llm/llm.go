/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kavana-health/vault/logging"
)

var logger = logging.Logger(logging.SourceLLM)

var (
	// ErrUnavailable is returned when the completion service cannot be
	// reached or answers with a non-success status.
	ErrUnavailable = errors.New("completion service unavailable")
	// ErrNotConfigured is returned when no backend credentials were given.
	ErrNotConfigured = errors.New("completion service not configured")
)

// Role of a chat message author.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an inline image attached to a message.
type Image struct {
	Data     []byte
	MIMEType string
}

// NewImage wraps raw image bytes, sniffing the MIME type from the content.
func NewImage(data []byte) Image {
	return Image{Data: data, MIMEType: DetectImageType(data)}
}

// DetectImageType sniffs an image MIME type, defaulting to image/png when
// the content is not recognised as an image.
func DetectImageType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "image/png"
	}
	return mimeType
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
	Images  []Image
}

// Request describes a single completion call.
type Request struct {
	System      string
	Messages    []Message
	JSON        bool // ask the model for a strict JSON object
	Temperature *float32
	MaxTokens   int
}

// Completer is a chat completion backend.
type Completer interface {
	// Complete returns the full assistant reply.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream calls onChunk for every piece of text as it arrives.
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
}

// Temperature returns a pointer suitable for Request.Temperature.
func Temperature(t float32) *float32 {
	return &t
}
