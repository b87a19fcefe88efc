// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func TestNewGeminiRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewGemini(context.Background(), GeminiConfig{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGeminiComplete(t *testing.T) {
	t.Parallel()

	var body string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/test-model:generateContent") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewGemini(context.Background(), GeminiConfig{APIKey: "key", Model: "test-model", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}

	reply, err := client.Complete(context.Background(), Request{
		System:   "extract",
		JSON:     true,
		Messages: []Message{{Role: RoleUser, Content: "read", Images: []Image{NewImage(pngHeader)}}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if reply != `{"ok":true}` {
		t.Fatalf("unexpected reply %q", reply)
	}

	if !strings.Contains(body, "inlineData") || !strings.Contains(body, "systemInstruction") {
		t.Fatalf("expected inline image and system instruction in request, got %s", body)
	}
}

func TestGeminiUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewGemini(context.Background(), GeminiConfig{APIKey: "key", Model: "test-model", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}

	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGeminiContentsRoles(t *testing.T) {
	t.Parallel()

	g := &GeminiClient{model: "test-model"}

	contents, config := g.contents(Request{
		System: "be brief",
		Messages: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi there"},
			{Role: RoleUser, Content: "bye"},
		},
	})

	want := []genai.Role{genai.RoleUser, genai.RoleModel, genai.RoleUser}
	if len(contents) != len(want) {
		t.Fatalf("expected %d contents, got %d", len(want), len(contents))
	}

	for i, c := range contents {
		if genai.Role(c.Role) != want[i] {
			t.Fatalf("content %d: expected role %q, got %q", i, want[i], c.Role)
		}
	}

	if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("unexpected system instruction %+v", config.SystemInstruction)
	}
}
