/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIConfig holds the settings of an OpenAI-compatible server. Any
// server exposing /v1/chat/completions works, including Ollama.
type OpenAIConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// NewOpenAI creates a client from the given configuration.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.URL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("%w: URL and model must be set", ErrNotConfigured)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &OpenAIClient{
		endpoint: strings.TrimSuffix(cfg.URL, "/") + "/v1/chat/completions",
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Stream         bool            `json:"stream,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatDelta struct {
	Content string `json:"content"`
}

type chatChoice struct {
	Message chatDelta `json:"message"`
	Delta   chatDelta `json:"delta"` // streaming responses
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) buildRequest(req Request, stream bool) chatRequest {
	body := chatRequest{
		Model:       c.model,
		Stream:      stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		if len(m.Images) == 0 {
			body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
			continue
		}

		parts := make([]contentPart, 0, len(m.Images)+1)
		if m.Content != "" {
			parts = append(parts, contentPart{Type: "text", Text: m.Content})
		}

		for _, img := range m.Images {
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: dataURL(img)},
			})
		}

		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: parts})
	}

	return body
}

func dataURL(img Image) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = DetectImageType(img.Data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func (c *OpenAIClient) do(ctx context.Context, body chatRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Warn("Completion request rejected", "status", resp.StatusCode, "model", c.model)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return resp, nil
}

// Complete sends a non-streaming completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.do(ctx, c.buildRequest(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", nil
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Stream sends a streaming completion request and reads the server-sent
// events line by line.
func (c *OpenAIClient) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	resp, err := c.do(ctx, c.buildRequest(req, true))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read stream: %w", err)
		}

		lineStr := strings.TrimSpace(string(line))
		if data, ok := strings.CutPrefix(lineStr, "data: "); ok {
			if data == "[DONE]" {
				return nil
			}

			var chatResp chatResponse
			if jsonErr := json.Unmarshal([]byte(data), &chatResp); jsonErr == nil {
				if chatResp.Error != nil {
					return fmt.Errorf("%w: %s", ErrUnavailable, chatResp.Error.Message)
				}

				if len(chatResp.Choices) > 0 && chatResp.Choices[0].Delta.Content != "" {
					if cbErr := onChunk(chatResp.Choices[0].Delta.Content); cbErr != nil {
						return cbErr
					}
				}
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
