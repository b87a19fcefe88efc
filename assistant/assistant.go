/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/llm"
	"github.com/kavana-health/vault/logging"
)

var logger = logging.Logger(logging.SourceAssistant)

const (
	// DefaultTitle names conversations the model could not title.
	DefaultTitle = "New Chat"
	// FallbackReply is sent when the model returns no text.
	FallbackReply = "I'm sorry, I couldn't generate a response."

	noDataContext  = "No biomarker tests uploaded yet. Encourage the user to upload their blood test PDFs."
	maxTitleLength = 60
)

// ErrEmptyMessage is returned for blank user messages.
var ErrEmptyMessage = errors.New("message is empty")

// Assistant answers questions grounded in the user's latest test record.
type Assistant struct {
	completer llm.Completer
	loc       *time.Location
}

// New returns an assistant. Dates in prompts are rendered in loc.
func New(completer llm.Completer, loc *time.Location) *Assistant {
	if loc == nil {
		loc = time.UTC
	}
	return &Assistant{completer: completer, loc: loc}
}

// FormatValue renders a measurement the way it is shown to users and the
// model: shortest exact decimal, no trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildContext summarizes the latest test for the system prompt. It returns
// the date line and the biomarker line, either of which may be empty.
func BuildContext(latest *health.TestRecord, loc *time.Location) (string, string) {
	if latest == nil {
		return "", ""
	}
	if loc == nil {
		loc = time.UTC
	}

	dateLine := "Latest test date: " + latest.TestDate.In(loc).Format("January 2, 2006")

	parts := make([]string, 0, len(latest.Biomarkers))
	for _, b := range latest.Biomarkers {
		parts = append(parts, fmt.Sprintf("%s: %s %s (%s)", b.Name, FormatValue(b.Value), b.Unit, b.Status))
	}

	return dateLine, strings.Join(parts, ", ")
}

// SystemPrompt returns the consultant instructions with the user's data.
func (a *Assistant) SystemPrompt(latest *health.TestRecord) string {
	dateLine, biomarkers := BuildContext(latest, a.loc)

	var sb strings.Builder

	sb.WriteString("You are a Kavana Health Specialist, an expert in health optimization, biomarker interpretation and personalized wellness strategies.\n\n")
	sb.WriteString("User's Health Data:\n")

	if dateLine != "" {
		sb.WriteString("- " + dateLine + "\n")
	}

	if biomarkers != "" {
		sb.WriteString("- Recent Biomarkers: " + biomarkers + "\n")
	} else {
		sb.WriteString("- " + noDataContext + "\n")
	}

	sb.WriteString(`
Your role is to:
1. Interpret biomarker data in the context of optimal health
2. Provide evidence-based recommendations for health optimization
3. Explain complex health concepts in clear, actionable terms
4. Suggest lifestyle, nutrition and supplementation strategies
5. Reference specific biomarkers by name when discussing results
6. If no test data is available, guide users on what tests to get and how to upload them

Always be professional and empathetic, and focus on actionable insights. Use basic markdown but no headings.`)

	return sb.String()
}

func (a *Assistant) chatRequest(latest *health.TestRecord, history []llm.Message) llm.Request {
	return llm.Request{
		System:      a.SystemPrompt(latest),
		Messages:    history,
		Temperature: llm.Temperature(0.7),
		MaxTokens:   1000,
	}
}

// Reply answers the last user message of history.
func (a *Assistant) Reply(ctx context.Context, latest *health.TestRecord, history []llm.Message) (string, error) {
	if len(history) == 0 || strings.TrimSpace(history[len(history)-1].Content) == "" {
		return "", ErrEmptyMessage
	}

	reply, err := a.completer.Complete(ctx, a.chatRequest(latest, history))
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		logger.Warn("Model returned an empty reply")
		return FallbackReply, nil
	}

	return reply, nil
}

// Stream answers the last user message of history chunk by chunk.
func (a *Assistant) Stream(ctx context.Context, latest *health.TestRecord, history []llm.Message, onChunk func(string) error) error {
	if len(history) == 0 || strings.TrimSpace(history[len(history)-1].Content) == "" {
		return ErrEmptyMessage
	}

	return a.completer.Stream(ctx, a.chatRequest(latest, history), onChunk)
}

const titlePrompt = `You generate short, descriptive titles for chat conversations from the first user message.

Rules:
1. The title is 3-5 words
2. It captures the main topic or intent of the conversation
3. Use title case
4. Do not include quotation marks or punctuation
5. Focus on the health topic if it is about health, biomarkers or wellness

Examples:
- "What does my vitamin D level mean?" -> Vitamin D Analysis
- "How can I improve my cholesterol?" -> Cholesterol Improvement
- "What supplements should I take?" -> Supplement Recommendations

Return only the title.`

// Title names a conversation from its first message. It returns
// DefaultTitle alongside any error.
func (a *Assistant) Title(ctx context.Context, firstMessage string) (string, error) {
	firstMessage = strings.TrimSpace(firstMessage)
	if firstMessage == "" {
		return DefaultTitle, ErrEmptyMessage
	}

	reply, err := a.completer.Complete(ctx, llm.Request{
		System: titlePrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Generate a title for this conversation based on the first message: %q", firstMessage),
		}},
		Temperature: llm.Temperature(0.7),
		MaxTokens:   20,
	})
	if err != nil {
		return DefaultTitle, fmt.Errorf("failed to generate title: %w", err)
	}

	return CleanTitle(reply), nil
}

// CleanTitle trims a model generated title, removes surrounding quotes and
// falls back to DefaultTitle when nothing is left.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimPrefix(title, `"`)
	title = strings.TrimPrefix(title, "'")
	title = strings.TrimSuffix(title, `"`)
	title = strings.TrimSuffix(title, "'")
	title = strings.Join(strings.Fields(title), " ")

	if title == "" {
		return DefaultTitle
	}

	if r := []rune(title); len(r) > maxTitleLength {
		title = strings.TrimSpace(string(r[:maxTitleLength]))
	}

	return title
}
