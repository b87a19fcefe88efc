/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"errors"
	"strings"

	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/llm"
)

// chatReply is the outcome of one chat turn.
type chatReply struct {
	Message string
	Title   string
}

// latestTest returns the user's latest test, or nil when there is none.
func latestTest(ctx context.Context, store Store, userID string) (*health.TestRecord, error) {
	latest, err := store.LatestTest(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return latest, err
}

// toLLMHistory converts stored messages into model messages.
func toLLMHistory(messages []db.ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))

	for _, m := range messages {
		role := llm.RoleUser
		if m.Role == db.RoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}

	return history
}

// pendingTurn is a chat turn whose user message is stored and whose reply is
// still to be generated.
type pendingTurn struct {
	conv    *db.Conversation
	latest  *health.TestRecord
	history []llm.Message
	message string
	first   bool
}

// beginChatTurn stores the user's message and collects what the assistant
// needs to answer it.
func beginChatTurn(ctx context.Context, store Store, userID, conversationID, message string) (*pendingTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errMessageRequired
	}

	conv, err := store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := store.ListMessages(ctx, userID, conv.ID)
	if err != nil {
		return nil, err
	}

	latest, err := latestTest(ctx, store, userID)
	if err != nil {
		return nil, err
	}

	userMsg, err := store.AddMessage(ctx, userID, conv.ID, db.RoleUser, message)
	if err != nil {
		return nil, err
	}

	return &pendingTurn{
		conv:    conv,
		latest:  latest,
		history: toLLMHistory(append(messages, *userMsg)),
		message: message,
		first:   len(messages) == 0,
	}, nil
}

// finishChatTurn stores the reply. The first message of an untitled
// conversation also names it.
func finishChatTurn(ctx context.Context, store Store, a *assistant.Assistant, userID string, turn *pendingTurn, reply string) (*chatReply, error) {
	if _, err := store.AddMessage(ctx, userID, turn.conv.ID, db.RoleAssistant, reply); err != nil {
		return nil, err
	}

	title := turn.conv.DisplayTitle()

	if turn.conv.NeedsTitle() && turn.first {
		generated, err := a.Title(ctx, turn.message)
		if err != nil {
			logger.Warn("Failed to generate conversation title", "conversation_id", turn.conv.ID, "error", err)
		}

		if generated != assistant.DefaultTitle {
			if err := store.RenameConversation(ctx, userID, turn.conv.ID, generated); err != nil {
				logger.Error("Failed to store conversation title", "conversation_id", turn.conv.ID, "error", err)
			} else {
				title = generated
			}
		}
	}

	return &chatReply{Message: reply, Title: title}, nil
}

// chatTurn answers one message, grounded in the user's latest test.
func chatTurn(ctx context.Context, store Store, a *assistant.Assistant, userID, conversationID, message string) (*chatReply, error) {
	turn, err := beginChatTurn(ctx, store, userID, conversationID, message)
	if err != nil {
		return nil, err
	}

	reply, err := a.Reply(ctx, turn.latest, turn.history)
	if err != nil {
		return nil, err
	}

	return finishChatTurn(ctx, store, a, userID, turn, reply)
}
