/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultConversationTitle is shown until a conversation is named.
const DefaultConversationTitle = "New Chat"

// Message roles stored in chat_messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation groups the messages of one chat with the assistant.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayTitle returns the title or the default placeholder.
func (c Conversation) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return DefaultConversationTitle
	}
	return c.Title
}

// NeedsTitle reports whether the conversation still has no title of its own.
func (c Conversation) NeedsTitle() bool {
	title := strings.TrimSpace(c.Title)
	return title == "" || title == DefaultConversationTitle
}

// ChatMessage is one message of a conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

const conversationColumns = `id, user_id, title, message_count, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.MessageCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageError("failed to scan conversation", err)
	}
	return &c, nil
}

// CreateConversation starts an empty conversation for the user.
func (s *Store) CreateConversation(ctx context.Context, userID string) (*Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	return scanConversation(s.pool.QueryRow(ctx, `
		INSERT INTO conversations (user_id) VALUES ($1)
		RETURNING `+conversationColumns,
		userID,
	))
}

// ListConversations returns the user's conversations, most recently active
// first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, storageError("failed to list conversations", err)
	}

	conversations, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Conversation])
	if err != nil {
		return nil, storageError("failed to scan conversations", err)
	}

	return conversations, nil
}

// LatestConversation returns the user's most recently active conversation.
func (s *Store) LatestConversation(ctx context.Context, userID string) (*Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	return scanConversation(s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1`,
		userID,
	))
}

// GetConversation returns one of the user's conversations.
func (s *Store) GetConversation(ctx context.Context, userID, conversationID string) (*Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, ErrNotFound
	}

	return scanConversation(s.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1 AND id = $2`,
		userID, conversationID,
	))
}

// ListMessages returns the messages of a conversation in chronological order.
func (s *Store) ListMessages(ctx context.Context, userID, conversationID string) ([]ChatMessage, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, role, content, created_at FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil, storageError("failed to list messages", err)
	}

	messages, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ChatMessage])
	if err != nil {
		return nil, storageError("failed to scan messages", err)
	}

	return messages, nil
}

// AddMessage appends a message, increments the message count and bumps the
// conversation's activity time.
func (s *Store) AddMessage(ctx context.Context, userID, conversationID, role, content string) (*ChatMessage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if role != RoleUser && role != RoleAssistant {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, ErrNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Failed to roll back message", "error", err)
		}
	}()

	var msg ChatMessage

	err = tx.QueryRow(ctx, `
		INSERT INTO chat_messages (conversation_id, role, content)
		SELECT id, $3, $4 FROM conversations WHERE id = $1 AND user_id = $2
		RETURNING id, role, content, created_at`,
		conversationID, userID, role, content,
	).Scan(&msg.ID, &msg.Role, &msg.Content, &msg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storageError("failed to insert message", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations SET message_count = message_count + 1, updated_at = $2
		WHERE id = $1`,
		conversationID, msg.CreatedAt,
	)
	if err != nil {
		return nil, storageError("failed to update conversation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit message", err)
	}

	return &msg, nil
}

// RenameConversation sets a conversation's title.
func (s *Store) RenameConversation(ctx context.Context, userID, conversationID, title string) error {
	if err := s.ready(); err != nil {
		return err
	}

	if _, err := uuid.Parse(conversationID); err != nil {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET title = $3 WHERE id = $1 AND user_id = $2`,
		conversationID, userID, strings.TrimSpace(title),
	)
	if err != nil {
		return storageError("failed to rename conversation", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteConversation removes a conversation together with its messages.
func (s *Store) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	if _, err := uuid.Parse(conversationID); err != nil {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		return storageError("failed to delete conversation", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
