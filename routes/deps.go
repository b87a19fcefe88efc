/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"time"

	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
)

// Store is the persistence used by the handlers. *db.Store implements it.
type Store interface {
	Location() *time.Location

	EnsureUser(ctx context.Context, externalID, displayName string) (*db.User, error)

	SaveTest(ctx context.Context, userID string, record health.TestRecord) (*db.SaveResult, error)
	GetTest(ctx context.Context, userID, testID string) (*health.TestRecord, error)
	GetTestByDate(ctx context.Context, userID string, date time.Time) (*health.TestRecord, error)
	ListTests(ctx context.Context, userID string) ([]health.TestRecord, error)
	LatestTest(ctx context.Context, userID string) (*health.TestRecord, error)
	CountBiomarkers(ctx context.Context, userID string) (int, error)

	CreateConversation(ctx context.Context, userID string) (*db.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]db.Conversation, error)
	LatestConversation(ctx context.Context, userID string) (*db.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*db.Conversation, error)
	ListMessages(ctx context.Context, userID, conversationID string) ([]db.ChatMessage, error)
	AddMessage(ctx context.Context, userID, conversationID, role, content string) (*db.ChatMessage, error)
	RenameConversation(ctx context.Context, userID, conversationID, title string) error
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

// Ingester turns uploaded page images into a classified test record.
// *ingest.Pipeline implements it.
type Ingester interface {
	Ingest(ctx context.Context, images [][]byte) (*health.TestRecord, error)
}

var _ Store = (*db.Store)(nil)
