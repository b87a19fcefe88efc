/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"github.com/kavana-health/vault/archive"
	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/ingest"
	"github.com/kavana-health/vault/llm"
	"github.com/kavana-health/vault/metrics"
)

type uploadTestRequest struct {
	Images []string `json:"images"`
}

type parsedData struct {
	TestDate   time.Time          `json:"testDate"`
	Biomarkers []health.Biomarker `json:"biomarkers"`
}

type uploadTestResponse struct {
	Success         bool       `json:"success"`
	ParsedData      parsedData `json:"parsedData"`
	BiomarkersCount int        `json:"biomarkersCount"`
	TestID          string     `json:"testId"`
	Appended        int        `json:"appended"`
	Duplicates      int        `json:"duplicates"`
}

// APIUploadTest ingests base64 page images and stores the resulting test.
// parsedData holds what was read from this upload. testId names the stored,
// possibly merged, record.
func APIUploadTest(c flamego.Context, s session.Session, store Store, ingester Ingester, arch *archive.Archive, m *metrics.Metrics) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		writeJSONError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req uploadTestRequest
	if err := readJSON(c, &req); err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	images, err := ingest.DecodeImages(req.Images)
	if err != nil {
		status, message := uploadError(err)
		writeJSONError(c, status, message)
		return
	}

	outcome, err := uploadReport(c.Request().Context(), store, ingester, arch, m, userID, images, nil)
	if err != nil {
		status, message := uploadError(err)
		writeJSONError(c, status, message)
		return
	}

	writeJSON(c, http.StatusOK, uploadTestResponse{
		Success: true,
		ParsedData: parsedData{
			TestDate:   outcome.Extracted.TestDate,
			Biomarkers: outcome.Extracted.Biomarkers,
		},
		BiomarkersCount: len(outcome.Extracted.Biomarkers),
		TestID:          outcome.Saved.Record.ID,
		Appended:        outcome.Saved.Appended,
		Duplicates:      outcome.Saved.Duplicates,
	})
}

// APIListTests returns the user's tests, latest first. A date query
// parameter (YYYY-MM-DD) narrows the result to that calendar day.
func APIListTests(c flamego.Context, s session.Session, store Store) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		writeJSONError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if date := c.Query("date"); date != "" {
		apiTestByDate(c, store, userID, date)
		return
	}

	tests, err := store.ListTests(c.Request().Context(), userID)
	if err != nil {
		logger.Error("Failed to list tests", "user_id", userID, "error", err)
		writeJSONError(c, storageStatus(err), "Failed to load tests")
		return
	}

	if tests == nil {
		tests = []health.TestRecord{}
	}

	writeJSON(c, http.StatusOK, map[string]any{"tests": tests})
}

func apiTestByDate(c flamego.Context, store Store, userID, date string) {
	day, err := time.ParseInLocation(time.DateOnly, date, store.Location())
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	tests := []health.TestRecord{}

	record, err := store.GetTestByDate(c.Request().Context(), userID, day)
	switch {
	case err == nil:
		tests = append(tests, *record)
	case errors.Is(err, db.ErrNotFound):
	default:
		logger.Error("Failed to load test by date", "user_id", userID, "date", date, "error", err)
		writeJSONError(c, storageStatus(err), "Failed to load tests")
		return
	}

	writeJSON(c, http.StatusOK, map[string]any{"tests": tests})
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Title          string `json:"title"`
}

// APIChat answers one message. Without a conversationId a new conversation
// is started.
func APIChat(c flamego.Context, s session.Session, store Store, a *assistant.Assistant) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		writeJSONError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req chatRequest
	if err := readJSON(c, &req); err != nil {
		writeJSONError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request().Context()

	if req.ConversationID == "" {
		conv, err := store.CreateConversation(ctx, userID)
		if err != nil {
			logger.Error("Failed to create conversation", "user_id", userID, "error", err)
			writeJSONError(c, storageStatus(err), "Failed to start conversation")
			return
		}
		req.ConversationID = conv.ID
	}

	reply, err := chatTurn(ctx, store, a, userID, req.ConversationID, req.Message)
	switch {
	case err == nil:
	case errors.Is(err, errMessageRequired):
		writeJSONError(c, http.StatusBadRequest, "Message is required")
		return
	case errors.Is(err, db.ErrNotFound):
		writeJSONError(c, http.StatusNotFound, "Conversation not found")
		return
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNotConfigured):
		logger.Error("Assistant unavailable", "conversation_id", req.ConversationID, "error", err)
		writeJSONError(c, http.StatusBadGateway, "Failed to generate response")
		return
	default:
		logger.Error("Chat failed", "conversation_id", req.ConversationID, "error", err)
		writeJSONError(c, storageStatus(err), "Failed to generate response")
		return
	}

	writeJSON(c, http.StatusOK, chatResponse{
		ConversationID: req.ConversationID,
		Message:        reply.Message,
		Title:          reply.Title,
	})
}

func storageStatus(err error) int {
	if errors.Is(err, db.ErrStorageUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
