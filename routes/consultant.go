/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/llm"
)

const consultantPath = "/consultant"

// Consultant opens the most recent conversation, or an empty chat when the
// user has none.
func Consultant(c flamego.Context, s session.Session, store Store, t template.Template, data template.Data) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	latest, err := store.LatestConversation(c.Request().Context(), userID)
	switch {
	case err == nil:
		c.Redirect(consultantPath+"/"+latest.ID, http.StatusSeeOther)
		return
	case !errors.Is(err, db.ErrNotFound):
		logger.Error("Failed to load latest conversation", "user_id", userID, "error", err)
		data["Error"] = "Failed to load your conversations"
	}

	data["IsConsultant"] = true
	data["Conversations"] = []db.Conversation{}

	t.HTML(http.StatusOK, "consultant")
}

// NewConversation starts an empty conversation.
func NewConversation(c flamego.Context, s session.Session, store Store) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conv, err := store.CreateConversation(c.Request().Context(), userID)
	if err != nil {
		logger.Error("Failed to create conversation", "user_id", userID, "error", err)
		SetErrorFlash(s, "Failed to start a new chat")
		c.Redirect(consultantPath, http.StatusSeeOther)
		return
	}

	c.Redirect(consultantPath+"/"+conv.ID, http.StatusSeeOther)
}

// ViewConversation shows one conversation next to the conversation list.
func ViewConversation(c flamego.Context, s session.Session, store Store, t template.Template, data template.Data) {
	data["IsConsultant"] = true

	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ctx := c.Request().Context()

	conv, err := store.GetConversation(ctx, userID, c.Param("id"))
	if err != nil {
		conversationError(c, s, err)
		return
	}

	messages, err := store.ListMessages(ctx, userID, conv.ID)
	if err != nil {
		conversationError(c, s, err)
		return
	}

	conversations, err := store.ListConversations(ctx, userID)
	if err != nil {
		logger.Error("Failed to list conversations", "user_id", userID, "error", err)
	}

	data["Conversation"] = conv
	data["Messages"] = messages
	data["Conversations"] = conversations

	t.HTML(http.StatusOK, "consultant")
}

// SendMessage posts a message from the chat form and waits for the reply.
func SendMessage(c flamego.Context, s session.Session, store Store, a *assistant.Assistant) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conversationID := c.Param("id")
	target := consultantPath + "/" + conversationID

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(target, http.StatusSeeOther)
		return
	}

	_, err = chatTurn(c.Request().Context(), store, a, userID, conversationID, c.Request().Form.Get("message"))
	switch {
	case err == nil:
	case errors.Is(err, errMessageRequired):
		SetErrorFlash(s, "Message cannot be empty")
	case errors.Is(err, db.ErrNotFound):
		conversationError(c, s, err)
		return
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNotConfigured):
		logger.Error("Assistant unavailable", "conversation_id", conversationID, "error", err)
		SetErrorFlash(s, "The assistant is unavailable, please try again later")
	default:
		logger.Error("Failed to send message", "conversation_id", conversationID, "error", err)
		SetErrorFlash(s, "Failed to send message")
	}

	c.Redirect(target, http.StatusSeeOther)
}

// StreamMessage answers a message from the chat form as SSE. Reply text
// arrives as chunk events, followed by a title event and done.
func StreamMessage(c flamego.Context, s session.Session, store Store, a *assistant.Assistant) {
	sse := newSSEWriter(c.ResponseWriter())

	userID, err := requireSessionUserID(s)
	if err != nil {
		sse.fail("Unauthorized")
		return
	}

	if err := c.Request().ParseForm(); err != nil {
		sse.fail("Failed to parse form")
		return
	}

	ctx := c.Request().Context()
	conversationID := c.Param("id")

	turn, err := beginChatTurn(ctx, store, userID, conversationID, c.Request().Form.Get("message"))
	switch {
	case err == nil:
	case errors.Is(err, errMessageRequired):
		sse.fail("Message cannot be empty")
		return
	case errors.Is(err, db.ErrNotFound):
		sse.fail("Conversation not found")
		return
	default:
		logger.Error("Failed to start chat turn", "conversation_id", conversationID, "error", err)
		sse.fail("Failed to send message")
		return
	}

	var reply strings.Builder

	err = a.Stream(ctx, turn.latest, turn.history, func(chunk string) error {
		reply.WriteString(chunk)
		return sse.chunk(chunk)
	})
	if err != nil {
		logger.Error("Failed to stream reply", "conversation_id", conversationID, "error", err)
		sse.fail("The assistant is unavailable, please try again later")
		return
	}

	text := strings.TrimSpace(reply.String())
	if text == "" {
		text = assistant.FallbackReply
		_ = sse.chunk(text)
	}

	result, err := finishChatTurn(ctx, store, a, userID, turn, text)
	if err != nil {
		logger.Error("Failed to store reply", "conversation_id", conversationID, "error", err)
		sse.fail("Failed to save the reply")
		return
	}

	_ = sse.send("title", result.Title)
	sse.done()
}

// RenameConversation sets a conversation title from the rename form.
func RenameConversation(c flamego.Context, s session.Session, store Store) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conversationID := c.Param("id")
	target := consultantPath + "/" + conversationID

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(target, http.StatusSeeOther)
		return
	}

	title := strings.TrimSpace(c.Request().Form.Get("title"))
	if title == "" {
		SetErrorFlash(s, "Title cannot be empty")
		c.Redirect(target, http.StatusSeeOther)
		return
	}

	if err := store.RenameConversation(c.Request().Context(), userID, conversationID, assistant.CleanTitle(title)); err != nil {
		conversationError(c, s, err)
		return
	}

	c.Redirect(target, http.StatusSeeOther)
}

// DeleteConversation removes a conversation and its messages.
func DeleteConversation(c flamego.Context, s session.Session, store Store) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if err := store.DeleteConversation(c.Request().Context(), userID, c.Param("id")); err != nil {
		conversationError(c, s, err)
		return
	}

	SetSuccessFlash(s, "Conversation deleted")
	c.Redirect(consultantPath, http.StatusSeeOther)
}

func conversationError(c flamego.Context, s session.Session, err error) {
	if errors.Is(err, db.ErrNotFound) {
		SetErrorFlash(s, "Conversation not found")
	} else {
		logger.Error("Conversation request failed", "conversation_id", c.Param("id"), "error", err)
		SetErrorFlash(s, "Failed to load conversation")
	}

	c.Redirect(consultantPath, http.StatusSeeOther)
}
