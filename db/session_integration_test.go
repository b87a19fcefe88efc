// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"net/http"
	"testing"
	"time"

	"github.com/flamego/session"
)

func TestPostgresSessionStoreLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := testContext()

	initer := PostgresSessionIniter()
	sessions, err := initer(ctx, PostgresSessionConfig{Pool: store.Pool(), Lifetime: time.Hour})
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}
	pgStore := sessions.(*PostgresSessionStore)

	noopWriter := func(_ http.ResponseWriter, _ *http.Request, _ string) {}

	sess := session.NewBaseSession("sess1", session.GobEncoder, noopWriter)
	sess.Set("user_id", "user-1")

	if err := pgStore.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !pgStore.Exist(ctx, "sess1") {
		t.Fatalf("expected session to exist")
	}

	readSess, err := pgStore.Read(ctx, "sess1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if readSess.Get("user_id") != "user-1" {
		t.Fatalf("expected user_id to match")
	}

	if err := pgStore.Touch(ctx, "sess1"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	fresh, err := pgStore.Read(ctx, "missing")
	if err != nil || fresh.Get("user_id") != nil {
		t.Fatalf("expected an empty session for unknown id, got %v", err)
	}

	if err := pgStore.Destroy(ctx, "sess1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if pgStore.Exist(ctx, "sess1") {
		t.Fatalf("expected session to be destroyed")
	}

	if _, err := store.Pool().Exec(ctx,
		`INSERT INTO flamego_sessions (id, data, expires_at) VALUES ('old', '\x00', NOW() - INTERVAL '1 hour')`); err != nil {
		t.Fatalf("failed to insert expired session: %v", err)
	}

	if err := pgStore.GC(ctx); err != nil {
		t.Fatalf("GC failed: %v", err)
	}

	var remaining int
	if err := store.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM flamego_sessions`).Scan(&remaining); err != nil || remaining != 0 {
		t.Fatalf("expected expired session to be collected, got %d (%v)", remaining, err)
	}
}
