// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/llm"
	"github.com/kavana-health/vault/metrics"
)

type testSession struct {
	id    string
	data  map[interface{}]interface{}
	flash interface{}
}

func newTestSession() *testSession {
	return &testSession{
		id:   "test-session",
		data: make(map[interface{}]interface{}),
	}
}

func newUserSession(userID string) *testSession {
	s := newTestSession()
	s.Set(sessionUserID, userID)
	return s
}

func (s *testSession) ID() string {
	return s.id
}

func (s *testSession) RegenerateID(http.ResponseWriter, *http.Request) error {
	return nil
}

func (s *testSession) Get(key interface{}) interface{} {
	return s.data[key]
}

func (s *testSession) Set(key, val interface{}) {
	s.data[key] = val
}

func (s *testSession) SetFlash(val interface{}) {
	s.flash = val
}

func (s *testSession) Delete(key interface{}) {
	delete(s.data, key)
}

func (s *testSession) Flush() {
	s.data = make(map[interface{}]interface{})
}

func (s *testSession) Encode() ([]byte, error) {
	return nil, nil
}

func (s *testSession) HasChanged() bool {
	return true
}

type testCSRF struct {
	token string
}

func (c testCSRF) Token() string {
	return c.token
}

func (c testCSRF) ValidToken(string) bool {
	return true
}

func (c testCSRF) Error(http.ResponseWriter) {}

func (c testCSRF) Validate(flamego.Context) {}

func assertFlash(t *testing.T, s *testSession, wantType FlashType, wantMessage string) {
	t.Helper()

	msg, ok := s.flash.(FlashMessage)
	if !ok {
		t.Fatalf("expected flash message, got %#v", s.flash)
	}

	if msg.Type != wantType || msg.Message != wantMessage {
		t.Fatalf("unexpected flash %#v, want %s %q", msg, wantType, wantMessage)
	}
}

// memoryStore is an in-memory Store with the same merge semantics as the
// database.
type memoryStore struct {
	mu            sync.Mutex
	loc           *time.Location
	users         map[string]*db.User
	tests         []*health.TestRecord
	conversations []*db.Conversation
	messages      map[string][]db.ChatMessage
	nextID        int

	saveErr         error
	userErr         error
	conversationErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		loc:      time.UTC,
		users:    make(map[string]*db.User),
		messages: make(map[string][]db.ChatMessage),
	}
}

func (m *memoryStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memoryStore) Location() *time.Location { return m.loc }

func (m *memoryStore) EnsureUser(_ context.Context, externalID, displayName string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.userErr != nil {
		return nil, m.userErr
	}

	u, ok := m.users[externalID]
	if !ok {
		u = &db.User{ID: m.id("user"), ExternalID: externalID}
		m.users[externalID] = u
	}
	if displayName != "" {
		u.DisplayName = displayName
	}

	copied := *u
	return &copied, nil
}

func (m *memoryStore) SaveTest(_ context.Context, userID string, record health.TestRecord) (*db.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, m.saveErr
	}

	day := health.StartOfDay(record.TestDate, m.loc)

	for _, existing := range m.tests {
		if existing.UserID != userID || !existing.TestDate.Equal(day) {
			continue
		}

		merged, appended := health.MergeBiomarkers(existing.Biomarkers, record.Biomarkers)
		existing.Biomarkers = merged
		existing.UploadedAt = record.UploadedAt
		if record.PDFURL != "" {
			existing.PDFURL = record.PDFURL
		}

		return &db.SaveResult{
			Record:     *existing,
			Appended:   len(appended),
			Duplicates: len(record.Biomarkers) - len(appended),
		}, nil
	}

	stored := record
	stored.ID = m.id("test")
	stored.UserID = userID
	stored.TestDate = day
	m.tests = append(m.tests, &stored)

	return &db.SaveResult{Record: stored, Created: true, Appended: len(record.Biomarkers)}, nil
}

func (m *memoryStore) userTests(userID string) []health.TestRecord {
	var tests []health.TestRecord
	for _, t := range m.tests {
		if t.UserID == userID {
			tests = append(tests, *t)
		}
	}

	sort.Slice(tests, func(i, j int) bool { return tests[i].TestDate.After(tests[j].TestDate) })

	return tests
}

func (m *memoryStore) GetTest(_ context.Context, userID, testID string) (*health.TestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tests {
		if t.UserID == userID && t.ID == testID {
			copied := *t
			return &copied, nil
		}
	}

	return nil, db.ErrNotFound
}

func (m *memoryStore) GetTestByDate(_ context.Context, userID string, date time.Time) (*health.TestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := health.StartOfDay(date, m.loc)

	for _, t := range m.tests {
		if t.UserID == userID && t.TestDate.Equal(day) {
			copied := *t
			return &copied, nil
		}
	}

	return nil, db.ErrNotFound
}

func (m *memoryStore) ListTests(_ context.Context, userID string) ([]health.TestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.userTests(userID), nil
}

func (m *memoryStore) LatestTest(_ context.Context, userID string) (*health.TestRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tests := m.userTests(userID)
	if len(tests) == 0 {
		return nil, db.ErrNotFound
	}

	return &tests[0], nil
}

func (m *memoryStore) CountBiomarkers(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, t := range m.userTests(userID) {
		count += len(t.Biomarkers)
	}

	return count, nil
}

func (m *memoryStore) CreateConversation(_ context.Context, userID string) (*db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	c := &db.Conversation{ID: m.id("conv"), UserID: userID, CreatedAt: now, UpdatedAt: now}
	m.conversations = append(m.conversations, c)

	copied := *c
	return &copied, nil
}

func (m *memoryStore) findConversation(userID, conversationID string) (*db.Conversation, error) {
	for _, c := range m.conversations {
		if c.UserID == userID && c.ID == conversationID {
			return c, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memoryStore) ListConversations(_ context.Context, userID string) ([]db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []db.Conversation
	for i := len(m.conversations) - 1; i >= 0; i-- {
		if m.conversations[i].UserID == userID {
			result = append(result, *m.conversations[i])
		}
	}

	return result, nil
}

func (m *memoryStore) LatestConversation(_ context.Context, userID string) (*db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conversationErr != nil {
		return nil, m.conversationErr
	}

	for i := len(m.conversations) - 1; i >= 0; i-- {
		if m.conversations[i].UserID == userID {
			copied := *m.conversations[i]
			return &copied, nil
		}
	}

	return nil, db.ErrNotFound
}

func (m *memoryStore) GetConversation(_ context.Context, userID, conversationID string) (*db.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.findConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}

	copied := *c
	return &copied, nil
}

func (m *memoryStore) ListMessages(_ context.Context, userID, conversationID string) ([]db.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findConversation(userID, conversationID); err != nil {
		return nil, err
	}

	return append([]db.ChatMessage(nil), m.messages[conversationID]...), nil
}

func (m *memoryStore) AddMessage(_ context.Context, userID, conversationID, role, content string) (*db.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.findConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := db.ChatMessage{ID: m.id("msg"), Role: role, Content: content, CreatedAt: time.Now()}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	c.MessageCount++
	c.UpdatedAt = msg.CreatedAt

	return &msg, nil
}

func (m *memoryStore) RenameConversation(_ context.Context, userID, conversationID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.findConversation(userID, conversationID)
	if err != nil {
		return err
	}

	c.Title = title
	return nil
}

func (m *memoryStore) DeleteConversation(_ context.Context, userID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.conversations {
		if c.UserID == userID && c.ID == conversationID {
			m.conversations = append(m.conversations[:i], m.conversations[i+1:]...)
			delete(m.messages, conversationID)
			return nil
		}
	}

	return db.ErrNotFound
}

// fakeIngester returns a copy of record, or err.
type fakeIngester struct {
	record *health.TestRecord
	err    error
	images [][]byte
}

func (f *fakeIngester) Ingest(_ context.Context, images [][]byte) (*health.TestRecord, error) {
	f.images = images
	if f.err != nil {
		return nil, f.err
	}

	copied := *f.record
	copied.Biomarkers = append([]health.Biomarker(nil), f.record.Biomarkers...)
	return &copied, nil
}

// fakeCompleter answers chat requests with reply and title requests with
// title.
type fakeCompleter struct {
	reply  string
	title  string
	chunks []string
	err    error

	mu       sync.Mutex
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	if strings.Contains(req.System, "titles for chat conversations") {
		return f.title, nil
	}

	return f.reply, nil
}

func (f *fakeCompleter) Stream(_ context.Context, req llm.Request, onChunk func(string) error) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}

	return nil
}

func sampleRecord() *health.TestRecord {
	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	return &health.TestRecord{
		TestDate:   date,
		UploadedAt: date.Add(10 * time.Hour),
		Source:     health.SourcePDFUpload,
		Biomarkers: []health.Biomarker{
			{ID: "b1", Name: "Vitamin D", Value: 42, Unit: "ng/mL", OptimalRange: health.Range{Min: 30, Max: 100}, Status: health.StatusOptimal, Category: health.CategoryNutrients, TestDate: date},
			{ID: "b2", Name: "LDL Cholesterol", Value: 131, Unit: "mg/dL", OptimalRange: health.Range{Min: 0, Max: 100}, Status: health.StatusDanger, Category: health.CategoryCardiovascular, TestDate: date},
		},
	}
}

// testApp wires handlers the way the server does, with s as the session.
type testApp struct {
	*flamego.Flame
	store     *memoryStore
	ingester  *fakeIngester
	completer *fakeCompleter
	metrics   *metrics.Metrics
}

func newTestApp(s session.Session) *testApp {
	app := &testApp{
		Flame:     flamego.New(),
		store:     newMemoryStore(),
		ingester:  &fakeIngester{record: sampleRecord()},
		completer: &fakeCompleter{reply: "Your vitamin D is optimal.", title: "Vitamin D Analysis", chunks: []string{"All ", "good."}},
		metrics:   metrics.New(),
	}

	app.MapTo(s, (*session.Session)(nil))
	app.Use(ServiceInjector(app.store, app.ingester, assistant.New(app.completer, time.UTC), nil, app.metrics))

	return app
}

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)

	return rec
}

func (a *testApp) scrapeMetrics(t *testing.T) string {
	t.Helper()

	rec := httptest.NewRecorder()
	a.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	return rec.Body.String()
}
