// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"github.com/kavana-health/vault/archive"
	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/ingest"
)

type formFile struct {
	field string
	name  string
	data  string
}

func multipartBody(t *testing.T, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write([]byte(f.data)); err != nil {
			t.Fatalf("write form file failed: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}

	return &buf, w.FormDataContentType()
}

func TestUploadTestCreatesAndMerges(t *testing.T) {
	t.Parallel()

	s := newUserSession("user-1")
	app := newTestApp(s)
	app.Post("/vault/upload", UploadTest)

	body, contentType := multipartBody(t,
		formFile{field: "images", name: "page-1.png", data: "page one"},
		formFile{field: "images", name: "page-2.png", data: "page two"},
		formFile{field: "pdf", name: "report.pdf", data: "%PDF-1.7"},
	)

	rec := app.do(t, http.MethodPost, "/vault/upload", body, contentType)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}

	if got := rec.Header().Get("Location"); got != "/vault/test-1" {
		t.Fatalf("unexpected redirect %q", got)
	}

	assertFlash(t, s, FlashSuccess, "Added a new test with 2 biomarkers")

	if len(app.ingester.images) != 2 || string(app.ingester.images[1]) != "page two" {
		t.Fatalf("unexpected ingested pages %q", app.ingester.images)
	}

	// The archive is disabled, so the test is stored without a report.
	if app.store.tests[0].PDFURL != "" {
		t.Fatalf("expected no archived report, got %q", app.store.tests[0].PDFURL)
	}

	body, contentType = multipartBody(t, formFile{field: "images", name: "page-1.png", data: "page one"})
	app.do(t, http.MethodPost, "/vault/upload", body, contentType)
	assertFlash(t, s, FlashWarning, "All biomarkers in this report were already stored")

	app.ingester.record.Biomarkers = append(app.ingester.record.Biomarkers, health.Biomarker{
		Name: "Ferritin", Value: 80, Unit: "ng/mL", Status: health.StatusOptimal, Category: health.CategoryNutrients,
	})

	body, contentType = multipartBody(t, formFile{field: "images", name: "page-1.png", data: "page one"})
	app.do(t, http.MethodPost, "/vault/upload", body, contentType)
	assertFlash(t, s, FlashSuccess, "Added 1 biomarkers to the existing test")

	if len(app.store.tests) != 1 || len(app.store.tests[0].Biomarkers) != 3 {
		t.Fatalf("expected one merged test with 3 biomarkers, got %+v", app.store.tests)
	}
}

func TestUploadTestErrors(t *testing.T) {
	t.Parallel()

	t.Run("no images", func(t *testing.T) {
		t.Parallel()

		s := newUserSession("user-1")
		app := newTestApp(s)
		app.Post("/vault/upload", UploadTest)

		body, contentType := multipartBody(t, formFile{field: "pdf", name: "report.pdf", data: "%PDF"})

		rec := app.do(t, http.MethodPost, "/vault/upload", body, contentType)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/vault" {
			t.Fatalf("expected redirect to /vault, got %d %q", rec.Code, rec.Header().Get("Location"))
		}

		assertFlash(t, s, FlashError, msgNoImages)
	})

	t.Run("unreadable report", func(t *testing.T) {
		t.Parallel()

		s := newUserSession("user-1")
		app := newTestApp(s)
		app.ingester.err = ingest.ErrExtractionFormat
		app.Post("/vault/upload", UploadTest)

		body, contentType := multipartBody(t, formFile{field: "images", name: "page.png", data: "page"})
		app.do(t, http.MethodPost, "/vault/upload", body, contentType)

		assertFlash(t, s, FlashError, msgUnreadableDocument)

		if !strings.Contains(app.scrapeMetrics(t), `vault_ingestions_total{result="format_error"} 1`) {
			t.Fatal("expected format error to be counted")
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()

		s := newUserSession("user-1")
		app := newTestApp(s)
		app.Post("/vault/upload", UploadTest)

		app.do(t, http.MethodPost, "/vault/upload", strings.NewReader("x=1"), "application/x-www-form-urlencoded")

		assertFlash(t, s, FlashError, "Failed to read the upload")
	})
}

func TestTestSummaryStreamsEvents(t *testing.T) {
	t.Parallel()

	app := newTestApp(newUserSession("user-1"))
	app.Get("/vault/{id}/summary", TestSummary)

	if _, err := app.store.SaveTest(t.Context(), "user-1", *sampleRecord()); err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}

	rec := app.do(t, http.MethodGet, "/vault/test-1/summary", nil, "")

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected Content-Type %q", got)
	}

	want := "event: chunk\ndata: All \n\nevent: chunk\ndata: good.\n\nevent: done\ndata: \n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected stream:\n%q\nwant:\n%q", rec.Body.String(), want)
	}

	if prompt := app.completer.requests[0].Messages[0].Content; !strings.Contains(prompt, "LDL Cholesterol") {
		t.Fatalf("expected biomarkers in summary prompt, got %q", prompt)
	}
}

func TestTestSummaryErrors(t *testing.T) {
	t.Parallel()

	app := newTestApp(newUserSession("user-1"))
	app.Get("/vault/{id}/summary", TestSummary)

	rec := app.do(t, http.MethodGet, "/vault/missing/summary", nil, "")
	if rec.Body.String() != "event: error\ndata: Test not found\n\n" {
		t.Fatalf("unexpected stream %q", rec.Body.String())
	}

	empty := sampleRecord()
	empty.Biomarkers = nil
	if _, err := app.store.SaveTest(t.Context(), "user-1", *empty); err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}

	rec = app.do(t, http.MethodGet, "/vault/test-1/summary", nil, "")
	if rec.Body.String() != "event: error\ndata: No biomarkers to summarize\n\n" {
		t.Fatalf("unexpected stream %q", rec.Body.String())
	}
}

func TestDownloadTestPDF(t *testing.T) {
	t.Parallel()

	app := newTestApp(newUserSession("user-1"))
	app.Get("/vault/{id}/pdf", DownloadTestPDF)

	if rec := app.do(t, http.MethodGet, "/vault/test-1/pdf", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown test, got %d", rec.Code)
	}

	if _, err := app.store.SaveTest(t.Context(), "user-1", *sampleRecord()); err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}

	rec := app.do(t, http.MethodGet, "/vault/test-1/pdf", nil, "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), errNoPDF.Error()) {
		t.Fatalf("expected 404 without an archived report, got %d %q", rec.Code, rec.Body.String())
	}

	app.store.tests[0].PDFURL = "s3://vault-reports/user-1/report.pdf"

	if rec := app.do(t, http.MethodGet, "/vault/test-1/pdf", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when the archive is disabled, got %d", rec.Code)
	}
}

func TestTestsAreScopedToUser(t *testing.T) {
	t.Parallel()

	app := newTestApp(newUserSession("user-2"))
	app.Get("/vault/{id}/pdf", DownloadTestPDF)

	if _, err := app.store.SaveTest(t.Context(), "user-1", *sampleRecord()); err != nil {
		t.Fatalf("SaveTest failed: %v", err)
	}

	if rec := app.do(t, http.MethodGet, "/vault/test-1/pdf", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected another user's test to be hidden, got %d", rec.Code)
	}
}

// objectServer is a minimal S3 endpoint recording the requests it serves.
type objectServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

func newObjectServer(t *testing.T) *objectServer {
	t.Helper()

	o := &objectServer{}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.requests = append(o.requests, r.Method+" "+r.URL.Path)
		o.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	}))
	t.Cleanup(o.Close)

	return o
}

func TestUploadTestRemovesArchivedReportWhenSaveFails(t *testing.T) {
	t.Parallel()

	objects := newObjectServer(t)

	arch, err := archive.New(archive.Config{
		Endpoint:  strings.TrimPrefix(objects.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "vault-reports",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("archive.New failed: %v", err)
	}

	s := newUserSession("user-1")
	app := newTestApp(s)
	app.store.saveErr = db.ErrStorageUnavailable

	f := flamego.New()
	f.MapTo(s, (*session.Session)(nil))
	f.Use(ServiceInjector(app.store, app.ingester, assistant.New(app.completer, time.UTC), arch, app.metrics))
	f.Post("/vault/upload", UploadTest)

	body, contentType := multipartBody(t,
		formFile{field: "images", name: "page-1.png", data: "page one"},
		formFile{field: "pdf", name: "report.pdf", data: "%PDF-1.7"},
	)

	req := httptest.NewRequest(http.MethodPost, "/vault/upload", body)
	req.Header.Set("Content-Type", contentType)
	f.ServeHTTP(httptest.NewRecorder(), req)

	assertFlash(t, s, FlashError, msgUploadFailed)

	objects.mu.Lock()
	defer objects.mu.Unlock()

	if len(objects.requests) != 2 {
		t.Fatalf("expected a store and a removal, got %v", objects.requests)
	}

	put, _ := strings.CutPrefix(objects.requests[0], "PUT ")
	if !strings.HasPrefix(put, "/vault-reports/users/user-1/") || objects.requests[1] != "DELETE "+put {
		t.Fatalf("expected the stored report to be removed, got %v", objects.requests)
	}
}
