/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/kavana-health/vault/archive"
	"github.com/kavana-health/vault/assistant"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/metrics"
)

// maxUploadSize bounds multipart report uploads.
const maxUploadSize = 64 << 20

// Dashboard shows the latest test, category scores and totals.
func Dashboard(c flamego.Context, s session.Session, store Store, t template.Template, data template.Data) {
	data["IsDashboard"] = true

	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ctx := c.Request().Context()

	latest, err := store.LatestTest(ctx, userID)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		logger.Error("Failed to load latest test", "user_id", userID, "error", err)
		data["Error"] = "Failed to load your latest test"
	default:
		data["Latest"] = latest
		data["Scores"] = health.CategoryScores(latest.Biomarkers)
	}

	count, err := store.CountBiomarkers(ctx, userID)
	if err != nil {
		logger.Error("Failed to count biomarkers", "user_id", userID, "error", err)
	}
	data["BiomarkerCount"] = count

	t.HTML(http.StatusOK, "dashboard")
}

// VaultList lists the user's tests, latest first, with trend charts.
func VaultList(c flamego.Context, s session.Session, store Store, t template.Template, data template.Data) {
	data["IsVault"] = true

	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	tests, err := store.ListTests(c.Request().Context(), userID)
	if err != nil {
		logger.Error("Failed to list tests", "user_id", userID, "error", err)
		data["Error"] = "Failed to load your tests"
		t.HTML(http.StatusOK, "vault")
		return
	}

	data["Tests"] = tests
	data["Charts"] = buildTrendCharts(health.BuildTrends(tests), store.Location())

	t.HTML(http.StatusOK, "vault")
}

// ViewTest shows the biomarkers of one test.
func ViewTest(c flamego.Context, s session.Session, store Store, t template.Template, data template.Data) {
	data["IsVault"] = true

	record, ok := loadTest(c, s, store)
	if !ok {
		return
	}

	data["Test"] = record
	data["Scores"] = health.CategoryScores(record.Biomarkers)
	data["TestDate"] = record.TestDate.In(store.Location()).Format("January 2, 2006")

	t.HTML(http.StatusOK, "vault_test")
}

// DownloadTestPDF streams the archived source report of a test.
func DownloadTestPDF(c flamego.Context, s session.Session, store Store, arch *archive.Archive) {
	record, ok := loadTest(c, s, store)
	if !ok {
		return
	}

	w := c.ResponseWriter()

	if record.PDFURL == "" {
		http.Error(w, errNoPDF.Error(), http.StatusNotFound)
		return
	}

	obj, err := arch.Get(c.Request().Context(), record.UserID, record.PDFURL)
	if err != nil {
		logger.Error("Failed to open archived report", "test_id", record.ID, "error", err)

		status := http.StatusBadGateway
		if errors.Is(err, archive.ErrDisabled) {
			status = http.StatusNotFound
		}

		http.Error(w, http.StatusText(status), status)
		return
	}
	defer obj.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", obj.Name))
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}

	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("Failed to stream archived report", "test_id", record.ID, "error", err)
	}
}

// TestSummary streams a model written summary of one test as SSE.
func TestSummary(c flamego.Context, s session.Session, store Store, a *assistant.Assistant) {
	sse := newSSEWriter(c.ResponseWriter())

	userID, err := requireSessionUserID(s)
	if err != nil {
		sse.fail("Unauthorized")
		return
	}

	ctx := c.Request().Context()

	record, err := store.GetTest(ctx, userID, c.Param("id"))
	if err != nil {
		logger.Error("Failed to load test for summary", "test_id", c.Param("id"), "error", err)
		sse.fail("Test not found")
		return
	}

	if err := a.Summarize(ctx, record, sse.chunk); err != nil {
		if errors.Is(err, assistant.ErrNothingToSummarize) {
			sse.fail("No biomarkers to summarize")
			return
		}

		logger.Error("Failed to generate summary", "test_id", record.ID, "error", err)
		sse.fail("Failed to generate summary")
		return
	}

	sse.done()
}

// UploadTest handles the report upload form: page images plus an optional
// source PDF.
func UploadTest(c flamego.Context, s session.Session, store Store, ingester Ingester, arch *archive.Archive, m *metrics.Metrics) {
	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(c.ResponseWriter(), http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	r := c.Request().Request
	r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Warn("Failed to parse upload form", "error", err)
		SetErrorFlash(s, "Failed to read the upload")
		c.Redirect("/vault", http.StatusSeeOther)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	images, err := readFormFiles(r.MultipartForm.File["images"])
	if err != nil || len(images) == 0 {
		SetErrorFlash(s, msgNoImages)
		c.Redirect("/vault", http.StatusSeeOther)
		return
	}

	var doc *sourceDocument
	if headers := r.MultipartForm.File["pdf"]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			logger.Warn("Failed to open uploaded pdf", "error", err)
		} else {
			defer f.Close()
			doc = &sourceDocument{Name: headers[0].Filename, Body: f, Size: headers[0].Size}
		}
	}

	outcome, err := uploadReport(r.Context(), store, ingester, arch, m, userID, images, doc)
	if err != nil {
		_, message := uploadError(err)
		SetErrorFlash(s, message)
		c.Redirect("/vault", http.StatusSeeOther)
		return
	}

	saved := outcome.Saved
	switch {
	case saved.Created:
		SetSuccessFlash(s, fmt.Sprintf("Added a new test with %d biomarkers", saved.Appended))
	case saved.Appended == 0:
		SetWarningFlash(s, "All biomarkers in this report were already stored")
	default:
		SetSuccessFlash(s, fmt.Sprintf("Added %d biomarkers to the existing test", saved.Appended))
	}

	c.Redirect("/vault/"+saved.Record.ID, http.StatusSeeOther)
}

func readFormFiles(headers []*multipart.FileHeader) ([][]byte, error) {
	files := make([][]byte, 0, len(headers))

	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		_, err = io.Copy(&buf, f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}

		if buf.Len() > 0 {
			files = append(files, buf.Bytes())
		}
	}

	return files, nil
}

// loadTest fetches the test named by the id route parameter and writes an
// error response when it is not available.
func loadTest(c flamego.Context, s session.Session, store Store) (*health.TestRecord, bool) {
	w := c.ResponseWriter()

	userID, err := requireSessionUserID(s)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}

	record, err := store.GetTest(c.Request().Context(), userID, c.Param("id"))
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return nil, false
	case err != nil:
		logger.Error("Failed to load test", "test_id", c.Param("id"), "error", err)
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil, false
	}

	return record, true
}
