/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/kavana-health/vault/archive"
	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/metrics"
)

// sourceDocument is the optional original report kept in the archive.
type sourceDocument struct {
	Name string
	Body io.Reader
	Size int64
}

// uploadOutcome is the result of one report upload.
type uploadOutcome struct {
	// Extracted is the record read from this upload alone.
	Extracted *health.TestRecord
	// Saved is the stored record after merging.
	Saved *db.SaveResult
}

// uploadReport ingests page images, archives the source PDF and stores the
// merged record for userID.
func uploadReport(ctx context.Context, store Store, ingester Ingester, arch *archive.Archive, m *metrics.Metrics,
	userID string, images [][]byte, doc *sourceDocument,
) (*uploadOutcome, error) {
	start := time.Now()

	record, err := ingester.Ingest(ctx, images)
	if err != nil {
		m.ObserveIngestion(ingestionResult(err))
		logger.Warn("Failed to ingest report", "user_id", userID, "pages", len(images), "error", err)
		return nil, err
	}

	if doc != nil {
		url, err := arch.Put(ctx, userID, doc.Name, doc.Body, doc.Size)
		switch {
		case err == nil:
			record.PDFURL = url
		case errors.Is(err, archive.ErrDisabled):
		default:
			logger.Warn("Failed to archive report, saving without it", "user_id", userID, "error", err)
		}
	}

	saved, err := store.SaveTest(ctx, userID, *record)
	if err != nil {
		m.ObserveIngestion(ingestionResult(err))
		logger.Error("Failed to save test", "user_id", userID, "error", err)

		if record.PDFURL != "" {
			if delErr := arch.Delete(context.WithoutCancel(ctx), userID, record.PDFURL); delErr != nil {
				logger.Warn("Failed to remove unreferenced report", "user_id", userID, "url", record.PDFURL, "error", delErr)
			}
		}
		return nil, err
	}

	m.ObserveMerge(saved.Appended, saved.Duplicates)
	m.ObserveIngestion(metrics.ResultSuccess)

	logger.Info("Stored test",
		"user_id", userID,
		"test_id", saved.Record.ID,
		"created", saved.Created,
		"appended", saved.Appended,
		"duplicates", saved.Duplicates,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &uploadOutcome{Extracted: record, Saved: saved}, nil
}
