/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kavana-health/vault/health"
)

// SaveResult describes the outcome of SaveTest.
type SaveResult struct {
	Record     health.TestRecord
	Created    bool // no record existed for the day
	Appended   int  // biomarkers added by this save
	Duplicates int  // biomarkers dropped as exact repeats
}

// querier is satisfied by the pool and by transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const testColumns = `id, user_id, test_date, uploaded_at, source, COALESCE(pdf_url, '')`

// SaveTest stores record for userID, merging it into an existing record of
// the same calendar day. The day lookup, merge and write run in one
// transaction holding an advisory lock on the user and day, so concurrent
// uploads for the same day serialize instead of losing biomarkers.
func (s *Store) SaveTest(ctx context.Context, userID string, record health.TestRecord) (*SaveResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	start, end := health.DayBounds(record.TestDate, s.loc)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("failed to begin transaction", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Failed to roll back save", "error", err)
		}
	}()

	lockKey := userID + "/" + start.Format(time.DateOnly)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return nil, storageError("failed to lock test day", err)
	}

	existing, err := findTestInRange(ctx, tx, userID, start, end)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	result := &SaveResult{}
	incoming := make([]health.Biomarker, len(record.Biomarkers))
	for i, b := range record.Biomarkers {
		b.TestDate = start
		incoming[i] = b
	}

	var toInsert []health.Biomarker
	offset := 0

	if existing == nil {
		result.Created = true
		result.Record = health.TestRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			TestDate:   start,
			UploadedAt: record.UploadedAt,
			Source:     record.Source,
			PDFURL:     record.PDFURL,
			Biomarkers: incoming,
		}
		toInsert = incoming

		_, err = tx.Exec(ctx, `
			INSERT INTO lab_tests (id, user_id, test_date, uploaded_at, source, pdf_url)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
			result.Record.ID, userID, start, record.UploadedAt, string(record.Source), record.PDFURL,
		)
		if err != nil {
			return nil, storageError("failed to insert test", err)
		}
	} else {
		merged, appended := health.MergeBiomarkers(existing.Biomarkers, incoming)
		offset = len(existing.Biomarkers)
		toInsert = appended

		result.Record = *existing
		result.Record.TestDate = start
		result.Record.UploadedAt = record.UploadedAt
		result.Record.Source = record.Source
		result.Record.Biomarkers = merged
		if record.PDFURL != "" {
			result.Record.PDFURL = record.PDFURL
		}

		_, err = tx.Exec(ctx, `
			UPDATE lab_tests
			SET test_date = $2, uploaded_at = $3, source = $4, pdf_url = COALESCE(NULLIF($5, ''), pdf_url)
			WHERE id = $1`,
			existing.ID, start, record.UploadedAt, string(record.Source), record.PDFURL,
		)
		if err != nil {
			return nil, storageError("failed to update test", err)
		}
	}

	if err := insertBiomarkers(ctx, tx, result.Record.ID, offset, toInsert); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("failed to commit test", err)
	}

	result.Appended = len(toInsert)
	result.Duplicates = len(incoming) - len(toInsert)

	logger.Info("Saved test", "test_id", result.Record.ID, "user_id", userID,
		"date", start.Format(time.DateOnly), "created", result.Created,
		"appended", result.Appended, "duplicates", result.Duplicates)

	return result, nil
}

func insertBiomarkers(ctx context.Context, tx pgx.Tx, testID string, offset int, biomarkers []health.Biomarker) error {
	if len(biomarkers) == 0 {
		return nil
	}

	rows := make([][]any, len(biomarkers))
	for i, b := range biomarkers {
		rows[i] = []any{
			testID, offset + i, b.ID, b.Name, b.Value, b.Unit,
			b.OptimalRange.Min, b.OptimalRange.Max, string(b.Status), string(b.Category), b.TestDate,
		}
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"lab_biomarkers"},
		[]string{"test_id", "position", "id", "name", "value", "unit", "optimal_min", "optimal_max", "status", "category", "test_date"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return storageError("failed to insert biomarkers", err)
	}

	return nil
}

func findTestInRange(ctx context.Context, q querier, userID string, start, end time.Time) (*health.TestRecord, error) {
	records, err := queryTests(ctx, q, `
		SELECT `+testColumns+` FROM lab_tests
		WHERE user_id = $1 AND test_date >= $2 AND test_date < $3
		ORDER BY test_date
		LIMIT 1`,
		userID, start, end,
	)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}

	return &records[0], nil
}

// queryTests runs a lab_tests query selecting testColumns and loads the
// biomarkers of every returned record.
func queryTests(ctx context.Context, q querier, sql string, args ...any) ([]health.TestRecord, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storageError("failed to query tests", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (health.TestRecord, error) {
		var r health.TestRecord
		var source string
		err := row.Scan(&r.ID, &r.UserID, &r.TestDate, &r.UploadedAt, &source, &r.PDFURL)
		r.Source = health.Source(source)
		return r, err
	})
	if err != nil {
		return nil, storageError("failed to scan tests", err)
	}

	if len(records) == 0 {
		return records, nil
	}

	ids := make([]string, len(records))
	index := make(map[string]int, len(records))
	for i, r := range records {
		ids[i] = r.ID
		index[r.ID] = i
		records[i].Biomarkers = []health.Biomarker{}
	}

	bioRows, err := q.Query(ctx, `
		SELECT test_id, id, name, value, unit, optimal_min, optimal_max, status, category, test_date
		FROM lab_biomarkers
		WHERE test_id = ANY($1::uuid[])
		ORDER BY test_id, position`,
		ids,
	)
	if err != nil {
		return nil, storageError("failed to query biomarkers", err)
	}
	defer bioRows.Close()

	for bioRows.Next() {
		var testID, status, category string
		var b health.Biomarker

		if err := bioRows.Scan(&testID, &b.ID, &b.Name, &b.Value, &b.Unit,
			&b.OptimalRange.Min, &b.OptimalRange.Max, &status, &category, &b.TestDate); err != nil {
			return nil, storageError("failed to scan biomarker", err)
		}

		b.Status = health.Status(status)
		b.Category = health.Category(category)

		i := index[testID]
		records[i].Biomarkers = append(records[i].Biomarkers, b)
	}

	if err := bioRows.Err(); err != nil {
		return nil, storageError("failed to iterate biomarkers", err)
	}

	return records, nil
}

// GetTest returns the user's test record with the given id.
func (s *Store) GetTest(ctx context.Context, userID, testID string) (*health.TestRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(testID); err != nil {
		return nil, ErrNotFound
	}

	records, err := queryTests(ctx, s.pool, `
		SELECT `+testColumns+` FROM lab_tests WHERE user_id = $1 AND id = $2`,
		userID, testID,
	)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}

	return &records[0], nil
}

// GetTestByDate returns the user's record for the calendar day containing date.
func (s *Store) GetTestByDate(ctx context.Context, userID string, date time.Time) (*health.TestRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	start, end := health.DayBounds(date, s.loc)

	return findTestInRange(ctx, s.pool, userID, start, end)
}

// ListTests returns all of the user's records, latest first.
func (s *Store) ListTests(ctx context.Context, userID string) ([]health.TestRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	return queryTests(ctx, s.pool, `
		SELECT `+testColumns+` FROM lab_tests WHERE user_id = $1 ORDER BY test_date DESC`,
		userID,
	)
}

// LatestTest returns the user's most recent record by test date.
func (s *Store) LatestTest(ctx context.Context, userID string) (*health.TestRecord, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	records, err := queryTests(ctx, s.pool, `
		SELECT `+testColumns+` FROM lab_tests WHERE user_id = $1 ORDER BY test_date DESC LIMIT 1`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, ErrNotFound
	}

	return &records[0], nil
}

// CountBiomarkers returns the number of stored biomarkers across all of the
// user's records.
func (s *Store) CountBiomarkers(ctx context.Context, userID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var count int

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM lab_biomarkers b
		JOIN lab_tests t ON t.id = b.test_id
		WHERE t.user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, storageError("failed to count biomarkers", err)
	}

	return count, nil
}
