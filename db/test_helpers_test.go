// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"testing"
	"time"

	"github.com/kavana-health/vault/health"
)

func testContext() context.Context {
	return context.Background()
}

func mustEnsureUser(t *testing.T, store *Store, externalID string) *User {
	t.Helper()

	user, err := store.EnsureUser(testContext(), externalID, "")
	if err != nil {
		t.Fatalf("failed to ensure user: %v", err)
	}

	return user
}

func biomarker(id, name string, value float64, unit string) health.Biomarker {
	r := health.DefaultRange(name, unit)

	return health.Biomarker{
		ID:           id,
		Name:         name,
		Value:        value,
		Unit:         unit,
		OptimalRange: r,
		Status:       health.Classify(value, r),
		Category:     health.Categorize(name),
	}
}

func testRecord(date time.Time, biomarkers ...health.Biomarker) health.TestRecord {
	return health.TestRecord{
		TestDate:   date,
		UploadedAt: date.Add(time.Hour),
		Source:     health.SourcePDFUpload,
		Biomarkers: biomarkers,
	}
}
