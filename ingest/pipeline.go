/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kavana-health/vault/health"
)

// BiomarkerExtractor reads page images of one report.
type BiomarkerExtractor interface {
	Extract(ctx context.Context, images [][]byte) (*Extraction, error)
}

// Pipeline turns page images into a classified, not yet persisted test
// record.
type Pipeline struct {
	extractor BiomarkerExtractor
	now       func() time.Time
	newID     func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used for UploadedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator sets the biomarker id generator.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// New returns a pipeline reading reports with extractor.
func New(extractor BiomarkerExtractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest extracts the report and classifies every biomarker against its
// optimal range. All biomarkers share the report's test date. Extraction
// errors are returned unchanged.
func (p *Pipeline) Ingest(ctx context.Context, images [][]byte) (*health.TestRecord, error) {
	extraction, err := p.extractor.Extract(ctx, images)
	if err != nil {
		return nil, err
	}

	record := &health.TestRecord{
		TestDate:   extraction.TestDate,
		UploadedAt: p.now(),
		Source:     health.SourcePDFUpload,
		Biomarkers: make([]health.Biomarker, 0, len(extraction.Biomarkers)),
	}

	for _, raw := range extraction.Biomarkers {
		record.Biomarkers = append(record.Biomarkers, health.Biomarker{
			ID:           p.newID(),
			Name:         raw.Name,
			Value:        raw.Value,
			Unit:         raw.Unit,
			OptimalRange: raw.OptimalRange,
			Status:       health.Classify(raw.Value, raw.OptimalRange),
			Category:     raw.Category,
			TestDate:     extraction.TestDate,
		})
	}

	logger.Info("Report ingested", "test_date", extraction.TestDate.Format(time.DateOnly),
		"biomarkers", len(record.Biomarkers), "dropped", extraction.Dropped)

	return record, nil
}
