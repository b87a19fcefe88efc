/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/llm"
	"github.com/kavana-health/vault/logging"
	"github.com/kavana-health/vault/metrics"
)

var logger = logging.Logger(logging.SourceIngest)

const extractionPrompt = `You are an expert medical lab report parser. Extract biomarker test results from the laboratory report in the attached page images.

Extract:
1. The test date, converted to YYYY-MM-DD.
2. Every biomarker with its name exactly as written, its numeric value, its unit (for example mg/dL, ng/mL or %) and the reference range (min and max) when the report prints one.

The report may be written in any language.

Return only a JSON object of this shape:
{
  "testDate": "YYYY-MM-DD",
  "biomarkers": [
    {"name": "Biomarker Name", "value": 123.45, "unit": "mg/dL", "optimalRange": {"min": 0, "max": 100}}
  ]
}

Omit optimalRange when the report has no reference range for a biomarker.`

const extractionInstruction = "Extract all biomarker test results from this lab report. Return only valid JSON."

// RawBiomarker is a validated biomarker as read from a report, before status
// classification.
type RawBiomarker struct {
	Name         string
	Value        float64
	Unit         string
	OptimalRange health.Range
	Category     health.Category
}

// Extraction is the validated result of reading one report.
type Extraction struct {
	TestDate   time.Time
	Biomarkers []RawBiomarker
	// Dropped counts entries discarded for a missing name or unit or a
	// non-numeric value.
	Dropped int
}

// Extractor reads lab report page images through a completion service.
type Extractor struct {
	completer llm.Completer
	loc       *time.Location
	metrics   *metrics.Metrics
}

// NewExtractor returns an extractor using completer. Dates without a zone
// are read in loc.
func NewExtractor(completer llm.Completer, loc *time.Location, m *metrics.Metrics) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{completer: completer, loc: loc, metrics: m}
}

// Extract sends all images in one request and validates the response.
func (e *Extractor) Extract(ctx context.Context, images [][]byte) (*Extraction, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if e.completer == nil {
		return nil, fmt.Errorf("%w: no completion backend configured", ErrExtractorUnavailable)
	}

	attached := make([]llm.Image, len(images))
	for i, img := range images {
		attached[i] = llm.NewImage(img)
	}

	start := time.Now()
	content, err := e.completer.Complete(ctx, llm.Request{
		System:      extractionPrompt,
		JSON:        true,
		MaxTokens:   4000,
		Temperature: llm.Temperature(0),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: extractionInstruction,
			Images:  attached,
		}},
	})
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.ObserveExtraction(elapsed, 0)
		if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, llm.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: %v", ErrExtractorUnavailable, err)
		}
		return nil, err
	}

	extraction, err := ParseExtraction(content, e.loc)
	if err != nil {
		e.metrics.ObserveExtraction(elapsed, 0)
		logger.Warn("Extraction rejected", "pages", len(images), "error", err)
		return nil, err
	}

	e.metrics.ObserveExtraction(elapsed, len(extraction.Biomarkers))

	if extraction.Dropped > 0 {
		logger.Warn("Dropped malformed biomarker entries", "dropped", extraction.Dropped, "kept", len(extraction.Biomarkers))
	}

	return extraction, nil
}

type extractionResponse struct {
	TestDate   *string           `json:"testDate"`
	Biomarkers []json.RawMessage `json:"biomarkers"`
}

type extractionEntry struct {
	Name         json.RawMessage `json:"name"`
	Value        json.RawMessage `json:"value"`
	Unit         json.RawMessage `json:"unit"`
	OptimalRange json.RawMessage `json:"optimalRange"`
}

type extractionRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// ParseExtraction validates a completion response and turns it into an
// Extraction. Entries with a missing name or unit or a non-numeric value are
// dropped. Missing or unusable reference ranges are filled in from
// health.DefaultRange.
func ParseExtraction(content string, loc *time.Location) (*Extraction, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response", ErrExtractionFormat)
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFormat, err)
	}

	if resp.TestDate == nil || strings.TrimSpace(*resp.TestDate) == "" || resp.Biomarkers == nil {
		return nil, fmt.Errorf("%w: missing testDate or biomarkers", ErrExtractionFormat)
	}

	testDate, err := ParseTestDate(*resp.TestDate, loc)
	if err != nil {
		return nil, err
	}

	extraction := &Extraction{TestDate: testDate}

	for _, raw := range resp.Biomarkers {
		b, ok := parseEntry(raw)
		if !ok {
			extraction.Dropped++
			continue
		}
		extraction.Biomarkers = append(extraction.Biomarkers, b)
	}

	if len(extraction.Biomarkers) == 0 {
		return nil, ErrNoBiomarkersFound
	}

	return extraction, nil
}

func parseEntry(raw json.RawMessage) (RawBiomarker, bool) {
	var entry extractionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return RawBiomarker{}, false
	}

	var name, unit string
	var value float64

	if json.Unmarshal(entry.Name, &name) != nil || json.Unmarshal(entry.Unit, &unit) != nil {
		return RawBiomarker{}, false
	}
	if !isJSONNumber(entry.Value) || json.Unmarshal(entry.Value, &value) != nil {
		return RawBiomarker{}, false
	}

	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if name == "" || unit == "" {
		return RawBiomarker{}, false
	}

	optimal, ok := parseRange(entry.OptimalRange)
	if !ok {
		optimal = health.DefaultRange(name, unit)
	}

	return RawBiomarker{
		Name:         name,
		Value:        value,
		Unit:         unit,
		OptimalRange: optimal,
		Category:     health.Categorize(name),
	}, true
}

// parseRange accepts only a range with both bounds and min <= max.
func parseRange(raw json.RawMessage) (health.Range, bool) {
	if len(raw) == 0 {
		return health.Range{}, false
	}

	var r extractionRange
	if err := json.Unmarshal(raw, &r); err != nil || r.Min == nil || r.Max == nil || *r.Min > *r.Max {
		return health.Range{}, false
	}

	return health.Range{Min: *r.Min, Max: *r.Max}, true
}

func isJSONNumber(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// stripCodeFence removes a markdown code fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
