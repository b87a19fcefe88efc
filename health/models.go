/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package health

import "time"

// Status is the derived health classification of a single measurement
type Status string

// Status values, ordered from best to worst.
const (
	StatusOptimal    Status = "optimal"
	StatusSubOptimal Status = "sub-optimal"
	StatusDanger     Status = "danger"
)

// Category is the physiological group a biomarker belongs to
type Category string

// Category values.
const (
	CategoryMetabolic      Category = "metabolic"
	CategoryHormones       Category = "hormones"
	CategoryNutrients      Category = "nutrients"
	CategoryCardiovascular Category = "cardiovascular"
	CategoryOther          Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryMetabolic,
	CategoryHormones,
	CategoryNutrients,
	CategoryCardiovascular,
	CategoryOther,
}

// Source identifies where a test record came from
type Source string

// SourcePDFUpload is the only provenance currently produced.
const SourcePDFUpload Source = "pdf_upload"

// Range is an inclusive [Min, Max] reference band
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether value lies inside the band, bounds included.
func (r Range) Contains(value float64) bool {
	return value >= r.Min && value <= r.Max
}

// Biomarker is a single measured analyte.
type Biomarker struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Value        float64   `json:"value"`
	Unit         string    `json:"unit"`
	OptimalRange Range     `json:"optimalRange"`
	Status       Status    `json:"status"`
	Category     Category  `json:"category"`
	TestDate     time.Time `json:"testDate"`
}

// TestRecord is one lab report normalized to a single calendar day.
type TestRecord struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	TestDate   time.Time   `json:"testDate"`
	UploadedAt time.Time   `json:"uploadedAt"`
	Biomarkers []Biomarker `json:"biomarkers"`
	Source     Source      `json:"source"`
	PDFURL     string      `json:"pdfUrl,omitempty"`
}
