/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package ingest

import "errors"

var (
	// ErrExtractionFormat means the completion response was not valid JSON or
	// lacked the test date or the biomarkers list.
	ErrExtractionFormat = errors.New("could not read extraction response")
	// ErrInvalidDate means the extracted test date is not a calendar date.
	ErrInvalidDate = errors.New("invalid test date")
	// ErrNoBiomarkersFound means no usable biomarker survived validation.
	ErrNoBiomarkersFound = errors.New("no biomarkers found in the report")
	// ErrExtractorUnavailable means the completion service could not be used.
	ErrExtractorUnavailable = errors.New("extraction service unavailable")
	// ErrNoImages is returned when an upload carries no page images.
	ErrNoImages = errors.New("no images provided")
	// ErrInvalidImage is returned for images that are not valid base64.
	ErrInvalidImage = errors.New("invalid image encoding")
)
