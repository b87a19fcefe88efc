/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"net/http"

	"github.com/kavana-health/vault/db"
	"github.com/kavana-health/vault/ingest"
	"github.com/kavana-health/vault/metrics"
)

var (
	errSessionUserMissing = errors.New("session user missing")
	errInvalidRequestBody = errors.New("invalid request body")
	errMessageRequired    = errors.New("message is required")
	errNoPDF              = errors.New("test has no archived report")
)

// Messages shown to users for failed uploads.
const (
	msgUnreadableDocument = "We could not read this document"
	msgNoBiomarkers       = "No biomarkers were found in the report"
	msgUploadFailed       = "Upload failed, please try again"
	msgExtractorDown      = "The document reader is unavailable, please try again later"
	msgNoImages           = "No images provided"
	msgInvalidImage       = "Images must be base64 encoded"
)

// uploadError maps an ingestion or storage failure to an HTTP status and a
// user facing message.
func uploadError(err error) (int, string) {
	switch {
	case errors.Is(err, ingest.ErrNoImages):
		return http.StatusBadRequest, msgNoImages
	case errors.Is(err, ingest.ErrInvalidImage):
		return http.StatusBadRequest, msgInvalidImage
	case errors.Is(err, ingest.ErrExtractionFormat), errors.Is(err, ingest.ErrInvalidDate):
		return http.StatusUnprocessableEntity, msgUnreadableDocument
	case errors.Is(err, ingest.ErrNoBiomarkersFound):
		return http.StatusUnprocessableEntity, msgNoBiomarkers
	case errors.Is(err, ingest.ErrExtractorUnavailable):
		return http.StatusBadGateway, msgExtractorDown
	case errors.Is(err, db.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, msgUploadFailed
	default:
		return http.StatusInternalServerError, msgUploadFailed
	}
}

// ingestionResult labels an ingestion outcome for metrics.
func ingestionResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ingest.ErrExtractionFormat):
		return metrics.ResultFormatError
	case errors.Is(err, ingest.ErrInvalidDate):
		return metrics.ResultInvalidDate
	case errors.Is(err, ingest.ErrNoBiomarkersFound):
		return metrics.ResultNoBiomarkers
	case errors.Is(err, ingest.ErrExtractorUnavailable):
		return metrics.ResultUnavailable
	case errors.Is(err, db.ErrStorageUnavailable):
		return metrics.ResultStorageFailure
	default:
		return metrics.ResultError
	}
}
