/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kavana-health/vault/health"
	"github.com/kavana-health/vault/llm"
)

const summaryPrompt = "You are a helpful medical assistant. Provide concise, clear summaries of lab results. " +
	"Highlight any values outside their optimal range and their potential significance. " +
	"Be informative but not alarmist. Never tell the user to consult a healthcare professional, this is shown separately. " +
	"Use basic markdown (italic, bold), but no headings."

// ErrNothingToSummarize is returned for records without biomarkers.
var ErrNothingToSummarize = errors.New("test has no biomarkers to summarize")

// buildSummaryPrompt lists every biomarker of record with its range and a
// marker for values outside it.
func (a *Assistant) buildSummaryPrompt(record *health.TestRecord) string {
	var sb strings.Builder

	sb.WriteString("Please summarize the following lab test results:\n\n")
	fmt.Fprintf(&sb, "Test Date: %s\n", record.TestDate.In(a.loc).Format("January 2, 2006"))
	sb.WriteString("\n---\n\nLab Results:\n\n")

	for _, b := range record.Biomarkers {
		marker := ""
		switch b.Status {
		case health.StatusDanger:
			marker = " [ABNORMAL]"
		case health.StatusSubOptimal:
			marker = " [Outside optimal]"
		}

		fmt.Fprintf(&sb, "- %s: %s %s (Optimal: %s - %s)%s\n",
			b.Name, FormatValue(b.Value), b.Unit,
			FormatValue(b.OptimalRange.Min), FormatValue(b.OptimalRange.Max), marker)
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString("Please provide:\n")
	sb.WriteString("1. A brief overview of the results\n")
	sb.WriteString("2. Any values that are concerning and why\n")
	sb.WriteString("3. General health observations based on these results\n")

	return sb.String()
}

// Summarize streams a summary of one test record.
func (a *Assistant) Summarize(ctx context.Context, record *health.TestRecord, onChunk func(string) error) error {
	if record == nil || len(record.Biomarkers) == 0 {
		return ErrNothingToSummarize
	}

	return a.completer.Stream(ctx, llm.Request{
		System: summaryPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: a.buildSummaryPrompt(record),
		}},
	}, onChunk)
}
