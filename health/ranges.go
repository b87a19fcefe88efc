/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package health

import "strings"

// FallbackRange is used when no default range matches a biomarker name.
var FallbackRange = Range{Min: 0, Max: 1000}

type rangeRule struct {
	keyword string
	r       Range
}

// defaultRangeRules is the fallback table used when a report omits a
// reference range. Matching is by lower-cased substring, first match wins.
var defaultRangeRules = []rangeRule{
	{keyword: "vitamin d", r: Range{Min: 30, Max: 100}},       // ng/mL
	{keyword: "testosterone", r: Range{Min: 400, Max: 1000}},  // ng/dL (male)
	{keyword: "ldl cholesterol", r: Range{Min: 0, Max: 100}},  // mg/dL
	{keyword: "hdl cholesterol", r: Range{Min: 40, Max: 100}}, // mg/dL
	{keyword: "hba1c", r: Range{Min: 4.0, Max: 5.6}},          // %
	{keyword: "cortisol", r: Range{Min: 10, Max: 20}},         // µg/dL
	{keyword: "tsh", r: Range{Min: 0.4, Max: 4.0}},            // mIU/L
	{keyword: "magnesium", r: Range{Min: 1.7, Max: 2.2}},      // mg/dL
	{keyword: "b12", r: Range{Min: 200, Max: 900}},            // pg/mL
	{keyword: "triglycerides", r: Range{Min: 0, Max: 150}},    // mg/dL
}

// DefaultRange returns the fallback optimal range for a biomarker name.
//
// unit is not consulted yet; it is part of the signature so ranges can later
// be disambiguated per unit without changing callers.
func DefaultRange(name, unit string) Range {
	_ = unit

	lower := strings.ToLower(name)
	for _, rule := range defaultRangeRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.r
		}
	}

	return FallbackRange
}
