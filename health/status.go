/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package health

// Margins applied to the optimal band before a value counts as dangerous.
const (
	dangerLowFactor  = 0.7
	dangerHighFactor = 1.3
)

// Classify maps a measured value and its optimal range to a Status.
//
// Values inside the band are optimal. Values below 70% of Min or above 130%
// of Max are dangerous. Everything else is sub-optimal. The function is total:
// negative values and inverted ranges are classified without error.
func Classify(value float64, r Range) Status {
	if r.Contains(value) {
		return StatusOptimal
	}

	if value < r.Min*dangerLowFactor || value > r.Max*dangerHighFactor {
		return StatusDanger
	}

	return StatusSubOptimal
}
