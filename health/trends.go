/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package health

import (
	"math"
	"sort"
	"strings"
	"time"
)

// TrendPoint is one measurement of a biomarker kind on a given day.
type TrendPoint struct {
	Date   time.Time
	Value  float64
	Status Status
}

// Trend is the time series of one biomarker kind across test records.
type Trend struct {
	Name         string
	Unit         string
	Category     Category
	OptimalRange Range
	Points       []TrendPoint
}

// Latest returns the most recent point of the trend.
func (t Trend) Latest() (TrendPoint, bool) {
	if len(t.Points) == 0 {
		return TrendPoint{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// CategoryTrends groups trends that share a category.
type CategoryTrends struct {
	Category Category
	Trends   []Trend
}

// BuildTrends groups biomarkers of every record by kind into date-ordered
// series. Display name, category and optimal range come from the most recent
// measurement. The result is grouped by category in Categories order.
func BuildTrends(records []TestRecord) []CategoryTrends {
	type entry struct {
		trend    Trend
		latestAt time.Time
	}

	byKind := make(map[string]*entry)

	var order []string

	for _, record := range records {
		for _, b := range record.Biomarkers {
			key := strings.ToLower(b.Name) + "\x00" + b.Unit

			e, ok := byKind[key]
			if !ok {
				e = &entry{trend: Trend{Name: b.Name, Unit: b.Unit}}
				byKind[key] = e
				order = append(order, key)
			}

			e.trend.Points = append(e.trend.Points, TrendPoint{
				Date:   record.TestDate,
				Value:  b.Value,
				Status: b.Status,
			})

			if e.latestAt.IsZero() || !record.TestDate.Before(e.latestAt) {
				e.latestAt = record.TestDate
				e.trend.Name = b.Name
				e.trend.Category = b.Category
				e.trend.OptimalRange = b.OptimalRange
			}
		}
	}

	grouped := make(map[Category][]Trend)

	for _, key := range order {
		trend := byKind[key].trend
		sort.SliceStable(trend.Points, func(i, j int) bool {
			return trend.Points[i].Date.Before(trend.Points[j].Date)
		})
		grouped[trend.Category] = append(grouped[trend.Category], trend)
	}

	result := make([]CategoryTrends, 0, len(grouped))

	for _, category := range Categories {
		trends, ok := grouped[category]
		if !ok {
			continue
		}

		sort.SliceStable(trends, func(i, j int) bool {
			return strings.ToLower(trends[i].Name) < strings.ToLower(trends[j].Name)
		})
		result = append(result, CategoryTrends{Category: category, Trends: trends})
	}

	return result
}

// CategoryScore summarizes how many biomarkers of a category are optimal.
type CategoryScore struct {
	Category Category
	Score    int // percentage of optimal biomarkers, 0-100
	Status   Status
	Optimal  int
	Total    int
}

// Score thresholds for the overall category status.
const (
	optimalScoreThreshold    = 80
	subOptimalScoreThreshold = 50
)

// CategoryScores computes a per-category score for a set of biomarkers,
// typically the latest test record. Categories without biomarkers are omitted.
func CategoryScores(biomarkers []Biomarker) []CategoryScore {
	counts := make(map[Category]*CategoryScore)

	for _, b := range biomarkers {
		score, ok := counts[b.Category]
		if !ok {
			score = &CategoryScore{Category: b.Category}
			counts[b.Category] = score
		}

		score.Total++
		if b.Status == StatusOptimal {
			score.Optimal++
		}
	}

	scores := make([]CategoryScore, 0, len(counts))

	for _, category := range Categories {
		score, ok := counts[category]
		if !ok {
			continue
		}

		score.Score = int(math.Round(100 * float64(score.Optimal) / float64(score.Total)))

		switch {
		case score.Score >= optimalScoreThreshold:
			score.Status = StatusOptimal
		case score.Score >= subOptimalScoreThreshold:
			score.Status = StatusSubOptimal
		default:
			score.Status = StatusDanger
		}

		scores = append(scores, *score)
	}

	return scores
}
