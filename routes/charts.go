/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	htmltemplate "html/template"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kavana-health/vault/health"
)

// trendChart is a rendered biomarker trend ready for a template.
type trendChart struct {
	Name   string
	Unit   string
	Latest health.TrendPoint
	HTML   htmltemplate.HTML
}

// categoryCharts holds the trend charts of one category.
type categoryCharts struct {
	Category health.Category
	Charts   []trendChart
}

// buildTrendCharts renders a line chart for every biomarker trend.
func buildTrendCharts(groups []health.CategoryTrends, loc *time.Location) []categoryCharts {
	result := make([]categoryCharts, 0, len(groups))

	for _, group := range groups {
		cc := categoryCharts{Category: group.Category}

		for _, trend := range group.Trends {
			html, err := renderTrendChart(trend, loc)
			if err != nil {
				logger.Error("Failed to render trend chart", "biomarker", trend.Name, "error", err)
				continue
			}

			latest, _ := trend.Latest()
			cc.Charts = append(cc.Charts, trendChart{
				Name:   trend.Name,
				Unit:   trend.Unit,
				Latest: latest,
				HTML:   htmltemplate.HTML(html),
			})
		}

		if len(cc.Charts) > 0 {
			result = append(result, cc)
		}
	}

	return result
}

// chartAxisBounds pads the y axis so both the data and the optimal range
// are visible.
func chartAxisBounds(trend health.Trend) (float64, float64) {
	lo, hi := trend.OptimalRange.Min, trend.OptimalRange.Max

	for _, p := range trend.Points {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}

	padding := (hi - lo) * 0.1
	if padding == 0 {
		padding = 1
	}

	lo -= padding
	if lo < 0 && trend.OptimalRange.Min >= 0 {
		lo = 0
	}

	return lo, hi + padding
}

func renderTrendChart(trend health.Trend, loc *time.Location) (string, error) {
	xAxis := make([]string, 0, len(trend.Points))
	yData := make([]opts.LineData, 0, len(trend.Points))

	for _, p := range trend.Points {
		xAxis = append(xAxis, p.Date.In(loc).Format("Jan 2, 2006"))
		yData = append(yData, opts.LineData{Value: p.Value})
	}

	yMin, yMax := chartAxisBounds(trend)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: "280px",
		}),
		charts.WithTitleOpts(opts.Title{Title: trend.Name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: trend.Unit,
			Min:  yMin,
			Max:  yMax,
		}),
	)

	optimalLines := []interface{}{
		opts.MarkLineNameYAxisItem{Name: "Opt Max", YAxis: trend.OptimalRange.Max},
	}
	if trend.OptimalRange.Min != 0 {
		optimalLines = append(optimalLines, opts.MarkLineNameYAxisItem{Name: "Opt Min", YAxis: trend.OptimalRange.Min})
	}

	line.SetXAxis(xAxis).
		AddSeries(trend.Name, yData).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				Smooth:     opts.Bool(true),
				ShowSymbol: opts.Bool(true),
			}),
			func(s *charts.SingleSeries) {
				s.MarkLines = &opts.MarkLines{
					Data: optimalLines,
					MarkLineStyle: opts.MarkLineStyle{
						Symbol: []string{"none", "none"},
						LineStyle: &opts.LineStyle{
							Color: "rgba(34, 139, 34, 0.6)",
							Type:  "dashed",
							Width: 1.5,
						},
					},
				}
			},
		)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}
