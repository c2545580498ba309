// Package charts renders dashboard aggregates as PNG images.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/fintrackhq/fintrack/internal/insight"
)

// MonthlyPNG draws the expense and income series of the dashboard chart.
// Amounts are converted from minor units only for display.
func MonthlyPNG(buckets []insight.MonthBucket) ([]byte, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("no data to chart")
	}
	if len(buckets) == 1 {
		// A single point has no x-range; pad it so the renderer has a line.
		buckets = append(buckets, buckets[0])
	}

	xs := make([]float64, len(buckets))
	expenses := make([]float64, len(buckets))
	incomes := make([]float64, len(buckets))
	ticks := make([]chart.Tick, len(buckets))
	for i, b := range buckets {
		xs[i] = float64(i)
		expenses[i] = float64(b.ExpensesMinor) / 100
		incomes[i] = float64(b.IncomesMinor) / 100
		ticks[i] = chart.Tick{Value: float64(i), Label: b.Month}
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		XAxis: chart.XAxis{
			Ticks: ticks,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Expenses",
				XValues: xs,
				YValues: expenses,
				Style: chart.Style{
					StrokeColor: drawing.ColorRed,
					FillColor:   drawing.ColorRed.WithAlpha(40),
				},
			},
			chart.ContinuousSeries{
				Name:    "Incomes",
				XValues: xs,
				YValues: incomes,
				Style: chart.Style{
					StrokeColor: drawing.ColorGreen,
					FillColor:   drawing.ColorGreen.WithAlpha(40),
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
