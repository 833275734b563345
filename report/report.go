// Package report summarizes the logged growth history and renders it
// as an HTML chart.
package report

import (
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/verdantlab/plantmon/logbook"
)

// Summary holds growth statistics computed over all logged records.
type Summary struct {
	TotalMeasurements int
	FirstLogged       time.Time
	LatestLogged      time.Time

	InitialHeightMM float64
	CurrentHeightMM float64
	HeightGrowthMM  float64
	AvgHeightMM     float64

	InitialAreaMM2 float64
	CurrentAreaMM2 float64
	AreaGrowthMM2  float64
	AvgAreaMM2     float64

	CurrentLeafCount int
}

// Summarize computes growth statistics. ok is false when there are no
// records.
func Summarize(records []logbook.Record) (Summary, bool) {
	if len(records) == 0 {
		return Summary{}, false
	}

	heights := make([]float64, len(records))
	areas := make([]float64, len(records))
	for i, r := range records {
		heights[i] = r.HeightMM
		areas[i] = r.AreaMM2
	}

	first, last := records[0], records[len(records)-1]
	return Summary{
		TotalMeasurements: len(records),
		FirstLogged:       first.Timestamp,
		LatestLogged:      last.Timestamp,
		InitialHeightMM:   first.HeightMM,
		CurrentHeightMM:   last.HeightMM,
		HeightGrowthMM:    last.HeightMM - first.HeightMM,
		AvgHeightMM:       stat.Mean(heights, nil),
		InitialAreaMM2:    first.AreaMM2,
		CurrentAreaMM2:    last.AreaMM2,
		AreaGrowthMM2:     last.AreaMM2 - first.AreaMM2,
		AvgAreaMM2:        stat.Mean(areas, nil),
		CurrentLeafCount:  last.LeafCount,
	}, true
}

// RenderGrowthChart writes an HTML line chart of stem height and
// total leaf area over time.
func RenderGrowthChart(w io.Writer, records []logbook.Record) error {
	timestamps := make([]string, len(records))
	heights := make([]opts.LineData, len(records))
	areas := make([]opts.LineData, len(records))
	for i, r := range records {
		timestamps[i] = r.Timestamp.Format("01-02 15:04")
		heights[i] = opts.LineData{Value: r.HeightMM}
		areas[i] = opts.LineData{Value: r.AreaMM2}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Plant Growth",
			Subtitle: "stem height and total leaf area per logged sample",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)
	line.SetXAxis(timestamps).
		AddSeries("Stem Height (mm)", heights).
		AddSeries("Total Leaf Area (mm^2)", areas)

	return line.Render(w)
}
