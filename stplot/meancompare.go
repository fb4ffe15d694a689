package stplot

import (
	"bytes"
	"fmt"
	"os"

	"github.com/carbocation/pfx"
	"github.com/gonum/stat"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/navarro-lab/spotstats/feature"
	"github.com/navarro-lab/spotstats/registry"
)

// MeanOptions configures the mean-comparison figure.
type MeanOptions struct {
	Title      string
	ValueLabel string

	Width  int // default 800
	Height int // default 600
}

const (
	outsidePosition = 0.0
	insidePosition  = 1.0
)

// pointStyle renders points only. The stroke must be explicitly disabled;
// a zero stroke width inherits the default and connects the points.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    6,
		DotColor:    col,
	}
}

// MeanComparison plots the mean per-spot value of every (sample, tissue
// classification) group: points positioned by inside/outside, colored by
// condition, and writes the chart to outPath as PNG. The same routine
// serves both feature modes.
func MeanComparison(records []feature.Record, opts MeanOptions, outPath string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to plot")
	}

	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 600
	}

	groups := groupBySample(records)
	samples := sampleNames(groups)

	// Spread each sample's points around the flag position so the six
	// samples don't stack on one x value.
	offsets := make(map[string]float64, len(samples))
	for i, sample := range samples {
		if len(samples) > 1 {
			offsets[sample] = -0.18 + 0.36*float64(i)/float64(len(samples)-1)
		}
	}

	xsByCondition := make(map[registry.Condition][]float64)
	ysByCondition := make(map[registry.Condition][]float64)
	var conditionOrder []registry.Condition

	for _, g := range groups {
		if len(g.Values) == 0 {
			continue
		}

		position := outsidePosition
		if g.Inside {
			position = insidePosition
		}

		if _, exists := xsByCondition[g.Condition]; !exists {
			conditionOrder = append(conditionOrder, g.Condition)
		}
		xsByCondition[g.Condition] = append(xsByCondition[g.Condition], position+offsets[g.Sample])
		ysByCondition[g.Condition] = append(ysByCondition[g.Condition], stat.Mean(g.Values, nil))
	}

	var series []chart.Series
	for _, cond := range conditionOrder {
		series = append(series, chart.ContinuousSeries{
			Name:    string(cond),
			XValues: xsByCondition[cond],
			YValues: ysByCondition[cond],
			Style:   pointStyle(conditionColor(cond)),
		})
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 24},
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: -0.5, Max: 1.5},
			Ticks: []chart.Tick{
				{Value: outsidePosition, Label: "outside"},
				{Value: insidePosition, Label: "inside"},
			},
		},
		YAxis: chart.YAxis{
			Name: opts.ValueLabel,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return pfx.Err(err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer outFile.Close()

	if _, err := buffer.WriteTo(outFile); err != nil {
		return pfx.Err(err)
	}

	return nil
}
