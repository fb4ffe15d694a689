// Package stplot renders the comparative figures of the pipeline: per-spot
// value distributions split by tissue classification, and per-sample mean
// comparisons. All output is PNG files; nothing downstream consumes the
// rendered data.
package stplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/navarro-lab/spotstats/feature"
	"github.com/navarro-lab/spotstats/registry"
)

// conditionColors assigns each protocol a colorblind-safe color, used
// consistently across every figure.
var conditionColors = map[registry.Condition]drawing.Color{
	registry.Manual:    {R: 230, G: 159, B: 0, A: 255},
	registry.Automated: {R: 0, G: 114, B: 178, A: 255},
}

func conditionColor(c registry.Condition) drawing.Color {
	if col, exists := conditionColors[c]; exists {
		return col
	}

	return drawing.Color{R: 128, G: 128, B: 128, A: 255}
}

func conditionNRGBA(c registry.Condition, alpha uint8) color.NRGBA {
	col := conditionColor(c)
	return color.NRGBA{R: col.R, G: col.G, B: col.B, A: alpha}
}

// sampleGroup holds one sample's values for one tissue classification.
type sampleGroup struct {
	Sample    string
	Condition registry.Condition
	Inside    bool
	Values    []float64
}

// groupBySample splits records into (sample, inside) groups. Sample order
// follows first appearance in the records, which ExtractAll fixes to the
// registry declaration order; within a sample the inside group precedes
// the outside group.
func groupBySample(records []feature.Record) []sampleGroup {
	type key struct {
		sample string
		inside bool
	}

	byKey := make(map[key]*sampleGroup)
	var sampleOrder []string
	seen := make(map[string]struct{})

	for _, rec := range records {
		if _, exists := seen[rec.Sample]; !exists {
			seen[rec.Sample] = struct{}{}
			sampleOrder = append(sampleOrder, rec.Sample)
		}

		k := key{sample: rec.Sample, inside: rec.Inside}
		g, exists := byKey[k]
		if !exists {
			g = &sampleGroup{Sample: rec.Sample, Condition: rec.Condition, Inside: rec.Inside}
			byKey[k] = g
		}
		g.Values = append(g.Values, float64(rec.Value))
	}

	out := make([]sampleGroup, 0, len(byKey))
	for _, sample := range sampleOrder {
		for _, inside := range []bool{true, false} {
			if g, exists := byKey[key{sample: sample, inside: inside}]; exists {
				out = append(out, *g)
			}
		}
	}

	return out
}

func sampleNames(groups []sampleGroup) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, g := range groups {
		if _, exists := seen[g.Sample]; !exists {
			seen[g.Sample] = struct{}{}
			names = append(names, g.Sample)
		}
	}

	return names
}

// niceTicks returns ~n rounded tick values spanning [lo, hi].
func niceTicks(lo, hi float64, n int) []float64 {
	if n < 2 || hi <= lo {
		return []float64{lo, hi}
	}

	rawStep := (hi - lo) / float64(n-1)
	mag := math.Pow(10, math.Floor(math.Log10(rawStep)))
	var step float64
	switch norm := rawStep / mag; {
	case norm < 1.5:
		step = mag
	case norm < 3:
		step = 2 * mag
	case norm < 7:
		step = 5 * mag
	default:
		step = 10 * mag
	}

	var ticks []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step/1e6; v += step {
		ticks = append(ticks, v)
	}

	return ticks
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e7 {
		return fmt.Sprintf("%.0f", v)
	}

	return fmt.Sprintf("%.1f", v)
}
