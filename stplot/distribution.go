package stplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/carbocation/pfx"
	"github.com/fogleman/gg"
	"github.com/gonum/stat"
	"github.com/montanaflynn/stats"
	"golang.org/x/image/font/basicfont"

	"github.com/navarro-lab/spotstats/feature"
)

// DistributionOptions configures the violin-and-box figure.
type DistributionOptions struct {
	Title      string
	ValueLabel string

	// LogScale plots log10 of the per-spot values. Values are counts of at
	// least 1, so the transform is always defined.
	LogScale bool

	Width  int // default 1400
	Height int // default 700
}

const (
	marginLeft   = 80.0
	marginRight  = 24.0
	marginTop    = 56.0
	marginBottom = 72.0
	panelGap     = 48.0
)

// Distributions renders per-sample violin bodies with overlaid boxplots,
// one panel for spots inside tissue and one for spots outside, and writes
// the figure to outPath as PNG.
func Distributions(records []feature.Record, opts DistributionOptions, outPath string) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to plot")
	}

	if opts.Width == 0 {
		opts.Width = 1400
	}
	if opts.Height == 0 {
		opts.Height = 700
	}

	groups := groupBySample(records)
	if opts.LogScale {
		groups = logGroups(groups)
	}

	yMin, yMax := valueRange(groups)
	if yMax == yMin {
		yMax = yMin + 1
	}
	pad := 0.05 * (yMax - yMin)
	yMin -= pad
	yMax += pad

	samples := sampleNames(groups)

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	panelWidth := (float64(opts.Width) - marginLeft - marginRight - panelGap) / 2
	panelHeight := float64(opts.Height) - marginTop - marginBottom
	panelTop := marginTop

	for p, inside := range []bool{true, false} {
		panelLeft := marginLeft + float64(p)*(panelWidth+panelGap)

		drawPanelFrame(dc, panelLeft, panelTop, panelWidth, panelHeight, yMin, yMax, p == 0)

		title := "inside tissue"
		if !inside {
			title = "outside tissue"
		}
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(title, panelLeft+panelWidth/2, panelTop-12, 0.5, 0.5)

		slotWidth := panelWidth / float64(len(samples))
		for i, sample := range samples {
			g, exists := findGroup(groups, sample, inside)
			if !exists || len(g.Values) == 0 {
				continue
			}

			centerX := panelLeft + (float64(i)+0.5)*slotWidth

			drawViolin(dc, g, centerX, 0.42*slotWidth, panelTop, panelHeight, yMin, yMax)
			if err := drawBox(dc, g.Values, centerX, 0.10*slotWidth, panelTop, panelHeight, yMin, yMax); err != nil {
				return err
			}

			dc.SetColor(color.Black)
			dc.DrawStringAnchored(sample, centerX, panelTop+panelHeight+16, 0.5, 0.5)
		}
	}

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(opts.Title, float64(opts.Width)/2, marginTop/2-8, 0.5, 0.5)

	valueLabel := opts.ValueLabel
	if opts.LogScale {
		valueLabel = "log10(" + valueLabel + ")"
	}
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 20, float64(opts.Height)/2)
	dc.DrawStringAnchored(valueLabel, 20, float64(opts.Height)/2, 0.5, 0.5)
	dc.Pop()

	drawLegend(dc, groups, float64(opts.Width)-marginRight-150, marginTop/2-12)

	if err := dc.SavePNG(outPath); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func logGroups(groups []sampleGroup) []sampleGroup {
	out := make([]sampleGroup, len(groups))
	for i, g := range groups {
		lg := g
		lg.Values = make([]float64, 0, len(g.Values))
		for _, v := range g.Values {
			if v > 0 {
				lg.Values = append(lg.Values, math.Log10(v))
			}
		}
		out[i] = lg
	}

	return out
}

func valueRange(groups []sampleGroup) (lo, hi float64) {
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, g := range groups {
		for _, v := range g.Values {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	return lo, hi
}

func findGroup(groups []sampleGroup, sample string, inside bool) (sampleGroup, bool) {
	for _, g := range groups {
		if g.Sample == sample && g.Inside == inside {
			return g, true
		}
	}

	return sampleGroup{}, false
}

// yToPixel maps a data value into panel pixel space, larger values higher.
func yToPixel(v, yMin, yMax, panelTop, panelHeight float64) float64 {
	return panelTop + panelHeight - (v-yMin)/(yMax-yMin)*panelHeight
}

func drawPanelFrame(dc *gg.Context, left, top, width, height, yMin, yMax float64, labelTicks bool) {
	dc.SetColor(color.NRGBA{R: 60, G: 60, B: 60, A: 255})
	dc.SetLineWidth(1)
	dc.DrawLine(left, top, left, top+height)
	dc.DrawLine(left, top+height, left+width, top+height)
	dc.Stroke()

	for _, tick := range niceTicks(yMin, yMax, 6) {
		y := yToPixel(tick, yMin, yMax, top, height)

		dc.SetColor(color.NRGBA{R: 220, G: 220, B: 220, A: 255})
		dc.DrawLine(left, y, left+width, y)
		dc.Stroke()

		dc.SetColor(color.NRGBA{R: 60, G: 60, B: 60, A: 255})
		dc.DrawLine(left-4, y, left, y)
		dc.Stroke()

		if labelTicks {
			dc.SetColor(color.Black)
			dc.DrawStringAnchored(formatTick(tick), left-8, y, 1, 0.5)
		}
	}
}

// drawViolin rasters a kernel density estimate mirrored around centerX.
// Bandwidth is Silverman's rule of thumb.
func drawViolin(dc *gg.Context, g sampleGroup, centerX, maxHalfWidth, panelTop, panelHeight, yMin, yMax float64) {
	n := float64(len(g.Values))
	_, sd := stat.MeanStdDev(g.Values, nil)

	h := 1.06 * sd * math.Pow(n, -0.2)
	if math.IsNaN(h) || h <= 0 {
		// Degenerate group (constant values): draw a flat bar instead.
		h = (yMax - yMin) / 100
	}

	lo, hi := valueRange([]sampleGroup{g})
	lo = math.Max(lo-3*h, yMin)
	hi = math.Min(hi+3*h, yMax)

	const gridN = 80
	gridStep := (hi - lo) / (gridN - 1)

	density := make([]float64, gridN)
	maxDensity := 0.0
	for i := range density {
		gv := lo + float64(i)*gridStep
		sum := 0.0
		for _, v := range g.Values {
			z := (gv - v) / h
			sum += math.Exp(-0.5 * z * z)
		}
		density[i] = sum / (n * h * math.Sqrt(2*math.Pi))
		if density[i] > maxDensity {
			maxDensity = density[i]
		}
	}
	if maxDensity == 0 {
		return
	}

	dc.NewSubPath()
	for i := 0; i < gridN; i++ {
		y := yToPixel(lo+float64(i)*gridStep, yMin, yMax, panelTop, panelHeight)
		x := centerX - maxHalfWidth*density[i]/maxDensity
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	for i := gridN - 1; i >= 0; i-- {
		y := yToPixel(lo+float64(i)*gridStep, yMin, yMax, panelTop, panelHeight)
		dc.LineTo(centerX+maxHalfWidth*density[i]/maxDensity, y)
	}
	dc.ClosePath()

	dc.SetColor(conditionNRGBA(g.Condition, 110))
	dc.FillPreserve()
	dc.SetColor(conditionNRGBA(g.Condition, 255))
	dc.SetLineWidth(1.5)
	dc.Stroke()
}

// drawBox overlays a quartile box with 1.5*IQR whiskers.
func drawBox(dc *gg.Context, values []float64, centerX, halfWidth, panelTop, panelHeight, yMin, yMax float64) error {
	data := stats.LoadRawData(values)

	q, err := stats.Quartile(data)
	if err != nil {
		return pfx.Err(err)
	}

	iqr := q.Q3 - q.Q1
	whiskerLo, whiskerHi := q.Q1, q.Q3
	for _, v := range values {
		if v >= q.Q1-1.5*iqr && v < whiskerLo {
			whiskerLo = v
		}
		if v <= q.Q3+1.5*iqr && v > whiskerHi {
			whiskerHi = v
		}
	}

	yQ1 := yToPixel(q.Q1, yMin, yMax, panelTop, panelHeight)
	yQ3 := yToPixel(q.Q3, yMin, yMax, panelTop, panelHeight)
	yMed := yToPixel(q.Q2, yMin, yMax, panelTop, panelHeight)
	yLo := yToPixel(whiskerLo, yMin, yMax, panelTop, panelHeight)
	yHi := yToPixel(whiskerHi, yMin, yMax, panelTop, panelHeight)

	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 200})
	dc.DrawRectangle(centerX-halfWidth, yQ3, 2*halfWidth, yQ1-yQ3)
	dc.Fill()

	dc.SetColor(color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	dc.SetLineWidth(1.2)

	dc.DrawRectangle(centerX-halfWidth, yQ3, 2*halfWidth, yQ1-yQ3)
	dc.Stroke()

	dc.DrawLine(centerX-halfWidth, yMed, centerX+halfWidth, yMed)
	dc.Stroke()

	dc.DrawLine(centerX, yQ3, centerX, yHi)
	dc.DrawLine(centerX, yQ1, centerX, yLo)
	dc.Stroke()

	dc.DrawLine(centerX-halfWidth/2, yHi, centerX+halfWidth/2, yHi)
	dc.DrawLine(centerX-halfWidth/2, yLo, centerX+halfWidth/2, yLo)
	dc.Stroke()

	return nil
}

func drawLegend(dc *gg.Context, groups []sampleGroup, x, y float64) {
	seen := make(map[string]struct{})
	offset := 0.0
	for _, g := range groups {
		name := string(g.Condition)
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}

		dc.SetColor(conditionNRGBA(g.Condition, 255))
		dc.DrawRectangle(x, y+offset, 12, 12)
		dc.Fill()

		dc.SetColor(color.Black)
		dc.DrawStringAnchored(name, x+18, y+offset+6, 0, 0.5)

		offset += 16
	}
}
