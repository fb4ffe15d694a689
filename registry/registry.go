// Package registry maps sample identifiers to their library preparation
// protocol and sequencing depth. The built-in table covers the six samples
// from the protocol comparison; an optional TSV can replace it when the
// pipeline is pointed at a different batch.
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Condition is the library preparation protocol a sample was processed
// with.
type Condition string

const (
	Manual    Condition = "manual"
	Automated Condition = "automated"
)

// ParseCondition rejects anything other than the two known protocols.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case Manual, Automated:
		return Condition(s), nil
	}

	return "", fmt.Errorf("unknown condition %q (want %q or %q)", s, Manual, Automated)
}

type Sample struct {
	ID        string    `csv:"sample"`
	Condition Condition `csv:"condition"`
	Depth     int       `csv:"depth"`
}

// Threshold is the low-count cutoff derived from sequencing depth: one
// count per million reads.
func (s Sample) Threshold() float64 {
	return float64(s.Depth) / 1_000_000
}

// Registry is an immutable sample table fixed at startup.
type Registry struct {
	samples map[string]Sample
	order   []string
}

// Default returns the registry for the six samples of the manual-versus-
// automated library preparation comparison. Depths are post-downsampling
// read totals.
func Default() *Registry {
	reg, err := build([]Sample{
		{ID: "MA1", Condition: Manual, Depth: 34_400_000},
		{ID: "MA2", Condition: Manual, Depth: 29_800_000},
		{ID: "MA3", Condition: Manual, Depth: 31_200_000},
		{ID: "AU1", Condition: Automated, Depth: 28_600_000},
		{ID: "AU2", Condition: Automated, Depth: 33_100_000},
		{ID: "AU3", Condition: Automated, Depth: 30_500_000},
	})
	if err != nil {
		// The built-in table is compiled in; a problem here is a bug.
		panic(err)
	}

	return reg
}

// FromTSV builds a registry from a tab-delimited sample sheet with columns
// sample, condition, and depth.
func FromTSV(path string) (*Registry, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})

	records := []*Sample{}
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, pfx.Err(err)
	}

	samples := make([]Sample, 0, len(records))
	for _, record := range records {
		if _, err := ParseCondition(string(record.Condition)); err != nil {
			return nil, fmt.Errorf("%s: sample %s: %w", path, record.ID, err)
		}
		if record.Depth <= 0 {
			return nil, fmt.Errorf("%s: sample %s: depth must be positive, got %d", path, record.ID, record.Depth)
		}
		samples = append(samples, *record)
	}

	reg, err := build(samples)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return reg, nil
}

func build(samples []Sample) (*Registry, error) {
	reg := &Registry{samples: make(map[string]Sample, len(samples))}

	for _, samp := range samples {
		if _, exists := reg.samples[samp.ID]; exists {
			return nil, fmt.Errorf("duplicate sample %s", samp.ID)
		}
		reg.samples[samp.ID] = samp
		reg.order = append(reg.order, samp.ID)
	}

	if len(reg.order) == 0 {
		return nil, fmt.Errorf("no samples defined")
	}

	return reg, nil
}

// Lookup returns the sample for id. An unknown identifier is a
// configuration error and the run cannot proceed.
func (r *Registry) Lookup(id string) (Sample, error) {
	samp, exists := r.samples[id]
	if !exists {
		return Sample{}, fmt.Errorf("sample %q is not in the registry", id)
	}

	return samp, nil
}

// Samples returns the samples in their declaration order, which fixes the
// grouping order in the plots.
func (r *Registry) Samples() []Sample {
	out := make([]Sample, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.samples[id])
	}

	return out
}
