// Package feature turns a sample's count matrix into per-spot records:
// threshold out low-count spots and genes, tag each surviving spot as
// inside or outside tissue, and aggregate to a single value per spot.
package feature

import (
	"fmt"

	"github.com/navarro-lab/spotstats/registry"
	"github.com/navarro-lab/spotstats/stcounts"
	"github.com/navarro-lab/spotstats/tissue"
)

// Mode selects the per-spot aggregate.
type Mode string

const (
	// Gene counts the distinct genes with nonzero expression at a spot.
	Gene Mode = "gene"
	// UMI sums the UMI counts at a spot.
	UMI Mode = "umi"
)

// ParseMode rejects anything other than the two supported aggregates.
// There is no default mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Gene, UMI:
		return Mode(s), nil
	}

	return "", fmt.Errorf("unsupported feature mode %q (want %q or %q)", s, Gene, UMI)
}

// Record is one spot's aggregated value, tagged with its tissue
// classification and sample provenance.
type Record struct {
	Spot      string
	Inside    bool
	Sample    string
	Condition registry.Condition
	Value     int
}

// Extract produces one Record per surviving spot of one sample.
//
// Spots whose total count is at or below the sample threshold are dropped
// first, then genes whose total over the surviving spots is at or below
// the threshold. The threshold is applied uniformly to all spots
// regardless of tissue classification; the reference methodology
// thresholded inside and outside spots separately, and the uniform cut is
// an intentional simplification carried over from the source analysis.
func Extract(m *stcounts.Matrix, mask tissue.Mask, samp registry.Sample, mode Mode) ([]Record, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	threshold := samp.Threshold()

	keepSpot := make([]bool, len(m.SpotIDs))
	for spot := range m.SpotIDs {
		keepSpot[spot] = float64(m.SpotSum(spot)) > threshold
	}

	keepGene := make([]bool, len(m.GeneIDs))
	for gene := range m.GeneIDs {
		keepGene[gene] = float64(m.GeneSum(gene, keepSpot)) > threshold
	}

	records := make([]Record, 0, len(m.SpotIDs))

	for spot, spotID := range m.SpotIDs {
		if !keepSpot[spot] {
			continue
		}

		genes, umis := 0, 0
		for gene := range m.GeneIDs {
			if !keepGene[gene] {
				continue
			}
			if c := m.Count(spot, gene); c > 0 {
				genes++
				umis += c
			}
		}

		// A spot can survive thresholding yet express no surviving gene;
		// with no (gene, spot) pairs left it contributes no record.
		if genes == 0 {
			continue
		}

		value := genes
		if mode == UMI {
			value = umis
		}

		records = append(records, Record{
			Spot:      spotID,
			Inside:    mask.Contains(spotID),
			Sample:    samp.ID,
			Condition: samp.Condition,
			Value:     value,
		})
	}

	return records, nil
}

// Layout locates the on-disk inputs for one sample.
type Layout func(sampleID string) (countsPath, maskPath string)

// ExtractAll runs Extract for every registry sample in declaration order
// and concatenates the results. Any load or extraction failure aborts the
// whole run.
func ExtractAll(reg *registry.Registry, layout Layout, mode Mode) ([]Record, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	var out []Record
	for _, samp := range reg.Samples() {
		countsPath, maskPath := layout(samp.ID)

		m, err := stcounts.Load(countsPath, samp.ID)
		if err != nil {
			return nil, err
		}

		mask, err := tissue.LoadMask(maskPath, samp.ID)
		if err != nil {
			return nil, err
		}

		records, err := Extract(m, mask, samp, mode)
		if err != nil {
			return nil, err
		}

		out = append(out, records...)
	}

	return out, nil
}
