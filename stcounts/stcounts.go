// Package stcounts loads per-sample spatial transcriptomics count
// matrices. The on-disk orientation is genes as rows and spots as columns;
// the loaded Matrix is transposed so each row is one spot.
package stcounts

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/carbocation/pfx"

	"github.com/navarro-lab/spotstats"
)

// Matrix is one sample's spot-by-gene count table. It is immutable after
// load.
type Matrix struct {
	Sample  string
	SpotIDs []string
	GeneIDs []string

	// counts is spot-major: counts[spot][gene]
	counts [][]int
}

// NewMatrix assembles a spot-major matrix, rejecting duplicate identifiers
// and ragged rows.
func NewMatrix(sample string, spotIDs, geneIDs []string, counts [][]int) (*Matrix, error) {
	if len(counts) != len(spotIDs) {
		return nil, fmt.Errorf("sample %s: %d spot rows but %d spot IDs", sample, len(counts), len(spotIDs))
	}

	seenSpots := make(map[string]struct{}, len(spotIDs))
	for _, id := range spotIDs {
		if _, exists := seenSpots[id]; exists {
			return nil, fmt.Errorf("sample %s: duplicate spot %s", sample, id)
		}
		seenSpots[id] = struct{}{}
	}

	seenGenes := make(map[string]struct{}, len(geneIDs))
	for _, id := range geneIDs {
		if _, exists := seenGenes[id]; exists {
			return nil, fmt.Errorf("sample %s: duplicate gene %s", sample, id)
		}
		seenGenes[id] = struct{}{}
	}

	for i, row := range counts {
		if len(row) != len(geneIDs) {
			return nil, fmt.Errorf("sample %s: spot %s has %d counts but there are %d genes", sample, spotIDs[i], len(row), len(geneIDs))
		}
		for j, c := range row {
			if c < 0 {
				return nil, fmt.Errorf("sample %s: negative count %d at spot %s gene %s", sample, c, spotIDs[i], geneIDs[j])
			}
		}
	}

	return &Matrix{Sample: sample, SpotIDs: spotIDs, GeneIDs: geneIDs, counts: counts}, nil
}

// Count returns the UMI count for the spot and gene at the given indices.
func (m *Matrix) Count(spot, gene int) int {
	return m.counts[spot][gene]
}

// SpotSum is the total count across all genes for one spot.
func (m *Matrix) SpotSum(spot int) int {
	total := 0
	for _, c := range m.counts[spot] {
		total += c
	}

	return total
}

// GeneSum is the total count for one gene, restricted to the spots where
// keepSpot is true.
func (m *Matrix) GeneSum(gene int, keepSpot []bool) int {
	total := 0
	for spot := range m.counts {
		if !keepSpot[spot] {
			continue
		}
		total += m.counts[spot][gene]
	}

	return total
}

// Load reads the count file at path, decompressing if needed, and
// transposes it into spot-major orientation. The first header cell labels
// the gene-ID column; the remaining header cells are spot identifiers in
// <x>x<y> form. Any malformed content aborts the load.
func Load(path, sampleID string) (*Matrix, error) {
	f, err := spotstats.MaybeOpenGzip(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Files are small enough to buffer, and the delimiter detector needs
	// its own pass over the bytes.
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := spotstats.DetermineDelimiter(bytes.NewReader(raw))

	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", path, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: header has %d columns, want at least a gene column and one spot", path, len(header))
	}

	spotIDs := header[1:]

	var geneIDs []string
	var geneRows [][]int

	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, line, err)
		}

		geneIDs = append(geneIDs, row[0])

		counts := make([]int, len(row)-1)
		for i, cell := range row[1:] {
			c, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("%s: line %d, spot %s: count %q is not an integer", path, line, spotIDs[i], cell)
			}
			counts[i] = c
		}
		geneRows = append(geneRows, counts)
	}

	// Transpose from gene-major to spot-major.
	counts := make([][]int, len(spotIDs))
	for spot := range spotIDs {
		row := make([]int, len(geneIDs))
		for gene := range geneIDs {
			row[gene] = geneRows[gene][spot]
		}
		counts[spot] = row
	}

	return NewMatrix(sampleID, spotIDs, geneIDs, counts)
}
