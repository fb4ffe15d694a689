package feature

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/navarro-lab/spotstats/registry"
	"github.com/navarro-lab/spotstats/stcounts"
	"github.com/navarro-lab/spotstats/tissue"
)

// toyMatrix is 3 genes by 4 spots with spot totals {1, 5, 3, 0}. With a
// sequencing depth of 2,000,000 reads the threshold is 2, so only the
// spots summing to 5 and 3 survive.
func toyMatrix(t *testing.T) *stcounts.Matrix {
	t.Helper()

	// Spot-major orientation; the gene-major source rows were
	//   g1: 1 2 1 0
	//   g2: 0 2 1 0
	//   g3: 0 1 1 0
	m, err := stcounts.NewMatrix("T1",
		[]string{"1x1", "1x2", "2x1", "2x2"},
		[]string{"g1", "g2", "g3"},
		[][]int{
			{1, 0, 0},
			{2, 2, 1},
			{1, 1, 1},
			{0, 0, 0},
		})
	if err != nil {
		t.Fatal(err)
	}

	return m
}

func toySample() registry.Sample {
	return registry.Sample{ID: "T1", Condition: registry.Manual, Depth: 2_000_000}
}

func TestExtractGeneMode(t *testing.T) {
	mask := tissue.Mask{"1x2": {}}

	records, err := Extract(toyMatrix(t), mask, toySample(), Gene)
	if err != nil {
		t.Fatal(err)
	}

	// Spots 1x1 (sum 1) and 2x2 (sum 0) fall at or below the threshold of
	// 2. Gene g3 sums to 2 over the survivors and is dropped too, leaving
	// g1 and g2 for both surviving spots.
	want := []Record{
		{Spot: "1x2", Inside: true, Sample: "T1", Condition: registry.Manual, Value: 2},
		{Spot: "2x1", Inside: false, Sample: "T1", Condition: registry.Manual, Value: 2},
	}

	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d: %+v", len(want), len(records), records)
	}
	for i, rec := range records {
		if rec != want[i] {
			t.Fatalf("Record %d: expected %+v, got %+v", i, want[i], rec)
		}
	}
}

func TestExtractUMIMode(t *testing.T) {
	mask := tissue.Mask{"1x2": {}}

	records, err := Extract(toyMatrix(t), mask, toySample(), UMI)
	if err != nil {
		t.Fatal(err)
	}

	// UMI sums over the surviving genes g1 and g2.
	want := map[string]int{"1x2": 4, "2x1": 2}

	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d", len(want), len(records))
	}
	for _, rec := range records {
		if rec.Value != want[rec.Spot] {
			t.Fatalf("Spot %s: expected UMI sum %d, got %d", rec.Spot, want[rec.Spot], rec.Value)
		}
	}
}

func TestExtractDropsThresholdedSpots(t *testing.T) {
	m := toyMatrix(t)
	samp := toySample()

	records, err := Extract(m, tissue.Mask{}, samp, Gene)
	if err != nil {
		t.Fatal(err)
	}

	spotSums := make(map[string]int)
	for i, id := range m.SpotIDs {
		spotSums[id] = m.SpotSum(i)
	}

	for _, rec := range records {
		if float64(spotSums[rec.Spot]) <= samp.Threshold() {
			t.Fatalf("Spot %s with total %d survived a threshold of %f", rec.Spot, spotSums[rec.Spot], samp.Threshold())
		}
	}
	for _, dropped := range []string{"1x1", "2x2"} {
		for _, rec := range records {
			if rec.Spot == dropped {
				t.Fatalf("Spot %s should have been thresholded out", dropped)
			}
		}
	}
}

func TestExtractInsideMatchesMask(t *testing.T) {
	// Mask membership alone decides the flag, including for a masked spot
	// that was thresholded out (it simply yields no record).
	mask := tissue.Mask{"1x1": {}, "2x1": {}}

	records, err := Extract(toyMatrix(t), mask, toySample(), Gene)
	if err != nil {
		t.Fatal(err)
	}

	for _, rec := range records {
		if rec.Inside != mask.Contains(rec.Spot) {
			t.Fatalf("Spot %s: inside flag %t does not match mask membership %t", rec.Spot, rec.Inside, mask.Contains(rec.Spot))
		}
	}
	for _, rec := range records {
		if rec.Spot == "1x1" {
			t.Fatal("Thresholded-out spot 1x1 must not produce a record")
		}
	}
}

func TestExtractUnsupportedMode(t *testing.T) {
	if _, err := Extract(toyMatrix(t), tissue.Mask{}, toySample(), Mode("counts")); err == nil {
		t.Fatal("Expected an error for an unsupported mode, got nil")
	}
}

func TestParseMode(t *testing.T) {
	for _, v := range []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"gene", Gene, true},
		{"umi", UMI, true},
		{"", "", false},
		{"genes", "", false},
	} {
		got, err := ParseMode(v.in)
		if v.ok && err != nil {
			t.Fatal(err)
		}
		if !v.ok && err == nil {
			t.Fatalf("ParseMode(%q): expected an error, got nil", v.in)
		}
		if got != v.want {
			t.Fatalf("ParseMode(%q): expected %q, got %q", v.in, v.want, got)
		}
	}
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

// Concatenation across samples must preserve the total number of
// surviving (spot, inside-flag) groups.
func TestExtractAllConcatenation(t *testing.T) {
	dir := t.TempDir()

	sheet := filepath.Join(dir, "samples.tsv")
	if err := os.WriteFile(sheet, []byte("sample\tcondition\tdepth\nS1\tmanual\t1000000\nS2\tautomated\t1000000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	reg, err := registry.FromTSV(sheet)
	if err != nil {
		t.Fatal(err)
	}

	// Threshold is 1 for both samples. S1 keeps both spots and both
	// genes; S2 keeps its single spot.
	writeGzip(t, filepath.Join(dir, "S1_downsamp_stdata.tsv.gz"),
		"gene\t1x1\t1x2\ng1\t2\t0\ng2\t1\t3\n")
	writeGzip(t, filepath.Join(dir, "S1_stdata_under_tissue_IDs.txt.gz"), "1_1\n")
	writeGzip(t, filepath.Join(dir, "S2_downsamp_stdata.tsv.gz"),
		"gene\t5x5\ng1\t4\n")
	writeGzip(t, filepath.Join(dir, "S2_stdata_under_tissue_IDs.txt.gz"), "9_9\n")

	layout := func(sampleID string) (string, string) {
		return filepath.Join(dir, sampleID+"_downsamp_stdata.tsv.gz"),
			filepath.Join(dir, sampleID+"_stdata_under_tissue_IDs.txt.gz")
	}

	records, err := ExtractAll(reg, layout, Gene)
	if err != nil {
		t.Fatal(err)
	}

	// Two S1 spot groups plus one S2 spot group.
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d: %+v", len(records), records)
	}

	want := []Record{
		{Spot: "1x1", Inside: true, Sample: "S1", Condition: registry.Manual, Value: 2},
		{Spot: "1x2", Inside: false, Sample: "S1", Condition: registry.Manual, Value: 1},
		{Spot: "5x5", Inside: false, Sample: "S2", Condition: registry.Automated, Value: 1},
	}
	for i, rec := range records {
		if rec != want[i] {
			t.Fatalf("Record %d: expected %+v, got %+v", i, want[i], rec)
		}
	}
}

func TestExtractAllMissingFile(t *testing.T) {
	dir := t.TempDir()

	sheet := filepath.Join(dir, "samples.tsv")
	if err := os.WriteFile(sheet, []byte("sample\tcondition\tdepth\nS1\tmanual\t1000000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	reg, err := registry.FromTSV(sheet)
	if err != nil {
		t.Fatal(err)
	}

	layout := func(sampleID string) (string, string) {
		return filepath.Join(dir, sampleID+".tsv.gz"), filepath.Join(dir, sampleID+".txt.gz")
	}

	if _, err := ExtractAll(reg, layout, Gene); err == nil {
		t.Fatal("Expected an error for missing input files, got nil")
	}
}

func TestExtractAllUnsupportedMode(t *testing.T) {
	if _, err := ExtractAll(registry.Default(), func(string) (string, string) { return "", "" }, Mode("spot")); err == nil {
		t.Fatal("Expected an error for an unsupported mode, got nil")
	}
}
