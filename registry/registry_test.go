package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	samples := reg.Samples()
	if len(samples) != 6 {
		t.Fatalf("Expected 6 samples, got %d", len(samples))
	}

	counts := make(map[Condition]int)
	for _, samp := range samples {
		counts[samp.Condition]++
	}
	if counts[Manual] != 3 || counts[Automated] != 3 {
		t.Fatalf("Expected 3 manual and 3 automated samples, got %d and %d", counts[Manual], counts[Automated])
	}

	samp, err := reg.Lookup("AU3")
	if err != nil {
		t.Fatal(err)
	}
	if samp.Condition != Automated {
		t.Fatalf("AU3 condition: expected %q, got %q", Automated, samp.Condition)
	}
	if samp.Depth <= 0 {
		t.Fatalf("AU3 depth: expected positive, got %d", samp.Depth)
	}
}

func TestSamplesOrderIsStable(t *testing.T) {
	want := []string{"MA1", "MA2", "MA3", "AU1", "AU2", "AU3"}

	for trial := 0; trial < 3; trial++ {
		samples := Default().Samples()
		for i, samp := range samples {
			if samp.ID != want[i] {
				t.Fatalf("Sample order trial %d position %d: expected %s, got %s", trial, i, want[i], samp.ID)
			}
		}
	}
}

func TestLookupUnknownSample(t *testing.T) {
	if _, err := Default().Lookup("XX9"); err == nil {
		t.Fatal("Expected an error for an unknown sample, got nil")
	}
}

func TestThreshold(t *testing.T) {
	for _, v := range []struct {
		depth int
		want  float64
	}{
		{2_000_000, 2},
		{34_400_000, 34.4},
		{1, 0.000001},
	} {
		samp := Sample{ID: "T", Condition: Manual, Depth: v.depth}
		if got := samp.Threshold(); got != v.want {
			t.Fatalf("Threshold for depth %d: expected %f, got %f", v.depth, v.want, got)
		}
	}
}

func TestParseCondition(t *testing.T) {
	if _, err := ParseCondition("manual"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseCondition("automated"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseCondition("robotic"); err == nil {
		t.Fatal("Expected an error for an unknown condition, got nil")
	}
}

func TestFromTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.tsv")
	content := "sample\tcondition\tdepth\nS1\tmanual\t1000000\nS2\tautomated\t2000000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := FromTSV(path)
	if err != nil {
		t.Fatal(err)
	}

	samples := reg.Samples()
	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0].ID != "S1" || samples[1].ID != "S2" {
		t.Fatalf("Expected order [S1 S2], got [%s %s]", samples[0].ID, samples[1].ID)
	}

	samp, err := reg.Lookup("S2")
	if err != nil {
		t.Fatal(err)
	}
	if samp.Condition != Automated || samp.Depth != 2_000_000 {
		t.Fatalf("S2: expected automated/2000000, got %s/%d", samp.Condition, samp.Depth)
	}
}

func TestFromTSVRejectsBadCondition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.tsv")
	content := "sample\tcondition\tdepth\nS1\trobotic\t1000000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := FromTSV(path); err == nil {
		t.Fatal("Expected an error for an unknown condition, got nil")
	}
}

func TestFromTSVRejectsDuplicateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.tsv")
	content := "sample\tcondition\tdepth\nS1\tmanual\t1000000\nS1\tmanual\t1000000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := FromTSV(path); err == nil {
		t.Fatal("Expected an error for a duplicate sample, got nil")
	}
}
