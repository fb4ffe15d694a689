// spotqc compares per-spot gene and UMI yields between the manual and
// automated library preparation protocols. It reads each sample's
// downsampled count matrix and under-tissue spot list, thresholds
// low-count spots and genes by sequencing depth, and writes four PNG
// figures to the output directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/navarro-lab/spotstats"
	"github.com/navarro-lab/spotstats/feature"
	"github.com/navarro-lab/spotstats/registry"
	"github.com/navarro-lab/spotstats/stplot"
)

func main() {
	start := time.Now()
	log.Println("spotqc start")
	defer func() {
		log.Printf("spotqc end. Took %.2f seconds\n", time.Since(start).Seconds())
	}()

	var dataDir, outDir, samplesTSV string

	flag.StringVar(&dataDir, "data", "", "Path to folder with <sample>_downsamp_stdata.tsv.gz and <sample>_stdata_under_tissue_IDs.txt.gz files")
	flag.StringVar(&outDir, "out", ".", "Folder to write the output PNG figures into")
	flag.StringVar(&samplesTSV, "samples", "", "(Optional) Tab-delimited sample sheet with columns sample, condition, depth. Defaults to the built-in six-sample table.")
	flag.Parse()

	if dataDir == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(dataDir, outDir, samplesTSV); err != nil {
		log.Fatalln(err)
	}
}

func run(dataDir, outDir, samplesTSV string) error {
	dataDir, err := spotstats.ExpandHome(dataDir)
	if err != nil {
		return err
	}

	outDir, err = spotstats.ExpandHome(outDir)
	if err != nil {
		return err
	}

	reg := registry.Default()
	if samplesTSV != "" {
		if reg, err = registry.FromTSV(samplesTSV); err != nil {
			return err
		}
	}

	layout := func(sampleID string) (countsPath, maskPath string) {
		return filepath.Join(dataDir, sampleID+"_downsamp_stdata.tsv.gz"),
			filepath.Join(dataDir, sampleID+"_stdata_under_tissue_IDs.txt.gz")
	}

	geneRecords, err := feature.ExtractAll(reg, layout, feature.Gene)
	if err != nil {
		return err
	}
	log.Printf("Extracted %d gene-mode spot records\n", len(geneRecords))

	umiRecords, err := feature.ExtractAll(reg, layout, feature.UMI)
	if err != nil {
		return err
	}
	log.Printf("Extracted %d umi-mode spot records\n", len(umiRecords))

	if err := stplot.Distributions(geneRecords, stplot.DistributionOptions{
		Title:      "Genes per spot by protocol",
		ValueLabel: "genes per spot",
	}, filepath.Join(outDir, "genes_per_spot.png")); err != nil {
		return fmt.Errorf("genes-per-spot figure: %w", err)
	}

	if err := stplot.Distributions(umiRecords, stplot.DistributionOptions{
		Title:      "UMIs per spot by protocol",
		ValueLabel: "UMIs per spot",
		LogScale:   true,
	}, filepath.Join(outDir, "umis_per_spot.png")); err != nil {
		return fmt.Errorf("umis-per-spot figure: %w", err)
	}

	// The mean-comparison routine is shared between the two modes.
	if err := stplot.MeanComparison(geneRecords, stplot.MeanOptions{
		Title:      "Mean genes per spot",
		ValueLabel: "mean genes per spot",
	}, filepath.Join(outDir, "mean_genes_per_spot.png")); err != nil {
		return fmt.Errorf("mean-genes figure: %w", err)
	}

	if err := stplot.MeanComparison(umiRecords, stplot.MeanOptions{
		Title:      "Mean UMIs per spot",
		ValueLabel: "mean UMIs per spot",
	}, filepath.Join(outDir, "mean_umis_per_spot.png")); err != nil {
		return fmt.Errorf("mean-umis figure: %w", err)
	}

	log.Printf("Wrote 4 figures to %s\n", outDir)

	return nil
}
