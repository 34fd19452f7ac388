package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"SSPLab/internal/classify"
	"SSPLab/internal/config"
	"SSPLab/internal/curve"
	"SSPLab/internal/stats"
	"SSPLab/internal/stiffness"
)

// Failure is one skipped file and why it was skipped.
type Failure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Result collects a full batch run: one record per processed file plus the
// files that had to be skipped.
type Result struct {
	Records  []stats.SampleRecord `json:"records"`
	Failures []Failure            `json:"failures"`
}

// Run processes every CSV file in dataDir, in filename order. Per-file
// problems are reported and skipped; only a missing data directory is
// fatal. Running twice on the same inputs produces identical results.
func Run(dataDir string, groups config.Groups, params config.Analysis) (Result, error) {
	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		return Result{}, fmt.Errorf("data folder not found: %s", dataDir)
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return Result{}, fmt.Errorf("cannot list data folder %s: %w", dataDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	log.Printf("Processing %d files in %s", len(files), dataDir)

	var res Result
	for _, name := range files {
		rec, err := ProcessFile(filepath.Join(dataDir, name), groups, params)
		if err != nil {
			log.Printf("  [!] Skipping %s: %v", name, err)
			res.Failures = append(res.Failures, Failure{Filename: name, Reason: err.Error()})
			continue
		}
		log.Printf("  [OK] %s -> %s: MaxLoad=%.1fN, Stiffness=%.1fN/mm",
			name, rec.Subgroup, rec.MaxLoadN, rec.Stiffness)
		res.Records = append(res.Records, rec)
	}

	log.Printf("Processed %d samples successfully, %d skipped", len(res.Records), len(res.Failures))
	return res, nil
}

// ProcessFile analyzes a single test file into a SampleRecord. Any returned
// error is a skip reason, not a batch abort.
func ProcessFile(path string, groups config.Groups, params config.Analysis) (stats.SampleRecord, error) {
	name := filepath.Base(path)

	sampleID, condition, subgroup := classify.Classify(name, groups.TFLIDs, groups.MSCIDs)
	if condition == classify.ConditionUnknown {
		return stats.SampleRecord{}, fmt.Errorf("could not determine NO/OPER condition")
	}

	c, err := curve.Load(path)
	if err != nil {
		return stats.SampleRecord{}, err
	}

	x, y, maxLoad := c.Truncate()
	energy := curve.Energy(x, y)

	window := stiffness.WindowSize(len(x), params.WindowFraction, params.MinWindow)
	fit := stiffness.FindBestWindow(x, y, window, params.R2Threshold)

	return stats.SampleRecord{
		Filename:  name,
		SampleID:  sampleID,
		Condition: condition,
		Subgroup:  subgroup,
		TestDate:  classify.TestDate(name),
		MaxLoadN:  stats.JSONFloat(maxLoad),
		Stiffness: stats.JSONFloat(fit.Slope),
		EnergyMJ:  stats.JSONFloat(energy),
		R2:        stats.JSONFloat(fit.R2),
		StartIdx:  fit.Start,
		EndIdx:    fit.End,
	}, nil
}
