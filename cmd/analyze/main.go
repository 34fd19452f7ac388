package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"SSPLab/internal/auth"
	"SSPLab/internal/config"
	"SSPLab/internal/export"
	"SSPLab/internal/pipeline"
	"SSPLab/internal/repo"
	"SSPLab/internal/report"
	"SSPLab/internal/stats"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (defaults to SSP_CONFIG or ./config.json)")
	persist := flag.Bool("db", false, "persist the run to the study database")
	pdf := flag.Bool("pdf", true, "write the PDF group report")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("SSP_CONFIG")
	}
	if path == "" {
		path = config.DefaultFilename
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Cannot load configuration: %v", err)
	}

	run, err := pipeline.Run(cfg.DataDir(), cfg.Groups, cfg.Analysis)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	if len(run.Records) == 0 {
		log.Fatal("No data processed. Check your data folder.")
	}

	groups := stats.Compute(run.Records)
	printStats(groups)

	resultsDir := cfg.ResultsDir()
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		log.Fatalf("Cannot create results folder: %v", err)
	}

	detailPath := filepath.Join(resultsDir, export.DetailedLogName)
	if err := export.WriteDetailedCSV(detailPath, run.Records); err != nil {
		log.Fatalf("Cannot write %s: %v", detailPath, err)
	}
	log.Printf("Saved: %s", detailPath)

	statsPath := filepath.Join(resultsDir, export.GroupStatsName)
	if err := export.WriteStatsCSV(statsPath, groups); err != nil {
		log.Fatalf("Cannot write %s: %v", statsPath, err)
	}
	log.Printf("Saved: %s", statsPath)

	bookPath := filepath.Join(resultsDir, export.WorkbookName)
	if err := export.WriteWorkbook(bookPath, run.Records, groups); err != nil {
		log.Fatalf("Cannot write %s: %v", bookPath, err)
	}
	log.Printf("Saved: %s", bookPath)

	if *pdf {
		reportPath := filepath.Join(resultsDir, "Group_Report.pdf")
		f, err := os.Create(reportPath)
		if err != nil {
			log.Fatalf("Cannot create %s: %v", reportPath, err)
		}
		meta := report.Meta{
			Study:    "SSP tissue-repair biomechanics",
			Title:    "Group Statistics Report",
			Samples:  len(run.Records),
			Failures: len(run.Failures),
		}
		if err := report.Build(f, meta, groups); err != nil {
			f.Close()
			log.Fatalf("Cannot write %s: %v", reportPath, err)
		}
		f.Close()
		log.Printf("Saved: %s", reportPath)
	}

	if *persist {
		db := auth.InitDB()
		defer db.Close()

		studyRepo := repo.NewPostgresDB(db)
		ctx := context.Background()
		if err := studyRepo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Schema error: %v", err)
		}
		if err := studyRepo.SaveRun(ctx, run.Records); err != nil {
			log.Fatalf("Cannot persist run: %v", err)
		}
		log.Printf("Persisted %d records to the study database", len(run.Records))
	}

	log.Printf("Analysis complete: %d processed, %d skipped", len(run.Records), len(run.Failures))
}

func printStats(groups []stats.GroupStat) {
	fmt.Printf("%-12s %4s %12s %12s %12s %12s %12s %12s  %s\n",
		"Subgroup", "n", "Load mean", "Load std", "Stiff mean", "Stiff std", "Energy mean", "Energy std", "Samples")
	for _, g := range groups {
		fmt.Printf("%-12s %4d %12s %12s %12s %12s %12s %12s  %s\n",
			g.Subgroup, g.Count,
			col(float64(g.MaxLoadMean)), col(float64(g.MaxLoadStd)),
			col(float64(g.StiffnessMean)), col(float64(g.StiffnessStd)),
			col(float64(g.EnergyMean)), col(float64(g.EnergyStd)),
			g.SampleList)
	}
}

func col(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
