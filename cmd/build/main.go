// Command build runs the company-chatter batch pipeline: entity
// resolution over the extracted corpus followed by Daily Brief story
// matching.
//
// Usage:
//
//	go run ./cmd/build --data-dir ./data
//
// With persistence and a curator workbook:
//
//	go run ./cmd/build --data-dir ./data \
//	  --db ./data/chatter.db \
//	  --xlsx ./data/entity_resolution_report.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	chatter "github.com/kashishkap00r/company-chatter"
)

func main() {
	var (
		dataDir  = flag.String("data-dir", "data", "Directory with input JSON files; receives JSON outputs")
		dbPath   = flag.String("db", "", "Optional SQLite database path for the resolved graph")
		xlsxPath = flag.String("xlsx", "", "Optional XLSX workbook path for the resolution report")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pipeline, err := chatter.New(chatter.Config{
		DataDir:      *dataDir,
		DBPath:       *dbPath,
		WorkbookPath: *xlsxPath,
	})
	if err != nil {
		log.Fatalf("configuring pipeline: %v", err)
	}

	result, err := pipeline.Run(context.Background())
	if err != nil {
		log.Fatalf("running pipeline: %v", err)
	}

	matchedStories := make(map[string]bool)
	for _, row := range result.StoryMentions {
		matchedStories[row.StoryID] = true
	}

	counts := result.Resolution.Report.Counts
	fmt.Printf("Canonical companies: %d (from %d raw, %d quarantined)\n",
		counts.CanonicalCompanies, counts.InputCompanies, counts.QuarantinedCompanies)
	fmt.Printf("Daily Brief matched stories: %d\n", len(matchedStories))
	fmt.Printf("Daily Brief total story mentions: %d\n", len(result.StoryMentions))
	fmt.Printf("Daily Brief companies with matches: %d\n", len(result.MentionsByCompany))
	fmt.Println("Build complete")
}
