// Command validate re-runs entity resolution and checks the output
// against a curated baseline, failing fast on regressions.
//
// Usage:
//
//	go run ./cmd/validate --data-dir ./data \
//	  --baseline ./data/entity_resolution_baseline.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	chatter "github.com/kashishkap00r/company-chatter"
	"github.com/kashishkap00r/company-chatter/resolve"
	"github.com/kashishkap00r/company-chatter/rules"
	"github.com/kashishkap00r/company-chatter/validate"
)

func main() {
	var (
		dataDir      = flag.String("data-dir", "data", "Directory with input JSON files")
		baselinePath = flag.String("baseline", "", "Path to the baseline JSON (default: <data-dir>/entity_resolution_baseline.json)")
		verbose      = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *baselinePath == "" {
		*baselinePath = filepath.Join(*dataDir, "entity_resolution_baseline.json")
	}

	baseline, err := validate.LoadBaseline(*baselinePath)
	if err != nil {
		log.Fatalf("loading baseline: %v", err)
	}

	companies := readJSON[[]resolve.RawCompany](filepath.Join(*dataDir, chatter.CompaniesFile))
	quotes := readJSON[[]resolve.Row](filepath.Join(*dataDir, chatter.QuotesFile))
	mentions := readJSON[[]resolve.Row](filepath.Join(*dataDir, chatter.MentionsFile))

	ruleSet := resolve.Rules{
		AliasPairs: rules.LoadPairRules(filepath.Join(*dataDir, chatter.AliasRulesFile), "aliases"),
		BlockPairs: rules.LoadPairRules(filepath.Join(*dataDir, chatter.BlockRulesFile), "blocks"),
		NonCompany: rules.LoadNonCompanyRules(filepath.Join(*dataDir, chatter.NonCompanyRulesFile)),
	}
	result := resolve.Resolve(companies, quotes, mentions, ruleSet)

	rawNames := make(map[string]bool, len(companies))
	for _, company := range companies {
		if company.Name != "" {
			rawNames[company.Name] = true
		}
	}

	issues := validate.Run(validate.Input{
		Baseline:   baseline,
		Result:     result,
		RawNames:   rawNames,
		NonCompany: ruleSet.NonCompany,
	})

	if len(issues) > 0 {
		fmt.Println("[FAIL] Entity-resolution validation failed:")
		for _, issue := range issues {
			fmt.Printf(" - %s\n", issue)
		}
		os.Exit(1)
	}

	counts := result.Report.Counts
	fmt.Println("[PASS] Entity-resolution validation succeeded.")
	fmt.Printf(" - canonical_companies: %d\n", counts.CanonicalCompanies)
	fmt.Printf(" - market_conflicts: %d\n", counts.MarketConflicts)
	fmt.Printf(" - quarantined_companies: %d\n", counts.QuarantinedCompanies)
	fmt.Printf(" - dropped_quote_rows: %d\n", counts.DroppedQuoteRows)
}

// readJSON loads a JSON file, treating a missing file as empty input.
func readJSON[T any](path string) T {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		log.Fatalf("parsing %s: %v", path, err)
	}
	return out
}
