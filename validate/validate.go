// Package validate checks a resolution run against a curated baseline
// and fails fast on regressions: blocked pairs that merged, alias pairs
// that split, non-company labels surviving resolution, threshold
// breaches, and quote id leakage across canonical companies.
package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kashishkap00r/company-chatter/nameutil"
	"github.com/kashishkap00r/company-chatter/resolve"
	"github.com/kashishkap00r/company-chatter/rules"
)

// Baseline is the curated expectation file for a corpus.
type Baseline struct {
	Thresholds                    map[string]int        `json:"thresholds"`
	MustKeepBlockedPairsSeparate  [][]string            `json:"must_keep_blocked_pairs_separate"`
	MustKeepAliasPairsMerged      [][]string            `json:"must_keep_alias_pairs_merged"`
	MustExcludeCompanyNames       []string              `json:"must_exclude_company_names"`
	AllowedSuspiciousNullURLNames []string              `json:"allowed_suspicious_null_url_names"`
	CriticalCompanyExpectations   []CriticalExpectation `json:"critical_company_expectations"`
}

// CriticalExpectation pins minimum coverage for a must-have company.
type CriticalExpectation struct {
	CompanyName        string   `json:"company_name"`
	MinEditionCount    int      `json:"min_edition_count"`
	RequiredEditionIDs []string `json:"required_edition_ids"`
}

// LoadBaseline reads the baseline file. Unlike rule files, a missing or
// malformed baseline is an error: validation without expectations is
// meaningless.
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	var baseline Baseline
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, fmt.Errorf("parsing baseline: %w", err)
	}
	return &baseline, nil
}

// Input bundles everything a validation pass inspects.
type Input struct {
	Baseline   *Baseline
	Result     *resolve.Result
	RawNames   map[string]bool
	NonCompany *rules.NonCompanyRules
}

// Run returns the list of violations, empty when the run is healthy.
func Run(in Input) []string {
	var issues []string
	if in.Baseline == nil || in.Result == nil {
		return []string{"validate: baseline and result are required"}
	}

	issues = append(issues, checkThresholds(in.Baseline, in.Result.Report)...)
	issues = append(issues, checkPairExpectations(in)...)
	issues = append(issues, checkExcludedNames(in)...)
	issues = append(issues, checkSuspiciousLabels(in)...)
	issues = append(issues, checkQuoteLeakage(in.Result.Quotes)...)
	issues = append(issues, checkCriticalCompanies(in.Baseline, in.Result)...)
	return issues
}

var thresholdCountKeys = map[string]func(resolve.Counts) int{
	"max_market_conflicts":      func(c resolve.Counts) int { return c.MarketConflicts },
	"max_quarantined_companies": func(c resolve.Counts) int { return c.QuarantinedCompanies },
	"max_dropped_quote_rows":    func(c resolve.Counts) int { return c.DroppedQuoteRows },
	"max_dropped_mention_rows":  func(c resolve.Counts) int { return c.DroppedMentionRows },
}

func checkThresholds(baseline *Baseline, report *resolve.Report) []string {
	var issues []string
	keys := make([]string, 0, len(baseline.Thresholds))
	for key := range baseline.Thresholds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		counter, ok := thresholdCountKeys[key]
		if !ok {
			continue
		}
		limit := baseline.Thresholds[key]
		actual := counter(report.Counts)
		if actual > limit {
			issues = append(issues, fmt.Sprintf("%s regressed: %d > allowed %d", key, actual, limit))
		}
	}
	return issues
}

func checkPairExpectations(in Input) []string {
	var issues []string
	mergedNameSets := mergedNameSets(in.Result.Report.MergedGroups)

	for _, pair := range in.Baseline.MustKeepBlockedPairsSeparate {
		if len(pair) != 2 {
			continue
		}
		if in.RawNames != nil && (!in.RawNames[pair[0]] || !in.RawNames[pair[1]]) {
			continue
		}
		if pairIsMerged(pair[0], pair[1], mergedNameSets) {
			issues = append(issues, fmt.Sprintf("blocked pair merged unexpectedly: %s + %s", pair[0], pair[1]))
		}
	}

	for _, pair := range in.Baseline.MustKeepAliasPairsMerged {
		if len(pair) != 2 {
			continue
		}
		if in.RawNames != nil && (!in.RawNames[pair[0]] || !in.RawNames[pair[1]]) {
			continue
		}
		if !pairIsMerged(pair[0], pair[1], mergedNameSets) {
			issues = append(issues, fmt.Sprintf("alias pair not merged: %s + %s", pair[0], pair[1]))
		}
	}
	return issues
}

func checkExcludedNames(in Input) []string {
	excluded := make(map[string]bool, len(in.Baseline.MustExcludeCompanyNames))
	for _, name := range in.Baseline.MustExcludeCompanyNames {
		if key := nameutil.RawNameKey(name); key != "" {
			excluded[key] = true
		}
	}
	var issues []string
	for _, company := range in.Result.Companies {
		if excluded[nameutil.RawNameKey(company.Name)] {
			issues = append(issues, fmt.Sprintf("blocked non-company label visible in output: %s", company.Name))
		}
	}
	return issues
}

func checkSuspiciousLabels(in Input) []string {
	allowed := make(map[string]bool, len(in.Baseline.AllowedSuspiciousNullURLNames))
	for _, name := range in.Baseline.AllowedSuspiciousNullURLNames {
		if key := nameutil.RawNameKey(name); key != "" {
			allowed[key] = true
		}
	}

	var issues []string
	for _, company := range in.Result.Companies {
		if company.Name == "" {
			continue
		}
		nameKey := nameutil.RawNameKey(company.Name)
		if in.NonCompany.Matches(company.Name) && !allowed[nameKey] {
			issues = append(issues, fmt.Sprintf("non-company rule label present in canonical companies: %s", company.Name))
			continue
		}
		if company.URL == "" && resolve.LooksLikeTopicOrSentence(company.Name) && !allowed[nameKey] {
			issues = append(issues, fmt.Sprintf("suspicious null-url company label detected: %s", company.Name))
		}
	}
	return issues
}

// checkQuoteLeakage detects a quote id mapped onto multiple canonical
// companies, which would double-count coverage downstream.
func checkQuoteLeakage(quotes []resolve.Row) []string {
	companiesByQuote := make(map[string]map[string]bool)
	for _, quote := range quotes {
		quoteID := quote.ID()
		companyID := quote.CompanyID()
		if quoteID == "" || companyID == "" {
			continue
		}
		if companiesByQuote[quoteID] == nil {
			companiesByQuote[quoteID] = make(map[string]bool)
		}
		companiesByQuote[quoteID][companyID] = true
	}

	var leaked []string
	for quoteID, companyIDs := range companiesByQuote {
		if len(companyIDs) > 1 {
			leaked = append(leaked, quoteID)
		}
	}
	if len(leaked) == 0 {
		return nil
	}
	sort.Strings(leaked)
	if len(leaked) > 10 {
		leaked = leaked[:10]
	}
	return []string{fmt.Sprintf("quote leakage detected (same quote id mapped to multiple companies): %s",
		strings.Join(leaked, ", "))}
}

func checkCriticalCompanies(baseline *Baseline, result *resolve.Result) []string {
	editionsByCompany := make(map[string]map[string]bool)
	record := func(rows []resolve.Row) {
		for _, row := range rows {
			companyID := row.CompanyID()
			editionID := row.EditionID()
			if companyID == "" || editionID == "" {
				continue
			}
			if editionsByCompany[companyID] == nil {
				editionsByCompany[companyID] = make(map[string]bool)
			}
			editionsByCompany[companyID][editionID] = true
		}
	}
	record(result.Quotes)
	record(result.Mentions)

	idByName := make(map[string]string, len(result.Companies))
	for _, company := range result.Companies {
		if _, ok := idByName[company.Name]; !ok {
			idByName[company.Name] = company.ID
		}
	}

	var issues []string
	for _, expectation := range baseline.CriticalCompanyExpectations {
		if expectation.CompanyName == "" {
			continue
		}
		companyID, ok := idByName[expectation.CompanyName]
		if !ok {
			issues = append(issues, fmt.Sprintf("missing critical company in output: %s", expectation.CompanyName))
			continue
		}
		editions := editionsByCompany[companyID]
		if len(editions) < expectation.MinEditionCount {
			issues = append(issues, fmt.Sprintf("%s edition_count regressed: %d < required %d",
				expectation.CompanyName, len(editions), expectation.MinEditionCount))
		}
		for _, editionID := range expectation.RequiredEditionIDs {
			if editionID != "" && !editions[editionID] {
				issues = append(issues, fmt.Sprintf("%s missing required edition: %s",
					expectation.CompanyName, editionID))
			}
		}
	}
	return issues
}

func mergedNameSets(groups []resolve.MergedGroup) []map[string]bool {
	sets := make([]map[string]bool, 0, len(groups))
	for _, group := range groups {
		set := make(map[string]bool, len(group.Members))
		for _, member := range group.Members {
			if member.Name != "" {
				set[member.Name] = true
			}
		}
		sets = append(sets, set)
	}
	return sets
}

func pairIsMerged(left, right string, sets []map[string]bool) bool {
	for _, set := range sets {
		if set[left] && set[right] {
			return true
		}
	}
	return false
}
