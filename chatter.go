// Package chatter assembles the company-chatter batch pipeline: it
// loads the extracted corpus and curated rule files from a data
// directory, resolves raw companies into a canonical graph, matches
// canonical companies against Daily Brief stories, and emits the
// resolution report and story mention rows.
package chatter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kashishkap00r/company-chatter/brief"
	"github.com/kashishkap00r/company-chatter/report"
	"github.com/kashishkap00r/company-chatter/resolve"
	"github.com/kashishkap00r/company-chatter/rules"
	"github.com/kashishkap00r/company-chatter/store"
)

// Input and output file names inside the data directory.
const (
	CompaniesFile       = "companies.json"
	QuotesFile          = "quotes.json"
	MentionsFile        = "company_mentions.json"
	EditionsFile        = "editions.json"
	AliasRulesFile      = "entity_alias_rules.json"
	BlockRulesFile      = "entity_block_rules.json"
	NonCompanyRulesFile = "non_company_rules.json"
	BriefRulesFile      = "dailybrief_alias_rules.json"
	BriefPostsFile      = "dailybrief_posts.json"

	ResolvedCompaniesFile = "companies_resolved.json"
	ResolvedQuotesFile    = "quotes_resolved.json"
	ResolvedMentionsFile  = "company_mentions_resolved.json"
	ResolutionReportFile  = "entity_resolution_report.json"
	StoryMentionsFile     = "dailybrief_story_mentions.json"
)

// Config holds all configuration for the pipeline.
type Config struct {
	// DataDir holds the input JSON files and receives the JSON outputs.
	DataDir string

	// DBPath, when set, persists the resolved graph to SQLite.
	DBPath string

	// WorkbookPath, when set, writes the resolution report as an XLSX
	// workbook for curator review.
	WorkbookPath string

	// Now overrides the clock for report stamping. Defaults to time.Now.
	Now func() time.Time

	// RunID overrides the generated run id. Defaults to a fresh UUID.
	RunID string
}

// Pipeline is the batch transform from extracted corpus to canonical
// company graph.
type Pipeline struct {
	cfg Config
}

// New returns a Pipeline for the given configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.DataDir == "" {
		return nil, ErrNoDataDir
	}
	info, err := os.Stat(cfg.DataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDataDirMissing
		}
		return nil, fmt.Errorf("checking data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, ErrDataDirMissing
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg}, nil
}

// Edition is a long-form publication edition referenced by quote and
// mention rows.
type Edition struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// CompanyRecord is the per-company coverage rollup used downstream.
type CompanyRecord struct {
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	QuoteCount        int    `json:"quote_count"`
	StoryMentionCount int    `json:"story_mentions_count"`
}

// Result is the complete output of a pipeline run.
type Result struct {
	Resolution        *resolve.Result
	StoryMentions     []brief.StoryMention
	MentionsByCompany map[string][]brief.StoryMention
	CompanyRecords    []CompanyRecord
	UpdatedISO        string
	UpdatedRelative   string
}

// Run executes the full batch transform and writes the JSON outputs
// into the data directory.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	dataDir := p.cfg.DataDir

	var companies []resolve.RawCompany
	readOptionalJSON(filepath.Join(dataDir, CompaniesFile), &companies)
	var quotes []resolve.Row
	readOptionalJSON(filepath.Join(dataDir, QuotesFile), &quotes)
	var mentions []resolve.Row
	readOptionalJSON(filepath.Join(dataDir, MentionsFile), &mentions)
	var editions []Edition
	readOptionalJSON(filepath.Join(dataDir, EditionsFile), &editions)
	var posts []brief.Post
	readOptionalJSON(filepath.Join(dataDir, BriefPostsFile), &posts)

	ruleSet := resolve.Rules{
		AliasPairs: rules.LoadPairRules(filepath.Join(dataDir, AliasRulesFile), "aliases"),
		BlockPairs: rules.LoadPairRules(filepath.Join(dataDir, BlockRulesFile), "blocks"),
		NonCompany: rules.LoadNonCompanyRules(filepath.Join(dataDir, NonCompanyRulesFile)),
	}
	briefRules := rules.LoadBriefAliasRules(filepath.Join(dataDir, BriefRulesFile))

	resolution := resolve.Resolve(companies, quotes, mentions, ruleSet)
	report.Stamp(resolution.Report, p.cfg.Now, p.cfg.RunID)

	storyMentions := brief.MatchStories(
		resolution.Companies, resolution.Report.MergedGroups, briefRules, posts)
	mentionsByCompany := brief.GroupByCompany(storyMentions)

	result := &Result{
		Resolution:        resolution,
		StoryMentions:     storyMentions,
		MentionsByCompany: mentionsByCompany,
		CompanyRecords:    buildCompanyRecords(resolution, mentionsByCompany),
	}
	result.UpdatedISO, result.UpdatedRelative = updateMetadata(editions, posts, p.cfg.Now().UTC())

	if err := report.WriteJSON(filepath.Join(dataDir, ResolutionReportFile), resolution.Report); err != nil {
		return nil, err
	}
	if err := report.WriteValue(filepath.Join(dataDir, ResolvedCompaniesFile), resolution.Companies); err != nil {
		return nil, err
	}
	if err := report.WriteValue(filepath.Join(dataDir, ResolvedQuotesFile), resolution.Quotes); err != nil {
		return nil, err
	}
	if err := report.WriteValue(filepath.Join(dataDir, ResolvedMentionsFile), resolution.Mentions); err != nil {
		return nil, err
	}
	if err := report.WriteStoryMentions(filepath.Join(dataDir, StoryMentionsFile), storyMentions); err != nil {
		return nil, err
	}
	if p.cfg.WorkbookPath != "" {
		if err := report.WriteWorkbook(p.cfg.WorkbookPath, resolution.Report); err != nil {
			return nil, err
		}
	}
	if p.cfg.DBPath != "" {
		if err := p.persist(ctx, result); err != nil {
			return nil, err
		}
	}

	slog.Info("chatter: build complete",
		"canonical_companies", len(resolution.Companies),
		"story_mentions", len(storyMentions),
		"companies_with_stories", len(mentionsByCompany),
		"updated", result.UpdatedISO)
	return result, nil
}

// persist writes the resolved graph to the configured SQLite database.
func (p *Pipeline) persist(ctx context.Context, result *Result) error {
	s, err := store.New(p.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	if err := s.ReplaceCompanies(ctx, result.Resolution.Companies); err != nil {
		return fmt.Errorf("persisting companies: %w", err)
	}
	if err := s.ReplaceQuotes(ctx, result.Resolution.Quotes); err != nil {
		return fmt.Errorf("persisting quotes: %w", err)
	}
	if err := s.ReplaceMentions(ctx, result.Resolution.Mentions); err != nil {
		return fmt.Errorf("persisting mentions: %w", err)
	}
	if err := s.ReplaceStoryMentions(ctx, result.StoryMentions); err != nil {
		return fmt.Errorf("persisting story mentions: %w", err)
	}
	if err := s.SaveResolutionRun(ctx, result.Resolution.Report); err != nil {
		return fmt.Errorf("persisting resolution run: %w", err)
	}
	return nil
}

// buildCompanyRecords computes the coverage rollup, omitting companies
// with no quotes, no story mentions, and no edition coverage.
func buildCompanyRecords(resolution *resolve.Result, mentionsByCompany map[string][]brief.StoryMention) []CompanyRecord {
	quoteCounts := make(map[string]int)
	editionsByCompany := make(map[string]map[string]bool)
	for _, q := range resolution.Quotes {
		companyID := q.CompanyID()
		quoteCounts[companyID]++
		recordEdition(editionsByCompany, companyID, q.EditionID())
	}
	for _, m := range resolution.Mentions {
		recordEdition(editionsByCompany, m.CompanyID(), m.EditionID())
	}

	companies := append([]resolve.Company(nil), resolution.Companies...)
	sort.Slice(companies, func(i, j int) bool {
		return strings.ToLower(companies[i].Name) < strings.ToLower(companies[j].Name)
	})

	records := []CompanyRecord{}
	for _, company := range companies {
		quoteCount := quoteCounts[company.ID]
		storyCount := len(mentionsByCompany[company.ID])
		if quoteCount == 0 && storyCount == 0 && len(editionsByCompany[company.ID]) == 0 {
			continue
		}
		records = append(records, CompanyRecord{
			Slug:              company.ID,
			Name:              company.Name,
			QuoteCount:        quoteCount,
			StoryMentionCount: storyCount,
		})
	}
	return records
}

func recordEdition(editionsByCompany map[string]map[string]bool, companyID, editionID string) {
	if companyID == "" || editionID == "" {
		return
	}
	if editionsByCompany[companyID] == nil {
		editionsByCompany[companyID] = make(map[string]bool)
	}
	editionsByCompany[companyID][editionID] = true
}

// updateMetadata returns the latest content date across editions and
// brief posts as an ISO date plus a relative label.
func updateMetadata(editions []Edition, posts []brief.Post, today time.Time) (string, string) {
	var latest time.Time
	consider := func(value string) {
		if parsed, ok := parseISODate(value); ok && parsed.After(latest) {
			latest = parsed
		}
	}
	for _, edition := range editions {
		consider(edition.Date)
	}
	for _, post := range posts {
		consider(post.Date)
	}

	todayDate := today.Truncate(24 * time.Hour)
	updated := todayDate
	if !latest.IsZero() {
		updated = latest
	}

	deltaDays := int(todayDate.Sub(updated).Hours() / 24)
	if deltaDays < 0 {
		deltaDays = 0
	}
	relative := fmt.Sprintf("%d days ago", deltaDays)
	switch deltaDays {
	case 0:
		relative = "today"
	case 1:
		relative = "1 day ago"
	}
	return updated.Format("2006-01-02"), relative
}

// parseISODate reads the date prefix of an ISO timestamp or date.
func parseISODate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) < 10 {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", value[:10])
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// readOptionalJSON decodes path into out, treating a missing file as
// empty input and logging (but tolerating) malformed content.
func readOptionalJSON(path string, out any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("chatter: unable to read input", "path", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("chatter: ignoring malformed input", "path", path, "error", err)
	}
}
