//go:build cgo

package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/kashishkap00r/company-chatter/brief"
	"github.com/kashishkap00r/company-chatter/resolve"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCompanies() []resolve.Company {
	return []resolve.Company{
		{
			ID: "hdfc-bank", Name: "HDFC Bank",
			URL:                "https://zerodha.com/markets/stocks/NSE/HDFCBANK/",
			MarketKey:          "NSE:HDFCBANK",
			CanonicalCompanyID: "hdfc-bank",
			IdentitySource:     resolve.SourceMarketKeyName,
			IdentityConfidence: resolve.ConfidenceHigh,
		},
		{
			ID: "itc", Name: "ITC",
			CanonicalCompanyID: "itc",
			IdentitySource:     resolve.SourceSingle,
			IdentityConfidence: resolve.ConfidenceMedium,
		},
	}
}

func quoteRow(id, companyID, editionID, text string) resolve.Row {
	row := resolve.Row{}
	for key, value := range map[string]string{
		"id": id, "company_id": companyID, "edition_id": editionID, "text": text,
	} {
		encoded, _ := json.Marshal(value)
		row[key] = json.RawMessage(encoded)
	}
	return row
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceCompanies(ctx, sampleCompanies()); err != nil {
		t.Fatalf("ReplaceCompanies: %v", err)
	}

	quotes := []resolve.Row{
		quoteRow("q1", "hdfc-bank", "ed-1", "We grew deposits"),
		quoteRow("q2", "itc", "ed-2", "FMCG demand held up"),
	}
	if err := s.ReplaceQuotes(ctx, quotes); err != nil {
		t.Fatalf("ReplaceQuotes: %v", err)
	}

	mentions := []resolve.Row{quoteRow("m1", "itc", "ed-1", "mentioned in passing")}
	if err := s.ReplaceMentions(ctx, mentions); err != nil {
		t.Fatalf("ReplaceMentions: %v", err)
	}

	storyMentions := []brief.StoryMention{
		{CompanyID: "hdfc-bank", StoryID: "s1", StoryTitle: "Banks", StoryURL: "https://example.test/p/1", StoryDate: "2025-06-01", MentionCount: 2},
		{CompanyID: "hdfc-bank", StoryID: "s2", StoryTitle: "Credit", StoryURL: "https://example.test/p/2", StoryDate: "2025-06-03", MentionCount: 2},
	}
	if err := s.ReplaceStoryMentions(ctx, storyMentions); err != nil {
		t.Fatalf("ReplaceStoryMentions: %v", err)
	}

	companies, err := s.ListCompanies(ctx)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(companies) != 2 || companies[0].ID != "hdfc-bank" || companies[1].ID != "itc" {
		t.Errorf("companies = %v", companies)
	}
	if companies[0].MarketKey != "NSE:HDFCBANK" {
		t.Errorf("market key = %q", companies[0].MarketKey)
	}

	rows, err := s.StoryMentionsByCompany(ctx, "hdfc-bank")
	if err != nil {
		t.Fatalf("StoryMentionsByCompany: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("story mentions = %d, want 2", len(rows))
	}
	// Equal mention counts: newer story first.
	if rows[0].StoryID != "s2" || rows[1].StoryID != "s1" {
		t.Errorf("story order = %s, %s", rows[0].StoryID, rows[1].StoryID)
	}

	coverage, err := s.CompanyCoverage(ctx)
	if err != nil {
		t.Fatalf("CompanyCoverage: %v", err)
	}
	byID := make(map[string]CoverageCounts)
	for _, c := range coverage {
		byID[c.CompanyID] = c
	}
	if byID["hdfc-bank"].QuoteCount != 1 || byID["hdfc-bank"].StoryMentionCount != 2 {
		t.Errorf("hdfc coverage = %+v", byID["hdfc-bank"])
	}
	if byID["itc"].QuoteCount != 1 || byID["itc"].StoryMentionCount != 0 {
		t.Errorf("itc coverage = %+v", byID["itc"])
	}
}

func TestStoreReplaceIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.ReplaceCompanies(ctx, sampleCompanies()); err != nil {
			t.Fatalf("ReplaceCompanies round %d: %v", i, err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Companies != 2 {
		t.Errorf("companies = %d, want 2 after double replace", stats.Companies)
	}
}

func TestStoreSaveResolutionRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	report := &resolve.Report{
		GeneratedAt: "2025-06-02T10:30:00Z",
		RunID:       "run-1",
		Counts:      resolve.Counts{InputCompanies: 2, CanonicalCompanies: 2},
	}
	if err := s.SaveResolutionRun(ctx, report); err != nil {
		t.Fatalf("SaveResolutionRun: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ResolutionRuns != 1 {
		t.Errorf("resolution runs = %d, want 1", stats.ResolutionRuns)
	}

	var counts string
	if err := s.DB().QueryRowContext(ctx,
		"SELECT counts FROM resolution_runs WHERE run_id = ?", "run-1").Scan(&counts); err != nil {
		t.Fatalf("reading run: %v", err)
	}
	var decoded resolve.Counts
	if err := json.Unmarshal([]byte(counts), &decoded); err != nil {
		t.Fatalf("decoding counts: %v", err)
	}
	if decoded.InputCompanies != 2 {
		t.Errorf("persisted counts = %+v", decoded)
	}
}
