package chatter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kashishkap00r/company-chatter/resolve"
)

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeDataFile(t, dir, CompaniesFile, `[
		{"id": "a", "name": "Acme Industries Limited"},
		{"id": "b", "name": "Acme Industries"},
		{"id": "sbi", "name": "SBI", "url": "https://zerodha.com/markets/stocks/NSE/SBIN/"},
		{"id": "sb", "name": "State Bank of India"},
		{"id": "x", "name": "We expect strong growth in the coming quarters for our retail segment"}
	]`)
	writeDataFile(t, dir, QuotesFile, `[
		{"id": "q1", "company_id": "a", "edition_id": "ed-1", "text": "Order book is strong"},
		{"id": "q2", "company_id": "sbi", "edition_id": "ed-1", "text": "Deposit growth steady"},
		{"id": "q3", "company_id": "x", "edition_id": "ed-2", "text": "Stray commentary"}
	]`)
	writeDataFile(t, dir, MentionsFile, `[
		{"id": "m1", "company_id": "b", "edition_id": "ed-2"}
	]`)
	writeDataFile(t, dir, EditionsFile, `[
		{"id": "ed-1", "title": "Edition One", "date": "2025-05-26"},
		{"id": "ed-2", "title": "Edition Two", "date": "2025-06-02"}
	]`)
	writeDataFile(t, dir, BriefPostsFile, `[
		{
			"url": "https://thedailybrief.zerodha.com/p/banks",
			"title": "Banking brief",
			"date": "2025-06-01",
			"stories": [
				{"title": "PSU banks rally", "position": 1, "source": "Daily Brief",
				 "text": "State Bank of India and SBI both led the rally."}
			]
		}
	]`)
	return dir
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	}
}

func TestPipelineRun(t *testing.T) {
	dir := seedDataDir(t)

	pipeline, err := New(Config{DataDir: dir, Now: fixedClock(), RunID: "run-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	resolution := result.Resolution
	if len(resolution.Companies) != 2 {
		t.Fatalf("canonical companies = %d, want 2 (acme, sbi)", len(resolution.Companies))
	}
	if resolution.Quarantine["x"] != resolve.ReasonNonCompanyLabel {
		t.Errorf("quarantine = %v", resolution.Quarantine)
	}

	// The SBI story counts both surface forms as one company.
	if len(result.StoryMentions) != 1 {
		t.Fatalf("story mentions = %v, want 1 row", result.StoryMentions)
	}
	mention := result.StoryMentions[0]
	if mention.MentionCount != 2 {
		t.Errorf("mention count = %d, want 2 (both alias forms)", mention.MentionCount)
	}
	if mention.CompanyID != resolution.AliasMap["sbi"] {
		t.Errorf("mention company = %s, want canonical sbi id", mention.CompanyID)
	}

	if result.UpdatedISO != "2025-06-02" {
		t.Errorf("updated iso = %q, want 2025-06-02", result.UpdatedISO)
	}
	if result.UpdatedRelative != "1 day ago" {
		t.Errorf("updated relative = %q", result.UpdatedRelative)
	}

	// Coverage rollup: both canonical companies have coverage.
	if len(result.CompanyRecords) != 2 {
		t.Errorf("company records = %v", result.CompanyRecords)
	}

	// Outputs are written into the data dir.
	reportData, err := os.ReadFile(filepath.Join(dir, ResolutionReportFile))
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var persisted resolve.Report
	if err := json.Unmarshal(reportData, &persisted); err != nil {
		t.Fatalf("parsing report: %v", err)
	}
	if persisted.RunID != "run-test" || persisted.Counts.CanonicalCompanies != 2 {
		t.Errorf("persisted report = %+v", persisted.Counts)
	}
	if persisted.Counts.DroppedQuoteRows != 1 {
		t.Errorf("dropped quote rows = %d, want 1 (quarantined source)", persisted.Counts.DroppedQuoteRows)
	}

	mentionsData, err := os.ReadFile(filepath.Join(dir, StoryMentionsFile))
	if err != nil {
		t.Fatalf("reading story mentions: %v", err)
	}
	var persistedMentions []map[string]any
	if err := json.Unmarshal(mentionsData, &persistedMentions); err != nil {
		t.Fatalf("parsing story mentions: %v", err)
	}
	if len(persistedMentions) != 1 {
		t.Errorf("persisted story mentions = %v", persistedMentions)
	}
}

func TestPipelineRunEmptyDataDir(t *testing.T) {
	dir := t.TempDir()

	pipeline, err := New(Config{DataDir: dir, Now: fixedClock()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Resolution.Companies) != 0 || len(result.StoryMentions) != 0 {
		t.Errorf("empty inputs must produce empty outputs: %+v", result)
	}
	if result.Resolution.Report.Counts != (resolve.Counts{}) {
		t.Errorf("counts = %+v, want zeroes", result.Resolution.Report.Counts)
	}
	if result.UpdatedISO != "2025-06-03" || result.UpdatedRelative != "today" {
		t.Errorf("update metadata = %q/%q", result.UpdatedISO, result.UpdatedRelative)
	}
}

func TestNewConfigValidation(t *testing.T) {
	if _, err := New(Config{}); err != ErrNoDataDir {
		t.Errorf("err = %v, want ErrNoDataDir", err)
	}
	if _, err := New(Config{DataDir: filepath.Join(t.TempDir(), "absent")}); err != ErrDataDirMissing {
		t.Errorf("err = %v, want ErrDataDirMissing", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	today := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	iso, relative := updateMetadata(nil, nil, today)
	if iso != "2025-06-10" || relative != "today" {
		t.Errorf("no content dates: %q/%q", iso, relative)
	}

	editions := []Edition{{ID: "ed-1", Date: "2025-06-03"}}
	iso, relative = updateMetadata(editions, nil, today)
	if iso != "2025-06-03" || relative != "7 days ago" {
		t.Errorf("edition date: %q/%q", iso, relative)
	}
}
