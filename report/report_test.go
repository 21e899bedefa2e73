package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kashishkap00r/company-chatter/brief"
	"github.com/kashishkap00r/company-chatter/resolve"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	}
}

func sampleReport() *resolve.Report {
	return &resolve.Report{
		Counts: resolve.Counts{
			InputCompanies:     3,
			CanonicalCompanies: 2,
			MergedGroups:       1,
		},
		QuarantinedCompanies: []resolve.QuarantinedCompany{
			{ID: "x", Name: "We expect growth", Reason: resolve.ReasonNonCompanyLabel},
		},
		MergedGroups: []resolve.MergedGroup{
			{
				CanonicalID:   "b",
				CanonicalName: "Acme Industries",
				Members: []resolve.Member{
					{ID: "a", Name: "Acme Industries Limited"},
					{ID: "b", Name: "Acme Industries"},
				},
				MarketKeys: []string{},
			},
		},
		MarketConflicts:   []resolve.MarketConflict{},
		CrossBucketMerges: []resolve.CrossBucketMerge{},
	}
}

func TestStamp(t *testing.T) {
	r := sampleReport()
	Stamp(r, fixedClock(), "run-1")

	if r.GeneratedAt != "2025-06-02T10:30:00Z" {
		t.Errorf("generated_at = %q", r.GeneratedAt)
	}
	if r.RunID != "run-1" {
		t.Errorf("run_id = %q", r.RunID)
	}

	fresh := sampleReport()
	Stamp(fresh, fixedClock(), "")
	if fresh.RunID == "" {
		t.Error("empty run id must be replaced with a generated one")
	}
}

func TestWriteJSONIsByteStable(t *testing.T) {
	dir := t.TempDir()

	write := func(name string) []byte {
		r := sampleReport()
		Stamp(r, fixedClock(), "run-1")
		path := filepath.Join(dir, name)
		if err := WriteJSON(path, r); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		return data
	}

	first := write("one.json")
	second := write("two.json")
	if !bytes.Equal(first, second) {
		t.Error("report serialization must be byte-stable for a fixed clock and run id")
	}
	if !bytes.Contains(first, []byte(`"generated_at": "2025-06-02T10:30:00Z"`)) {
		t.Error("report missing generated_at field")
	}
}

func TestWriteStoryMentionsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mentions.json")
	if err := WriteStoryMentions(path, nil); err != nil {
		t.Fatalf("WriteStoryMentions: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(bytes.TrimSpace(data)) != "[]" {
		t.Errorf("empty mentions must serialize as [], got %s", data)
	}
}

func TestWriteStoryMentions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mentions.json")
	mentions := []brief.StoryMention{
		{CompanyID: "itc", StoryID: "s1", StoryTitle: "FMCG", StoryURL: "https://example.test/p", MentionCount: 2},
	}
	if err := WriteStoryMentions(path, mentions); err != nil {
		t.Fatalf("WriteStoryMentions: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Contains(data, []byte(`"company_id": "itc"`)) {
		t.Errorf("serialized mentions missing company_id: %s", data)
	}
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	r := sampleReport()
	Stamp(r, fixedClock(), "run-1")

	if err := WriteWorkbook(path, r); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	wantSheets := []string{"Counts", "Quarantined", "Merged Groups", "Market Conflicts", "Cross-Bucket Merges"}
	got := f.GetSheetList()
	for _, want := range wantSheets {
		found := false
		for _, sheet := range got {
			if sheet == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("workbook missing sheet %q (have %v)", want, got)
		}
	}

	rows, err := f.GetRows("Quarantined")
	if err != nil {
		t.Fatalf("reading Quarantined sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Quarantined rows = %d, want header + 1", len(rows))
	}
	if rows[1][0] != "x" || rows[1][2] != resolve.ReasonNonCompanyLabel {
		t.Errorf("quarantined row = %v", rows[1])
	}
}
