package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kashishkap00r/company-chatter/resolve"
)

// WriteWorkbook writes the resolution report as an XLSX workbook with
// one sheet per report section, for curators reviewing merges and
// quarantines outside the JSON tooling.
func WriteWorkbook(path string, r *resolve.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeCountsSheet(f, r); err != nil {
		return err
	}
	if err := writeQuarantinedSheet(f, r.QuarantinedCompanies); err != nil {
		return err
	}
	if err := writeMergedGroupsSheet(f, r.MergedGroups); err != nil {
		return err
	}
	if err := writeMarketConflictsSheet(f, r.MarketConflicts); err != nil {
		return err
	}
	if err := writeCrossBucketSheet(f, r.CrossBucketMerges); err != nil {
		return err
	}

	// Drop the default sheet created by excelize.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func writeCountsSheet(f *excelize.File, r *resolve.Report) error {
	rows := [][]any{
		{"generated_at", r.GeneratedAt},
		{"run_id", r.RunID},
		{"input_companies", r.Counts.InputCompanies},
		{"canonical_companies", r.Counts.CanonicalCompanies},
		{"quarantined_companies", r.Counts.QuarantinedCompanies},
		{"merged_groups", r.Counts.MergedGroups},
		{"dropped_quote_rows", r.Counts.DroppedQuoteRows},
		{"dropped_mention_rows", r.Counts.DroppedMentionRows},
		{"input_quotes", r.Counts.InputQuotes},
		{"output_quotes", r.Counts.OutputQuotes},
		{"input_mentions", r.Counts.InputMentions},
		{"output_mentions", r.Counts.OutputMentions},
		{"market_conflicts", r.Counts.MarketConflicts},
		{"cross_bucket_merges", r.Counts.CrossBucketMerges},
	}
	return writeSheet(f, "Counts", []any{"metric", "value"}, rows)
}

func writeQuarantinedSheet(f *excelize.File, quarantined []resolve.QuarantinedCompany) error {
	rows := make([][]any, 0, len(quarantined))
	for _, q := range quarantined {
		rows = append(rows, []any{q.ID, q.Name, q.Reason, q.MarketKey, q.QuoteCount, q.MentionCount})
	}
	return writeSheet(f, "Quarantined",
		[]any{"id", "name", "reason", "market_key", "quote_count", "mention_count"}, rows)
}

func writeMergedGroupsSheet(f *excelize.File, groups []resolve.MergedGroup) error {
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []any{
			g.CanonicalID, g.CanonicalName,
			len(g.Members), memberList(g.Members),
			strings.Join(g.MarketKeys, ", "),
		})
	}
	return writeSheet(f, "Merged Groups",
		[]any{"canonical_id", "canonical_name", "member_count", "members", "market_keys"}, rows)
}

func writeMarketConflictsSheet(f *excelize.File, conflicts []resolve.MarketConflict) error {
	var rows [][]any
	for _, conflict := range conflicts {
		for _, component := range conflict.Components {
			rows = append(rows, []any{
				conflict.MarketKey, component.Root, component.IsPrimary,
				component.QuoteCount, component.MentionCount,
				memberList(component.Members),
			})
		}
	}
	return writeSheet(f, "Market Conflicts",
		[]any{"market_key", "root", "is_primary", "quote_count", "mention_count", "members"}, rows)
}

func writeCrossBucketSheet(f *excelize.File, merges []resolve.CrossBucketMerge) error {
	rows := make([][]any, 0, len(merges))
	for _, m := range merges {
		rows = append(rows, []any{
			m.LeftRoot, m.LeftAnchor.Name,
			m.RightRoot, m.RightAnchor.Name,
			strings.Join(m.LeftMarketKeys, ", "),
			strings.Join(m.RightMarketKeys, ", "),
		})
	}
	return writeSheet(f, "Cross-Bucket Merges",
		[]any{"left_root", "left_anchor", "right_root", "right_anchor", "left_market_keys", "right_market_keys"}, rows)
}

func writeSheet(f *excelize.File, name string, header []any, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	if err := setRow(f, name, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func memberList(members []resolve.Member) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return strings.Join(names, "; ")
}
