// Package report serializes resolution output: the JSON resolution
// report and story mention rows, plus an analyst-facing XLSX workbook.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kashishkap00r/company-chatter/brief"
	"github.com/kashishkap00r/company-chatter/resolve"
)

// Stamp fills the report's run metadata. The clock is injectable so
// emission stays reproducible under test.
func Stamp(r *resolve.Report, now func() time.Time, runID string) {
	if now == nil {
		now = time.Now
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	r.GeneratedAt = now().UTC().Truncate(time.Second).Format(time.RFC3339)
	r.RunID = runID
}

// WriteJSON writes the resolution report to path as indented JSON.
func WriteJSON(path string, r *resolve.Report) error {
	return writeJSONFile(path, r)
}

// WriteValue writes any payload to path as indented JSON.
func WriteValue(path string, payload any) error {
	return writeJSONFile(path, payload)
}

// WriteStoryMentions writes story mention rows to path as indented JSON.
func WriteStoryMentions(path string, mentions []brief.StoryMention) error {
	if mentions == nil {
		mentions = []brief.StoryMention{}
	}
	return writeJSONFile(path, mentions)
}

func writeJSONFile(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
