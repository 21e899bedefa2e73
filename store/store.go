// Package store persists the resolved company graph to SQLite: the
// canonical companies, rewritten quote and mention rows, story
// mentions, and an audit trail of resolution runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kashishkap00r/company-chatter/brief"
	"github.com/kashishkap00r/company-chatter/resolve"
)

// Store wraps the SQLite database for all company-chatter persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ReplaceCompanies replaces the companies table with the given
// canonical list in a single transaction.
func (s *Store) ReplaceCompanies(ctx context.Context, companies []resolve.Company) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM companies"); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO companies (id, name, url, market_key, identity_source, identity_confidence)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range companies {
			if _, err := stmt.ExecContext(ctx,
				c.ID, c.Name, c.URL, c.MarketKey, c.IdentitySource, c.IdentityConfidence); err != nil {
				return fmt.Errorf("inserting company %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// ReplaceQuotes replaces all quote rows.
func (s *Store) ReplaceQuotes(ctx context.Context, quotes []resolve.Row) error {
	return s.replaceRows(ctx, "quotes", quotes)
}

// ReplaceMentions replaces all mention rows.
func (s *Store) ReplaceMentions(ctx context.Context, mentions []resolve.Row) error {
	return s.replaceRows(ctx, "mentions", mentions)
}

func (s *Store) replaceRows(ctx context.Context, table string, rows []resolve.Row) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO "+table+" (id, company_id, edition_id, payload) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, row := range rows {
			payload, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("encoding %s row %s: %w", table, row.ID(), err)
			}
			if _, err := stmt.ExecContext(ctx,
				row.ID(), row.CompanyID(), row.EditionID(), string(payload)); err != nil {
				return fmt.Errorf("inserting %s row %s: %w", table, row.ID(), err)
			}
		}
		return nil
	})
}

// ReplaceStoryMentions replaces all story mention rows.
func (s *Store) ReplaceStoryMentions(ctx context.Context, mentions []brief.StoryMention) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM story_mentions"); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO story_mentions (company_id, story_id, story_title, story_url,
				post_title, story_date, story_position, story_source, mention_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, m := range mentions {
			if _, err := stmt.ExecContext(ctx,
				m.CompanyID, m.StoryID, m.StoryTitle, m.StoryURL,
				m.PostTitle, m.StoryDate, m.StoryPosition, m.StorySource, m.MentionCount); err != nil {
				return fmt.Errorf("inserting story mention %s/%s: %w", m.CompanyID, m.StoryID, err)
			}
		}
		return nil
	})
}

// SaveResolutionRun appends the report to the run audit trail.
func (s *Store) SaveResolutionRun(ctx context.Context, r *resolve.Report) error {
	countsJSON, err := json.Marshal(r.Counts)
	if err != nil {
		return fmt.Errorf("encoding counts: %w", err)
	}
	reportJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO resolution_runs (run_id, generated_at, counts, report)
		VALUES (?, ?, ?, ?)
	`, r.RunID, r.GeneratedAt, string(countsJSON), string(reportJSON))
	return err
}

// ListCompanies returns all canonical companies ordered by id.
func (s *Store) ListCompanies(ctx context.Context) ([]resolve.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(url, ''), COALESCE(market_key, ''), identity_source, identity_confidence
		FROM companies ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []resolve.Company
	for rows.Next() {
		var c resolve.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.MarketKey,
			&c.IdentitySource, &c.IdentityConfidence); err != nil {
			return nil, err
		}
		c.CanonicalCompanyID = c.ID
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// StoryMentionsByCompany returns a company's story mentions ordered by
// mention count, then date, then title.
func (s *Store) StoryMentionsByCompany(ctx context.Context, companyID string) ([]brief.StoryMention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, story_id, story_title, story_url,
			COALESCE(post_title, ''), COALESCE(story_date, ''),
			COALESCE(story_position, 0), COALESCE(story_source, ''), mention_count
		FROM story_mentions
		WHERE company_id = ?
		ORDER BY mention_count DESC, story_date DESC, LOWER(story_title)
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []brief.StoryMention
	for rows.Next() {
		var m brief.StoryMention
		if err := rows.Scan(&m.CompanyID, &m.StoryID, &m.StoryTitle, &m.StoryURL,
			&m.PostTitle, &m.StoryDate, &m.StoryPosition, &m.StorySource, &m.MentionCount); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}

// CoverageCounts holds per-company quote and story mention counts.
type CoverageCounts struct {
	CompanyID         string `json:"company_id"`
	QuoteCount        int    `json:"quote_count"`
	StoryMentionCount int    `json:"story_mention_count"`
}

// CompanyCoverage returns quote and story mention counts per company.
func (s *Store) CompanyCoverage(ctx context.Context) ([]CoverageCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id,
			(SELECT COUNT(*) FROM quotes q WHERE q.company_id = c.id),
			(SELECT COUNT(*) FROM story_mentions sm WHERE sm.company_id = c.id)
		FROM companies c ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coverage []CoverageCounts
	for rows.Next() {
		var c CoverageCounts
		if err := rows.Scan(&c.CompanyID, &c.QuoteCount, &c.StoryMentionCount); err != nil {
			return nil, err
		}
		coverage = append(coverage, c)
	}
	return coverage, rows.Err()
}

// DBStats holds counts of key database objects.
type DBStats struct {
	Companies      int `json:"companies"`
	Quotes         int `json:"quotes"`
	Mentions       int `json:"mentions"`
	StoryMentions  int `json:"story_mentions"`
	ResolutionRuns int `json:"resolution_runs"`
}

// Stats returns row counts for every table.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM companies", &stats.Companies},
		{"SELECT COUNT(*) FROM quotes", &stats.Quotes},
		{"SELECT COUNT(*) FROM mentions", &stats.Mentions},
		{"SELECT COUNT(*) FROM story_mentions", &stats.StoryMentions},
		{"SELECT COUNT(*) FROM resolution_runs", &stats.ResolutionRuns},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
