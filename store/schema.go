package store

// schemaSQL is the DDL for all tables holding the resolved company
// graph and its provenance.
const schemaSQL = `
-- Canonical companies produced by entity resolution
CREATE TABLE IF NOT EXISTS companies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    url TEXT,
    market_key TEXT,
    identity_source TEXT NOT NULL,
    identity_confidence TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS companies_market_key
    ON companies(market_key) WHERE market_key IS NOT NULL AND market_key != '';

-- Rewritten quote rows; payload preserves the opaque input fields
CREATE TABLE IF NOT EXISTS quotes (
    id TEXT PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    edition_id TEXT,
    payload JSON NOT NULL
);

CREATE INDEX IF NOT EXISTS quotes_company ON quotes(company_id);

-- Rewritten mention rows
CREATE TABLE IF NOT EXISTS mentions (
    id TEXT PRIMARY KEY,
    company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    edition_id TEXT,
    payload JSON NOT NULL
);

CREATE INDEX IF NOT EXISTS mentions_company ON mentions(company_id);

-- Daily Brief story mentions, one row per (company, story)
CREATE TABLE IF NOT EXISTS story_mentions (
    company_id TEXT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    story_id TEXT NOT NULL,
    story_title TEXT NOT NULL,
    story_url TEXT NOT NULL,
    post_title TEXT,
    story_date TEXT,
    story_position INTEGER,
    story_source TEXT,
    mention_count INTEGER NOT NULL,
    PRIMARY KEY (company_id, story_id)
);

-- Resolution run audit trail
CREATE TABLE IF NOT EXISTS resolution_runs (
    run_id TEXT PRIMARY KEY,
    generated_at TEXT NOT NULL,
    counts JSON NOT NULL,
    report JSON NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
