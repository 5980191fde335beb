package store

// Schema for the filing archive. Every statement is idempotent; InitSchema
// applies the whole block on startup.
//
// holdings carries the uniqueness constraint on (report_link, symbol) that
// makes repeated ingestion of the same filing commutative: concurrent
// INSERT OR IGNORE writes cannot duplicate a security line.
//
// summaries is deduplicated on (manager, report_link); see DESIGN.md for the
// log-vs-set decision.
const schema = `
CREATE TABLE IF NOT EXISTS summaries (
	manager        TEXT NOT NULL,
	quarter        TEXT,
	holdings_count INTEGER,
	value          TEXT,
	top_holdings   TEXT,
	form           TEXT,
	date_filed     TEXT,
	filing_id      TEXT,
	report_link    TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_summary
	ON summaries(manager, report_link);

CREATE TABLE IF NOT EXISTS holdings (
	symbol      TEXT,
	issuer_name TEXT,
	class       TEXT,
	cusip       TEXT,
	value       TEXT,
	percent     TEXT,
	shares      TEXT,
	principal   TEXT,
	option_type TEXT,
	report_link TEXT NOT NULL,
	manager     TEXT,
	quarter     TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_holding
	ON holdings(report_link, symbol);

CREATE TABLE IF NOT EXISTS failed_filings (
	report_link TEXT PRIMARY KEY,
	manager     TEXT,
	quarter     TEXT,
	error       TEXT,
	last_tried  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_log (
	report_link TEXT NOT NULL,
	status      TEXT NOT NULL,
	run_id      TEXT,
	ts          TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_audit_link ON audit_log(report_link);
`
