// Package query holds the fixed catalog of read-only analytical queries
// that run against the filing archive.
package query

import (
	"context"
	"database/sql"
	"fmt"
)

// sortKey orders quarter labels of the form "Q1 2024" chronologically.
const sortKey = `CAST(substr(quarter, instr(quarter, ' ') + 1) AS INT) * 10 +
                 CAST(substr(quarter, 2, 1) AS INT)`

// assetExpr collapses a holding to a displayable asset identifier.
const assetExpr = `COALESCE(NULLIF(symbol, ''), NULLIF(issuer_name, ''), 'UNKNOWN_ASSET')`

// Param describes one numeric placeholder of a catalog query.
type Param struct {
	Name    string
	Default int
}

// Definition is one named catalog entry. SQL placeholders are positional
// and correspond to Params in order.
type Definition struct {
	Name   string
	Title  string
	SQL    string
	Params []Param
}

// Catalog returns the fixed set of analytical queries.
func Catalog() []Definition {
	return []Definition{
		{
			Name:  "reports",
			Title: "Total Reports Scraped",
			SQL:   `SELECT COUNT(DISTINCT report_link) AS reports FROM holdings;`,
		},
		{
			Name:  "holdings",
			Title: "Total Holdings Saved",
			SQL:   `SELECT COUNT(*) AS holdings FROM holdings;`,
		},
		{
			Name:  "failed",
			Title: "Failed Filings Left",
			SQL:   `SELECT COUNT(*) AS failed FROM failed_filings;`,
		},
		{
			Name:  "audit",
			Title: "Audit Status Summary",
			SQL:   `SELECT status, COUNT(*) AS count FROM audit_log GROUP BY status;`,
		},
		{
			Name:   "top-assets",
			Title:  "Most Common Assets",
			Params: []Param{{Name: "limit", Default: 10}},
			SQL: `SELECT ` + assetExpr + ` AS asset, COUNT(*) AS count
FROM holdings
GROUP BY asset
ORDER BY count DESC
LIMIT ?;`,
		},
		{
			Name:   "largest-portfolios",
			Title:  "Largest Portfolios by Value",
			Params: []Param{{Name: "limit", Default: 10}},
			SQL: `SELECT manager, SUM(CAST(value AS INT)) AS total_value
FROM holdings
GROUP BY manager
ORDER BY total_value DESC
LIMIT ?;`,
		},
		{
			Name:  "per-quarter",
			Title: "Holdings Count per Quarter",
			SQL: `SELECT quarter, COUNT(*) AS count
FROM holdings
GROUP BY quarter
ORDER BY ` + sortKey + ` DESC;`,
		},
		{
			Name:   "gaining",
			Title:  "Assets Gaining Popularity",
			Params: []Param{{Name: "quarters", Default: 4}, {Name: "limit", Default: 20}},
			SQL: `WITH qtr_counts AS (
    SELECT ` + assetExpr + ` AS asset,
           quarter,
           COUNT(DISTINCT manager) AS managers_holding,
           ` + sortKey + ` AS sort_key
    FROM holdings
    GROUP BY asset, quarter
),
recent_qtrs AS (
    SELECT DISTINCT quarter, sort_key
    FROM qtr_counts
    ORDER BY sort_key DESC
    LIMIT ?
)
SELECT asset, quarter, managers_holding
FROM qtr_counts
WHERE quarter IN (SELECT quarter FROM recent_qtrs)
ORDER BY managers_holding DESC
LIMIT ?;`,
		},
		{
			Name:   "qoq-growth",
			Title:  "Quarter-over-Quarter Growth",
			Params: []Param{{Name: "quarters", Default: 4}, {Name: "limit", Default: 20}},
			SQL: `WITH qtr_counts AS (
    SELECT ` + assetExpr + ` AS asset,
           quarter,
           COUNT(DISTINCT manager) AS managers_holding,
           ` + sortKey + ` AS sort_key
    FROM holdings
    GROUP BY asset, quarter
),
recent_qtrs AS (
    SELECT DISTINCT quarter, sort_key
    FROM qtr_counts
    ORDER BY sort_key DESC
    LIMIT ?
)
SELECT a.asset, a.quarter AS current_q, a.managers_holding,
       (a.managers_holding - COALESCE(b.managers_holding, 0)) AS qoq_growth
FROM qtr_counts a
LEFT JOIN qtr_counts b
  ON a.asset = b.asset
 AND b.sort_key = (SELECT MAX(sort_key)
                   FROM recent_qtrs
                   WHERE sort_key < a.sort_key)
WHERE a.quarter IN (SELECT quarter FROM recent_qtrs)
ORDER BY qoq_growth DESC
LIMIT ?;`,
		},
		{
			Name:   "growing",
			Title:  "Consistently Growing Assets",
			Params: []Param{{Name: "quarters", Default: 6}, {Name: "limit", Default: 20}},
			SQL: `WITH qtr_counts AS (
    SELECT ` + assetExpr + ` AS asset,
           quarter,
           COUNT(DISTINCT manager) AS managers_holding,
           ` + sortKey + ` AS sort_key
    FROM holdings
    GROUP BY asset, quarter
),
recent_qtrs AS (
    SELECT DISTINCT quarter, sort_key
    FROM qtr_counts
    ORDER BY sort_key DESC
    LIMIT ?
),
ranked AS (
    SELECT asset,
           MIN(quarter) AS first_q,
           MAX(quarter) AS last_q,
           MIN(managers_holding) AS min_managers,
           MAX(managers_holding) AS max_managers
    FROM qtr_counts
    WHERE quarter IN (SELECT quarter FROM recent_qtrs)
    GROUP BY asset
)
SELECT asset, first_q, last_q, min_managers, max_managers,
       (max_managers - min_managers) AS growth
FROM ranked
ORDER BY growth DESC
LIMIT ?;`,
		},
		{
			Name:   "momentum",
			Title:  "Institutional Momentum (Rising Assets)",
			Params: []Param{{Name: "limit", Default: 10}},
			SQL: `WITH this_q AS (
    SELECT ` + assetExpr + ` AS asset,
           COUNT(DISTINCT manager) AS managers_now
    FROM holdings
    WHERE quarter = (SELECT MAX(quarter) FROM holdings)
    GROUP BY asset
),
prev_q AS (
    SELECT ` + assetExpr + ` AS asset,
           COUNT(DISTINCT manager) AS managers_prev
    FROM holdings
    WHERE quarter = (SELECT MAX(quarter) FROM holdings
                     WHERE quarter < (SELECT MAX(quarter) FROM holdings))
    GROUP BY asset
)
SELECT this_q.asset,
       this_q.managers_now,
       COALESCE(prev_q.managers_prev, 0) AS managers_prev,
       (this_q.managers_now - COALESCE(prev_q.managers_prev, 0)) AS change
FROM this_q
LEFT JOIN prev_q ON this_q.asset = prev_q.asset
ORDER BY change DESC
LIMIT ?;`,
		},
	}
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (Definition, bool) {
	for _, def := range Catalog() {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// Result is the tabular outcome of one catalog query.
type Result struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Run executes a catalog query read-only against db. overrides replaces
// parameter defaults by name.
func Run(ctx context.Context, db *sql.DB, def Definition, overrides map[string]int) (Result, error) {
	args := make([]any, 0, len(def.Params))
	for _, p := range def.Params {
		v := p.Default
		if ov, ok := overrides[p.Name]; ok {
			v = ov
		}
		args = append(args, v)
	}

	rows, err := db.QueryContext(ctx, def.SQL, args...)
	if err != nil {
		return Result{}, fmt.Errorf("run query %q: %w", def.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("query %q columns: %w", def.Name, err)
	}

	res := Result{Title: def.Title, Columns: cols}
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		scan := make([]any, len(cols))
		for i := range raw {
			scan[i] = &raw[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return Result{}, fmt.Errorf("scan query %q row: %w", def.Name, err)
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				row[i] = v.String
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate query %q: %w", def.Name, err)
	}
	return res, nil
}
