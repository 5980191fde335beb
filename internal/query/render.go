package query

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Format selects the output rendering for a Result.
type Format string

// Supported output formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// Render writes res to w in the requested format.
func Render(w io.Writer, res Result, format Format) error {
	switch format {
	case FormatTable, "":
		return renderTable(w, res)
	case FormatCSV:
		return renderCSV(w, res)
	case FormatJSON:
		return renderJSON(w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(w io.Writer, res Result) error {
	if _, err := fmt.Fprintf(w, "=== %s ===\n", res.Title); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(res.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.AppendBulk(res.Rows)
	table.Render()
	return nil
}

func renderCSV(w io.Writer, res Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range res.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, res Result) error {
	docs := make([]map[string]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		doc := make(map[string]string, len(res.Columns))
		for i, col := range res.Columns {
			doc[col] = row[i]
		}
		docs = append(docs, doc)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
