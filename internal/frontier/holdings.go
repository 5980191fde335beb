package frontier

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aharmon/thirteenf/internal/filings"
)

// HoldingsPage is the parsed shape of one filing detail page: the optional
// machine-readable data endpoint plus whatever the static table carried.
type HoldingsPage struct {
	// DataURL is the absolute URL of the structured holdings endpoint, or
	// empty when the page does not reference one.
	DataURL string
	// Static holds the rows parsed from the server-rendered table. May be
	// empty even on a well-formed page.
	Static []filings.HoldingRecord
}

// ParseHoldingsPage inspects the aggregated holdings table of a filing page.
// A missing table is not an error; it simply yields no data.
func (d *Discoverer) ParseHoldingsPage(body []byte, item filings.WorkItem) (HoldingsPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return HoldingsPage{}, fmt.Errorf("parse filing page %s: %w", item.ReportLink, err)
	}

	table := doc.Find("#filingAggregated").First()
	if table.Length() == 0 {
		return HoldingsPage{}, nil
	}

	var out HoldingsPage
	if dataURL, ok := table.Attr("data-url"); ok && dataURL != "" {
		out.DataURL = d.resolve(dataURL)
	}

	cols := newAggregateColumns(headerTexts(table))
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) == 0 {
			return
		}
		out.Static = append(out.Static, cols.record(cells, item))
	})
	return out, nil
}

// HoldingsFromData converts rows of the structured endpoint's payload into
// holding records. The payload carries positional rows matching the
// aggregated table's column order.
func HoldingsFromData(rows [][]any, item filings.WorkItem) []filings.HoldingRecord {
	out := make([]filings.HoldingRecord, 0, len(rows))
	for _, raw := range rows {
		cells := make([]string, len(raw))
		for i, v := range raw {
			cells[i] = stringify(v)
		}
		out = append(out, aggregateColumnsV1.record(cells, item))
	}
	return out
}

func headerTexts(table *goquery.Selection) []string {
	var headers []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})
	return headers
}

func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(td.Text()))
	})
	return cells
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// JSON numbers: render integral values without an exponent.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
