// Package frontier walks the filing site's fixed three-level hierarchy:
// letter-indexed manager lists, paginated per-manager filing lists, and
// per-filing holdings tables. It owns all knowledge of page structure.
package frontier

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/filings"
)

const filingColumns = 7

// Discoverer produces managers and work items from the source site.
type Discoverer struct {
	fetcher filings.Fetcher
	base    *url.URL
	logger  *zap.Logger
}

// New builds a Discoverer rooted at baseURL.
func New(fetcher filings.Fetcher, baseURL string, logger *zap.Logger) (*Discoverer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &Discoverer{fetcher: fetcher, base: base, logger: logger}, nil
}

// ListManagers fetches the index page for one partition key and returns every
// manager link on it, deduplicated by canonical URL and sorted. Each call
// re-fetches; there is no internal cache.
func (d *Discoverer) ListManagers(ctx context.Context, partition string) ([]filings.ManagerRef, error) {
	indexURL := d.resolve("/managers/" + partition)
	page, err := d.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("list managers for partition %q: %w", partition, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse manager index %q: %w", partition, err)
	}

	seen := make(map[string]struct{})
	var refs []filings.ManagerRef
	doc.Find("a[href^='/manager/']").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		canonical := d.resolve(href)
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		refs = append(refs, filings.ManagerRef{
			URL:  canonical,
			Name: strings.TrimSpace(sel.Text()),
		})
	})
	sort.Slice(refs, func(i, j int) bool { return refs[i].URL < refs[j].URL })

	d.logger.Info("collected managers",
		zap.String("partition", partition),
		zap.Int("count", len(refs)),
	)
	return refs, nil
}

// ListFilings follows a manager's paginated filing list, producing one
// summary row and one work item per filing. Pagination continues through
// rel=next links until absent. A fetch failure aborts pagination but keeps
// the rows already collected; the partial results come back with the error.
func (d *Discoverer) ListFilings(
	ctx context.Context,
	manager filings.ManagerRef,
) ([]filings.FilingSummary, []filings.WorkItem, error) {
	var (
		summaries []filings.FilingSummary
		items     []filings.WorkItem
	)

	pageURL := manager.URL
	for pageURL != "" {
		page, err := d.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return summaries, items, fmt.Errorf("list filings for %s: %w", manager.URL, err)
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			return summaries, items, fmt.Errorf("parse filing list %s: %w", pageURL, err)
		}

		doc.Find("table#managerFilings tbody tr").Each(func(_ int, row *goquery.Selection) {
			summary, item, ok := d.filingRow(manager, row)
			if !ok {
				return
			}
			summaries = append(summaries, summary)
			if item.ReportLink != "" {
				items = append(items, item)
			}
		})

		pageURL = ""
		if next, ok := doc.Find("a[rel='next']").First().Attr("href"); ok {
			pageURL = d.resolve(next)
		}
	}
	return summaries, items, nil
}

// filingRow maps one table row to a summary plus work item. Rows with an
// unexpected column count carry no usable data and are skipped.
func (d *Discoverer) filingRow(
	manager filings.ManagerRef,
	row *goquery.Selection,
) (filings.FilingSummary, filings.WorkItem, bool) {
	cells := row.Find("td")
	if cells.Length() != filingColumns {
		d.logger.Debug("skipping malformed filing row",
			zap.String("manager", manager.URL),
			zap.Int("columns", cells.Length()),
		)
		return filings.FilingSummary{}, filings.WorkItem{}, false
	}

	cols := make([]string, 0, filingColumns)
	cells.Each(func(_ int, c *goquery.Selection) {
		cols = append(cols, strings.TrimSpace(c.Text()))
	})

	summary := filings.FilingSummary{
		Manager:       manager.URL,
		Quarter:       cols[0],
		HoldingsCount: parseCount(cols[1]),
		Value:         cols[2],
		TopHoldings:   cols[3],
		Form:          cols[4],
		DateFiled:     cols[5],
		FilingID:      cols[6],
	}

	item := filings.WorkItem{Manager: manager.URL, Quarter: cols[0]}
	if href, ok := row.Find("a[href]").First().Attr("href"); ok {
		link := d.resolve(href)
		summary.ReportLink = link
		item.ReportLink = link
	}
	return summary, item, true
}

// resolve turns a possibly relative href into an absolute canonical URL.
func (d *Discoverer) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.base.ResolveReference(ref).String()
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
