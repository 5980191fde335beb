package frontier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aharmon/thirteenf/internal/filings"
)

var testItem = filings.WorkItem{
	ReportLink: testBase + "/13f/filing-1",
	Manager:    testBase + "/manager/m",
	Quarter:    "Q1 2024",
}

const holdingsPageHTML = `<html><body>
<table id="filingAggregated" data-url="/data/13f/filing-1.json">
  <thead><tr>
    <th>Symbol</th><th>Issuer Name</th><th>Class</th><th>CUSIP</th>
    <th>Value ($000)</th><th>Percent</th><th>Shares</th><th>Principal</th><th>Option Type</th>
  </tr></thead>
  <tbody>
    <tr>
      <td>AAPL</td><td>Apple Inc</td><td>COM</td><td>037833100</td>
      <td>915560382</td><td>5.1</td><td>915560382</td><td>SH</td><td></td>
    </tr>
    <tr>
      <td>KO</td><td>Coca-Cola Co</td><td>COM</td><td>191216100</td>
      <td>23684000</td><td>1.3</td><td>400000000</td><td>SH</td><td></td>
    </tr>
  </tbody>
</table>
</body></html>`

func TestParseHoldingsPage(t *testing.T) {
	t.Parallel()
	d := newTestDiscoverer(t, &fakeFetcher{})

	page, err := d.ParseHoldingsPage([]byte(holdingsPageHTML), testItem)
	require.NoError(t, err)
	require.Equal(t, testBase+"/data/13f/filing-1.json", page.DataURL)
	require.Len(t, page.Static, 2)

	first := page.Static[0]
	require.Equal(t, "AAPL", first.Symbol)
	require.Equal(t, "Apple Inc", first.IssuerName)
	require.Equal(t, "037833100", first.CUSIP)
	require.Equal(t, "915560382", first.Value)
	require.Equal(t, testItem.ReportLink, first.ReportLink)
	require.Equal(t, testItem.Manager, first.Manager)
	require.Equal(t, testItem.Quarter, first.Quarter)
}

func TestParseHoldingsPage_MissingTable(t *testing.T) {
	t.Parallel()
	d := newTestDiscoverer(t, &fakeFetcher{})

	page, err := d.ParseHoldingsPage([]byte(`<html><body><p>No filing here.</p></body></html>`), testItem)
	require.NoError(t, err)
	require.Empty(t, page.DataURL)
	require.Empty(t, page.Static)
}

func TestParseHoldingsPage_NoDataURL(t *testing.T) {
	t.Parallel()
	d := newTestDiscoverer(t, &fakeFetcher{})

	body := `<html><body><table id="filingAggregated">
		<thead><tr><th>Symbol</th><th>Issuer Name</th></tr></thead>
		<tbody><tr><td>IBM</td><td>IBM Corp</td></tr></tbody>
	</table></body></html>`
	page, err := d.ParseHoldingsPage([]byte(body), testItem)
	require.NoError(t, err)
	require.Empty(t, page.DataURL)
	require.Len(t, page.Static, 1)
	require.Equal(t, "IBM", page.Static[0].Symbol)
	require.Empty(t, page.Static[0].CUSIP, "columns absent from the header stay empty")
}

func TestParseHoldingsPage_ReorderedHeaders(t *testing.T) {
	t.Parallel()
	d := newTestDiscoverer(t, &fakeFetcher{})

	body := `<html><body><table id="filingAggregated">
		<thead><tr><th>Issuer Name</th><th>Symbol</th><th>Shares</th></tr></thead>
		<tbody><tr><td>Apple Inc</td><td>AAPL</td><td>100</td></tr></tbody>
	</table></body></html>`
	page, err := d.ParseHoldingsPage([]byte(body), testItem)
	require.NoError(t, err)
	require.Len(t, page.Static, 1)
	require.Equal(t, "AAPL", page.Static[0].Symbol)
	require.Equal(t, "Apple Inc", page.Static[0].IssuerName)
	require.Equal(t, "100", page.Static[0].Shares)
}

func TestHoldingsFromData(t *testing.T) {
	t.Parallel()

	rows := [][]any{
		{"AAPL", "Apple Inc", "COM", "037833100", float64(915560382), 5.1, float64(915560382), "SH", nil},
		{"KO", "Coca-Cola Co", "COM", "191216100", float64(23684000), 1.3, float64(400000000), "SH", "CALL"},
	}
	got := HoldingsFromData(rows, testItem)
	require.Len(t, got, 2)

	require.Equal(t, "AAPL", got[0].Symbol)
	require.Equal(t, "915560382", got[0].Value, "integral JSON numbers render without exponent")
	require.Equal(t, "5.1", got[0].Percent)
	require.Empty(t, got[0].OptionType)
	require.Equal(t, "CALL", got[1].OptionType)
	require.Equal(t, testItem.ReportLink, got[1].ReportLink)
}

func TestHoldingsFromData_ShortRow(t *testing.T) {
	t.Parallel()

	got := HoldingsFromData([][]any{{"AAPL", "Apple Inc"}}, testItem)
	require.Len(t, got, 1)
	require.Equal(t, "AAPL", got[0].Symbol)
	require.Empty(t, got[0].Class, "missing positions resolve to empty fields")
}
