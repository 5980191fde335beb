package frontier

import "github.com/aharmon/thirteenf/internal/filings"

// Header captions of the aggregated holdings table, first observed page
// generation. The adapter maps captions to record fields explicitly so a
// reordered table degrades to empty fields instead of shifted data.
const (
	captionSymbol     = "Symbol"
	captionIssuerName = "Issuer Name"
	captionClass      = "Class"
	captionCUSIP      = "CUSIP"
	captionValue      = "Value ($000)"
	captionPercent    = "Percent"
	captionShares     = "Shares"
	captionPrincipal  = "Principal"
	captionOptionType = "Option Type"
)

// aggregateColumns maps column positions to holding record fields.
type aggregateColumns struct {
	symbol     int
	issuerName int
	class      int
	cusip      int
	value      int
	percent    int
	shares     int
	principal  int
	optionType int
}

// aggregateColumnsV1 is the canonical column order, used for the positional
// rows of the structured data endpoint.
var aggregateColumnsV1 = aggregateColumns{
	symbol:     0,
	issuerName: 1,
	class:      2,
	cusip:      3,
	value:      4,
	percent:    5,
	shares:     6,
	principal:  7,
	optionType: 8,
}

// newAggregateColumns derives a column mapping from the header captions of a
// static table. Unknown captions are ignored; missing ones resolve to -1 and
// produce empty fields.
func newAggregateColumns(headers []string) aggregateColumns {
	cols := aggregateColumns{
		symbol: -1, issuerName: -1, class: -1, cusip: -1, value: -1,
		percent: -1, shares: -1, principal: -1, optionType: -1,
	}
	for i, h := range headers {
		switch h {
		case captionSymbol:
			cols.symbol = i
		case captionIssuerName:
			cols.issuerName = i
		case captionClass:
			cols.class = i
		case captionCUSIP:
			cols.cusip = i
		case captionValue:
			cols.value = i
		case captionPercent:
			cols.percent = i
		case captionShares:
			cols.shares = i
		case captionPrincipal:
			cols.principal = i
		case captionOptionType:
			cols.optionType = i
		}
	}
	return cols
}

func (c aggregateColumns) record(cells []string, item filings.WorkItem) filings.HoldingRecord {
	at := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	return filings.HoldingRecord{
		Symbol:     at(c.symbol),
		IssuerName: at(c.issuerName),
		Class:      at(c.class),
		CUSIP:      at(c.cusip),
		Value:      at(c.value),
		Percent:    at(c.percent),
		Shares:     at(c.shares),
		Principal:  at(c.principal),
		OptionType: at(c.optionType),
		ReportLink: item.ReportLink,
		Manager:    item.Manager,
		Quarter:    item.Quarter,
	}
}
