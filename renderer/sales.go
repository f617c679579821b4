package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/etnz/costbasis"
	md "github.com/nao1215/markdown"
)

// SalesMarkdown renders the sale log of every instrument, or of code only
// when it is not empty.
func SalesMarkdown(m *costbasis.PortfolioMetrics, code string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Sales")
	found := false
	for t := range m.CostBasisTracker.All() {
		if code != "" && t.Code != code {
			continue
		}
		if len(t.Sales) == 0 && len(t.Skipped) == 0 {
			continue
		}
		found = true
		doc.H2(t.Code)
		doc.Table(md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{md.Bold("Realized P&L"), md.Bold(t.RealizedPnL.SignedString())},
			Rows: [][]string{
				{"Shares Held", t.CurrentShares.String()},
				{"Avg. Purchase Price", t.AvgPurchasePrice.String()},
				{"Shares Ever Bought", t.TotalSharesEverBought.String()},
				{"Cost Ever Bought", t.TotalCostBasisEverBought.String()},
			},
		})

		if len(t.Sales) > 0 {
			table := md.TableSet{
				Alignment: []md.TableAlignment{
					md.AlignLeft,
					md.AlignRight,
					md.AlignRight,
					md.AlignRight,
					md.AlignRight,
					md.AlignRight,
				},
				Header: []string{"Date", "Shares", "Price", "Avg. Cost", "Fees", "Realized"},
			}
			for _, s := range t.Sales {
				table.Rows = append(table.Rows, []string{
					s.Date.Format(time.DateOnly),
					s.Shares.String(),
					s.Price.String(),
					s.AvgCost.String(),
					s.Fees.String(),
					s.RealizedPnL.SignedString(),
				})
			}
			doc.Table(table)
		}

		if len(t.Skipped) > 0 {
			var lines []string
			for _, s := range t.Skipped {
				lines = append(lines, SkippedSale(s))
			}
			doc.PlainText(md.Bold("Dropped sales"))
			doc.OrderedList(lines...)
		}
	}
	if !found {
		if code != "" {
			doc.PlainText(fmt.Sprintf("No sale of %s.", code))
		} else {
			doc.PlainText("No sale.")
		}
	}
	return doc.String()
}
