// Package renderer formats engine results as markdown.
package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/costbasis"
	md "github.com/nao1215/markdown"
)

// MetricsMarkdown renders the portfolio totals and the holdings breakdown.
func MetricsMarkdown(m *costbasis.PortfolioMetrics) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolio Metrics")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
		},
		Header: []string{
			md.Bold("Total Value"),
			md.Bold(m.TotalValue.String()),
		},
		Rows: [][]string{
			{"Cash Balance", m.CashBalance.String()},
			{"Positions Value", m.PositionsValue.String()},
			{"Invested Amount", m.InvestedAmount.String()},
		},
	})

	doc.H2("Profit and Loss")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{
			md.Bold("Total P&L"),
			md.Bold(m.TotalPnL.SignedString()),
			m.TotalPnLPercentage.SignedString(),
		},
		Rows: [][]string{
			{"Realized", m.RealizedPnL.SignedString(), ""},
			{"Unrealized", m.UnrealizedPnL.SignedString(), ""},
			{"ROI", "", m.ROIPercentage.SignedString()},
		},
	})

	if positions := m.Positions(); len(positions) > 0 {
		doc.H2("Holdings Breakdown")
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
			},
			Header: []string{
				"Instrument",
				"Shares",
				"Avg. Cost",
				"Price",
				"Market Value",
				"Unrealized",
				"Realized",
				"Total",
			},
		}
		for _, r := range positions {
			table.Rows = append(table.Rows, breakdownRow(r))
		}
		doc.Table(table)
	}

	if len(m.SkippedSales) > 0 {
		doc.H2("Dropped Sales")
		var lines []string
		for _, s := range m.SkippedSales {
			lines = append(lines, SkippedSale(s))
		}
		doc.OrderedList(lines...)
	}

	return doc.String()
}

func breakdownRow(r costbasis.BreakdownRow) []string {
	name := r.Code
	if r.Name != "" && r.Name != r.Code {
		name = fmt.Sprintf("%s (%s)", r.Code, r.Name)
	}
	if r.Closed {
		return []string{name + " *closed*", "0", "", "", "", "", r.RealizedPnL.SignedString(), r.TotalPnL.SignedString()}
	}
	price := r.CurrentPrice.String()
	if r.PriceSource == costbasis.PriceCost {
		price += " *at cost*"
	}
	return []string{
		name,
		r.Shares.String(),
		r.AvgPurchasePrice.String(),
		price,
		r.MarketValue.String(),
		fmt.Sprintf("%s (%s)", r.UnrealizedPnL.SignedString(), r.UnrealizedPnLPercent.SignedString()),
		r.RealizedPnL.SignedString(),
		r.TotalPnL.SignedString(),
	}
}
