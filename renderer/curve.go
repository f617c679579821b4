package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/costbasis"
	md "github.com/nao1215/markdown"
)

// CurveMarkdown renders an equity curve with its headline figures.
func CurveMarkdown(c *costbasis.Curve) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Equity Curve from %s to %s", c.Range.From, c.Range.To))
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
		},
		Header: []string{
			md.Bold("ROI"),
			md.Bold(c.ROI.SignedString()),
		},
		Rows: [][]string{
			{"Initial Capital", c.InitialCapital.String()},
			{"Realized P&L", c.RealizedPnL.SignedString()},
			{"Unrealized P&L", c.UnrealizedPnL.SignedString()},
			{"Max Drawdown", c.MaxDrawdown.String()},
		},
	})

	if len(c.Points) > 0 {
		doc.H2("History")
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
			},
			Header: []string{"Date", "Value", "Market Value", "Cash", "Realized"},
		}
		for _, p := range c.Points {
			table.Rows = append(table.Rows, []string{
				p.Date.String(),
				p.Value.String(),
				p.MarketValue.String(),
				p.Cash.String(),
				p.Realized.SignedString(),
			})
		}
		doc.Table(table)
	}
	return doc.String()
}
