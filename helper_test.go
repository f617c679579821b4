package costbasis

import "time"

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// day returns midnight UTC of a day in 2025.
func day(m time.Month, d int) time.Time { return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC) }

func buy(on time.Time, code string, shares, price float64) Transaction {
	return NewBuy(on, code, Q(shares), EUR(price), EUR(0))
}

func sell(on time.Time, code string, shares, price float64) Transaction {
	return NewSell(on, code, Q(shares), EUR(price), EUR(0))
}

func holding(code string, shares, avg float64) Holding {
	return Holding{Code: code, Name: code, Shares: Q(shares), AvgPurchasePrice: EUR(avg)}
}
