package core

// Summary holds the derived totals for a set of transactions.
type Summary struct {
	TotalSales     Money
	TotalPurchases Money
	Profit         Money
}

// Summarize computes total sales, total purchases and net profit over the
// given transactions. It is a pure function recomputed from scratch on every
// call; the working set is a single month, expected to be small. Profit may
// be negative.
func Summarize(txs []Transaction) Summary {
	var sales, purchases int64
	for _, tx := range txs {
		switch tx.Type {
		case Sale:
			sales += tx.Amount.Cents
		case Purchase:
			purchases += tx.Amount.Cents
		}
	}
	return Summary{
		TotalSales:     Money{Cents: sales},
		TotalPurchases: Money{Cents: purchases},
		Profit:         Money{Cents: sales - purchases},
	}
}
