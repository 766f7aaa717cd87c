package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the sum of a category's transactions in a period.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Emoji      string
	Direction  Direction
	Total      decimal.Decimal
	Count      int
}

// Summary aggregates a list of transactions per direction and per category.
type Summary struct {
	Income        decimal.Decimal
	Outcome       decimal.Decimal
	Net           decimal.Decimal
	Categories    []CategoryTotal // largest total first, ties by id
	Uncategorized decimal.Decimal
}

// Summarize totals txs using categories to decide each direction.
// Transactions without a known category are counted as uncategorized and do
// not contribute to Income or Outcome.
func Summarize(txs []Transaction, categories []Category) Summary {
	byID := make(map[int64]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	totals := make(map[int64]*CategoryTotal)
	s := Summary{}
	for _, tx := range txs {
		if tx.CategoryID == nil {
			s.Uncategorized = s.Uncategorized.Add(tx.Amount)
			continue
		}
		cat, ok := byID[*tx.CategoryID]
		if !ok {
			s.Uncategorized = s.Uncategorized.Add(tx.Amount)
			continue
		}
		ct, ok := totals[cat.ID]
		if !ok {
			ct = &CategoryTotal{CategoryID: cat.ID, Name: cat.Name, Emoji: cat.Emoji, Direction: cat.Direction}
			totals[cat.ID] = ct
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
		if cat.Direction.IsIncome() {
			s.Income = s.Income.Add(tx.Amount)
		} else {
			s.Outcome = s.Outcome.Add(tx.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Outcome)

	s.Categories = make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := s.Categories[i], s.Categories[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.CategoryID < b.CategoryID
	})
	return s
}

// Share returns ct's percentage of total, rounded to two places.
func (ct CategoryTotal) Share(total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return ct.Total.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}
