package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Direction tells whether a category counts as income or outcome.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionOutcome Direction = "outcome"
)

// ParseDirection accepts "income"/"outcome" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(DirectionIncome):
		return DirectionIncome, nil
	case string(DirectionOutcome):
		return DirectionOutcome, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// IsIncome reports whether d is DirectionIncome.
func (d Direction) IsIncome() bool {
	return d == DirectionIncome
}

// Category is an entry of the category catalog.
// The catalog is small and always replaced as a whole.
type Category struct {
	ID        int64
	Name      string
	Emoji     string // single display glyph
	Direction Direction
}

// BankAccount is the user's primary account.
type BankAccount struct {
	ID        int64
	UserID    int64
	Name      string
	Balance   decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is a single money movement.
//
// Amount is always a non-negative magnitude. Whether it adds to or subtracts
// from the balance is decided by the direction of the referenced category.
type Transaction struct {
	ID              int64
	AccountID       *int64
	CategoryID      *int64
	Amount          decimal.Decimal
	TransactionDate time.Time
	Comment         *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ErrNegativeAmount is returned by Transaction.Validate for a signed amount.
var ErrNegativeAmount = errors.New("amount must be a non-negative magnitude")

// Validate checks the transaction invariants that hold before it leaves the device.
func (t Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("transaction %d: %w", t.ID, ErrNegativeAmount)
	}
	if t.TransactionDate.IsZero() {
		return fmt.Errorf("transaction %d: transaction date is required", t.ID)
	}
	return nil
}

// Validate checks that the category carries exactly one display glyph and a known direction.
func (c Category) Validate() error {
	if utf8.RuneCountInString(c.Emoji) == 0 {
		return fmt.Errorf("category %d: emoji is empty", c.ID)
	}
	if c.Direction != DirectionIncome && c.Direction != DirectionOutcome {
		return fmt.Errorf("category %d: unknown direction %q", c.ID, c.Direction)
	}
	return nil
}

// Int64 returns a pointer to v. Handy for the optional id fields.
func Int64(v int64) *int64 {
	return &v
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Interval is a closed time range [Start, End].
// The zero Interval is unbounded and contains every instant.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the interval is the unbounded scope.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// Contains reports whether t lies inside the interval, both ends inclusive.
func (i Interval) Contains(t time.Time) bool {
	if i.IsZero() {
		return true
	}
	if !i.Start.IsZero() && t.Before(i.Start) {
		return false
	}
	if !i.End.IsZero() && t.After(i.End) {
		return false
	}
	return true
}

// Day returns the calendar day containing t in t's location.
func Day(t time.Time) Interval {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Interval{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}

// Today returns the current calendar day in UTC.
func Today() Interval {
	return Day(time.Now().UTC())
}

func (i Interval) String() string {
	if i.IsZero() {
		return "[all]"
	}
	return fmt.Sprintf("[%s, %s]", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// FilterCategories returns the categories of direction dir.
func FilterCategories(cats []Category, dir Direction) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if c.Direction == dir {
			out = append(out, c)
		}
	}
	return out
}

// FilterTransactions returns the transactions whose TransactionDate lies inside the interval.
func FilterTransactions(txs []Transaction, interval Interval) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if interval.Contains(tx.TransactionDate) {
			out = append(out, tx)
		}
	}
	return out
}
