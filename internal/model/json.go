package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wire JSON follows the REST API: camelCase keys, decimal strings, RFC 3339 dates.

// Timestamp is a time.Time that decodes RFC 3339 with or without fractional
// seconds and treats "" and null as the zero time.
type Timestamp time.Time

// ParseTime parses the date formats accepted on the wire.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// FormatTime renders t in UTC as RFC 3339 with fractional seconds when present.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	t := time.Time(ts)
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(FormatTime(t))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	*ts = Timestamp(t)
	return nil
}

type idRef struct {
	ID int64 `json:"id"`
}

type transactionJSON struct {
	ID              int64           `json:"id"`
	AccountID       *int64          `json:"accountId,omitempty"`
	CategoryID      *int64          `json:"categoryId,omitempty"`
	Account         *idRef          `json:"account,omitempty"`
	Category        *idRef          `json:"category,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate Timestamp       `json:"transactionDate"`
	Comment         *string         `json:"comment,omitempty"`
	CreatedAt       Timestamp       `json:"createdAt"`
	UpdatedAt       Timestamp       `json:"updatedAt"`
}

// MarshalJSON encodes the flat wire form with accountId/categoryId.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:              t.ID,
		AccountID:       t.AccountID,
		CategoryID:      t.CategoryID,
		Amount:          t.Amount,
		TransactionDate: Timestamp(t.TransactionDate),
		Comment:         t.Comment,
		CreatedAt:       Timestamp(t.CreatedAt),
		UpdatedAt:       Timestamp(t.UpdatedAt),
	})
}

// UnmarshalJSON accepts both the flat form and the expanded server response
// where account and category are nested objects.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w transactionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Transaction{
		ID:              w.ID,
		AccountID:       w.AccountID,
		CategoryID:      w.CategoryID,
		Amount:          w.Amount,
		TransactionDate: time.Time(w.TransactionDate),
		Comment:         w.Comment,
		CreatedAt:       time.Time(w.CreatedAt),
		UpdatedAt:       time.Time(w.UpdatedAt),
	}
	if t.AccountID == nil && w.Account != nil {
		t.AccountID = Int64(w.Account.ID)
	}
	if t.CategoryID == nil && w.Category != nil {
		t.CategoryID = Int64(w.Category.ID)
	}
	return nil
}

type accountJSON struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt Timestamp       `json:"createdAt"`
	UpdatedAt Timestamp       `json:"updatedAt"`
}

func (a BankAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Balance:   a.Balance,
		Currency:  a.Currency,
		CreatedAt: Timestamp(a.CreatedAt),
		UpdatedAt: Timestamp(a.UpdatedAt),
	})
}

func (a *BankAccount) UnmarshalJSON(data []byte) error {
	var w accountJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = BankAccount{
		ID:        w.ID,
		UserID:    w.UserID,
		Name:      w.Name,
		Balance:   w.Balance,
		Currency:  w.Currency,
		CreatedAt: time.Time(w.CreatedAt),
		UpdatedAt: time.Time(w.UpdatedAt),
	}
	return nil
}

type categoryJSON struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Emoji     string          `json:"emoji"`
	IsIncome  json.RawMessage `json:"isIncome,omitempty"`
	Direction string          `json:"direction,omitempty"`
}

func (c Category) MarshalJSON() ([]byte, error) {
	isIncome := []byte("false")
	if c.Direction.IsIncome() {
		isIncome = []byte("true")
	}
	return json.Marshal(categoryJSON{ID: c.ID, Name: c.Name, Emoji: c.Emoji, IsIncome: isIncome})
}

// UnmarshalJSON decodes isIncome as a bool, or a "direction" string when present.
func (c *Category) UnmarshalJSON(data []byte) error {
	var w categoryJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Category{ID: w.ID, Name: w.Name, Emoji: w.Emoji, Direction: DirectionOutcome}
	switch {
	case w.Direction != "":
		d, err := ParseDirection(w.Direction)
		if err != nil {
			return fmt.Errorf("category %d: %w", w.ID, err)
		}
		c.Direction = d
	case len(w.IsIncome) > 0:
		var income bool
		if err := json.Unmarshal(w.IsIncome, &income); err != nil {
			var s string
			if serr := json.Unmarshal(w.IsIncome, &s); serr != nil {
				return fmt.Errorf("category %d: isIncome: %w", w.ID, err)
			}
			d, derr := ParseDirection(s)
			if derr != nil {
				return fmt.Errorf("category %d: %w", w.ID, derr)
			}
			c.Direction = d
			return nil
		}
		if income {
			c.Direction = DirectionIncome
		}
	}
	return nil
}
