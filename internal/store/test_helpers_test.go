package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// createTestStore opens a fresh store in a temp dir, closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTransaction builds a transaction on 2025-06-<day> at noon UTC.
func createTestTransaction(id int64, amount string, day int) model.Transaction {
	return model.Transaction{
		ID:              id,
		AccountID:       model.Int64(1),
		CategoryID:      model.Int64(2),
		Amount:          decimal.RequireFromString(amount),
		TransactionDate: time.Date(2025, 6, day, 12, 0, 0, 0, time.UTC),
	}
}

func june(day int) model.Interval {
	return model.Day(time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC))
}
