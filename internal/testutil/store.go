package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/store"
)

// Fault names a group of store methods FlakyStore can break.
type Fault string

const (
	FaultTransactionReads  Fault = "transaction_reads"
	FaultTransactionWrites Fault = "transaction_writes"
	FaultAccounts          Fault = "accounts"
	FaultCategories        Fault = "categories"
	FaultBackup            Fault = "backup"
)

// ParseFault validates a fault name from a scenario file.
func ParseFault(s string) (Fault, error) {
	switch f := Fault(s); f {
	case FaultTransactionReads, FaultTransactionWrites, FaultAccounts, FaultCategories, FaultBackup:
		return f, nil
	}
	return "", fmt.Errorf("unknown store fault %q", s)
}

// ErrDiskFull is returned by every broken FlakyStore method.
var ErrDiskFull = errors.New("database or disk is full")

// OpenStore opens a SQLite store in a temp dir, closed at test cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "finance.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// FlakyStore wraps a real store and fails selected method groups on demand.
//
// Thread-safety: FlakyStore is safe for concurrent use via internal mutex.
type FlakyStore struct {
	*store.Store

	mu     sync.Mutex
	faults map[Fault]bool
}

// NewFlakyStore wraps s with no faults set.
func NewFlakyStore(s *store.Store) *FlakyStore {
	return &FlakyStore{Store: s, faults: make(map[Fault]bool)}
}

// Set turns a fault on or off.
func (s *FlakyStore) Set(f Fault, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[f] = on
}

// Heal clears every fault.
func (s *FlakyStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[Fault]bool)
}

func (s *FlakyStore) check(f Fault, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faults[f] {
		return fmt.Errorf("%s: %w", method, ErrDiskFull)
	}
	return nil
}

func (s *FlakyStore) FetchTransactions(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	if err := s.check(FaultTransactionReads, "fetch transactions"); err != nil {
		return nil, err
	}
	return s.Store.FetchTransactions(ctx, interval)
}

func (s *FlakyStore) CountTransactions(ctx context.Context) (int, error) {
	if err := s.check(FaultTransactionReads, "count transactions"); err != nil {
		return 0, err
	}
	return s.Store.CountTransactions(ctx)
}

func (s *FlakyStore) CreateTransaction(ctx context.Context, tx model.Transaction) error {
	if err := s.check(FaultTransactionWrites, "create transaction"); err != nil {
		return err
	}
	return s.Store.CreateTransaction(ctx, tx)
}

func (s *FlakyStore) UpdateTransaction(ctx context.Context, id int64, tx model.Transaction) error {
	if err := s.check(FaultTransactionWrites, "update transaction"); err != nil {
		return err
	}
	return s.Store.UpdateTransaction(ctx, id, tx)
}

func (s *FlakyStore) SaveTransaction(ctx context.Context, tx model.Transaction) error {
	if err := s.check(FaultTransactionWrites, "save transaction"); err != nil {
		return err
	}
	return s.Store.SaveTransaction(ctx, tx)
}

func (s *FlakyStore) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.check(FaultTransactionWrites, "delete transaction"); err != nil {
		return err
	}
	return s.Store.DeleteTransaction(ctx, id)
}

func (s *FlakyStore) PrimaryAccount(ctx context.Context) (model.BankAccount, error) {
	if err := s.check(FaultAccounts, "primary account"); err != nil {
		return model.BankAccount{}, err
	}
	return s.Store.PrimaryAccount(ctx)
}

func (s *FlakyStore) SaveAccount(ctx context.Context, a model.BankAccount) error {
	if err := s.check(FaultAccounts, "save account"); err != nil {
		return err
	}
	return s.Store.SaveAccount(ctx, a)
}

func (s *FlakyStore) Categories(ctx context.Context) ([]model.Category, error) {
	if err := s.check(FaultCategories, "categories"); err != nil {
		return nil, err
	}
	return s.Store.Categories(ctx)
}

func (s *FlakyStore) ReplaceCategories(ctx context.Context, cats []model.Category) error {
	if err := s.check(FaultCategories, "replace categories"); err != nil {
		return err
	}
	return s.Store.ReplaceCategories(ctx, cats)
}

func (s *FlakyStore) Upsert(ctx context.Context, op model.PendingOperation) error {
	if err := s.check(FaultBackup, "backup upsert"); err != nil {
		return err
	}
	return s.Store.Upsert(ctx, op)
}

func (s *FlakyStore) Remove(ctx context.Context, kind model.Kind, id int64) error {
	if err := s.check(FaultBackup, "backup remove"); err != nil {
		return err
	}
	return s.Store.Remove(ctx, kind, id)
}

func (s *FlakyStore) ListAll(ctx context.Context) ([]model.PendingOperation, error) {
	if err := s.check(FaultBackup, "backup list"); err != nil {
		return nil, err
	}
	return s.Store.ListAll(ctx)
}
