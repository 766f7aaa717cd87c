package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/remote"
)

// Op names one remote surface of FakeRemote.
type Op string

const (
	OpFetch         Op = "fetch"
	OpCreate        Op = "create"
	OpUpdate        Op = "update"
	OpDelete        Op = "delete"
	OpFetchAccount  Op = "fetch_account"
	OpUpdateAccount Op = "update_account"
	OpCategories    Op = "categories"
	OpCategoriesDir Op = "categories_by_direction"
)

// ParseOp validates an op name from a scenario file.
func ParseOp(s string) (Op, error) {
	switch op := Op(s); op {
	case OpFetch, OpCreate, OpUpdate, OpDelete, OpFetchAccount, OpUpdateAccount, OpCategories, OpCategoriesDir:
		return op, nil
	}
	return "", fmt.Errorf("unknown remote op %q", s)
}

// ErrOffline is the cause carried by the network errors of an offline FakeRemote.
var ErrOffline = errors.New("connection refused")

// Call is one request received by FakeRemote.
type Call struct {
	Op             Op
	ID             int64
	IdempotencyKey string
	RequestID      string
}

// FakeRemote is an in-memory server implementing every remote surface the
// engines use. It assigns ids on create like the real API and answers with
// the same error types as remote.Client.
//
// Thread-safety: FakeRemote is safe for concurrent use via internal mutex.
type FakeRemote struct {
	mu         sync.Mutex
	txs        map[int64]model.Transaction
	account    *model.BankAccount
	categories []model.Category
	nextID     int64
	offline    bool
	failures   map[Op]error
	keys       map[string]int64
	calls      []Call
}

// NewFakeRemote returns an empty online server. The first created id is 1.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		txs:      make(map[int64]model.Transaction),
		nextID:   1,
		failures: make(map[Op]error),
		keys:     make(map[string]int64),
	}
}

// SetOffline makes every call fail with a network error.
func (f *FakeRemote) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

// Fail makes op return err until cleared with Fail(op, nil).
func (f *FakeRemote) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// SetNextID sets the id the next create will assign.
func (f *FakeRemote) SetNextID(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID = id
}

// Seed stores txs as if they were created earlier.
func (f *FakeRemote) Seed(txs ...model.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range txs {
		f.txs[tx.ID] = tx
		if tx.ID >= f.nextID {
			f.nextID = tx.ID + 1
		}
	}
}

// Forget removes a transaction behind the engines' back.
func (f *FakeRemote) Forget(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.txs, id)
}

// SetAccount sets the primary account.
func (f *FakeRemote) SetAccount(a model.BankAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = &a
}

// SetCategories sets the category catalog.
func (f *FakeRemote) SetCategories(cats ...model.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append([]model.Category(nil), cats...)
}

// Transactions returns every stored transaction ordered by date, then id.
func (f *FakeRemote) Transactions() []model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(model.Interval{})
}

// Account returns the primary account, if set.
func (f *FakeRemote) Account() (model.BankAccount, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account == nil {
		return model.BankAccount{}, false
	}
	return *f.account, true
}

// Calls returns the requests received so far.
func (f *FakeRemote) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many requests hit op.
func (f *FakeRemote) CallCount(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (f *FakeRemote) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// begin records the call and returns the injected failure, if any.
// Must be called with f.mu held.
func (f *FakeRemote) begin(ctx context.Context, op Op, id int64, method, path string) error {
	call := Call{Op: op, ID: id}
	call.IdempotencyKey, _ = model.IdempotencyKeyFrom(ctx)
	call.RequestID, _ = model.RequestIDFrom(ctx)
	f.calls = append(f.calls, call)

	if err := ctx.Err(); err != nil {
		return &remote.NetworkError{Method: method, Path: path, Err: err}
	}
	if f.offline {
		return &remote.NetworkError{Method: method, Path: path, Err: ErrOffline}
	}
	return f.failures[op]
}

func (f *FakeRemote) filter(interval model.Interval) []model.Transaction {
	out := make([]model.Transaction, 0, len(f.txs))
	for _, tx := range f.txs {
		if interval.Contains(tx.TransactionDate) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Fetch implements engine.TransactionRemote.
func (f *FakeRemote) Fetch(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpFetch, 0, http.MethodGet, "transactions"); err != nil {
		return nil, err
	}
	return f.filter(interval), nil
}

// Create implements engine.TransactionRemote. The server assigns the id;
// a repeated idempotency key is answered with 409.
func (f *FakeRemote) Create(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpCreate, tx.ID, http.MethodPost, "transactions"); err != nil {
		return model.Transaction{}, err
	}
	key, _ := model.IdempotencyKeyFrom(ctx)
	if key != "" {
		if _, seen := f.keys[key]; seen {
			return model.Transaction{}, &remote.StatusError{Method: http.MethodPost, Path: "transactions", StatusCode: http.StatusConflict}
		}
	}

	tx.ID = f.nextID
	f.nextID++
	f.txs[tx.ID] = tx
	if key != "" {
		f.keys[key] = tx.ID
	}
	return tx, nil
}

// Update implements engine.TransactionRemote.
func (f *FakeRemote) Update(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := fmt.Sprintf("transactions/%d", tx.ID)
	if err := f.begin(ctx, OpUpdate, tx.ID, http.MethodPut, path); err != nil {
		return model.Transaction{}, err
	}
	if _, ok := f.txs[tx.ID]; !ok {
		return model.Transaction{}, &remote.StatusError{Method: http.MethodPut, Path: path, StatusCode: http.StatusNotFound}
	}
	f.txs[tx.ID] = tx
	return tx, nil
}

// Delete implements engine.TransactionRemote.
func (f *FakeRemote) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := fmt.Sprintf("transactions/%d", id)
	if err := f.begin(ctx, OpDelete, id, http.MethodDelete, path); err != nil {
		return err
	}
	if _, ok := f.txs[id]; !ok {
		return &remote.StatusError{Method: http.MethodDelete, Path: path, StatusCode: http.StatusNotFound}
	}
	delete(f.txs, id)
	return nil
}

// FetchPrimary implements engine.AccountRemote.
func (f *FakeRemote) FetchPrimary(ctx context.Context) (model.BankAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpFetchAccount, 0, http.MethodGet, "accounts"); err != nil {
		return model.BankAccount{}, err
	}
	if f.account == nil {
		return model.BankAccount{}, &remote.StatusError{Method: http.MethodGet, Path: "accounts", StatusCode: http.StatusNotFound}
	}
	return *f.account, nil
}

// UpdateAccount implements engine.AccountRemote.
func (f *FakeRemote) UpdateAccount(ctx context.Context, account model.BankAccount) (model.BankAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := fmt.Sprintf("accounts/%d", account.ID)
	if err := f.begin(ctx, OpUpdateAccount, account.ID, http.MethodPut, path); err != nil {
		return model.BankAccount{}, err
	}
	if f.account == nil || f.account.ID != account.ID {
		return model.BankAccount{}, &remote.StatusError{Method: http.MethodPut, Path: path, StatusCode: http.StatusNotFound}
	}
	f.account = &account
	return account, nil
}

// FetchCategories implements engine.CategoryRemote.
func (f *FakeRemote) FetchCategories(ctx context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpCategories, 0, http.MethodGet, "categories"); err != nil {
		return nil, err
	}
	return append([]model.Category(nil), f.categories...), nil
}

// FetchCategoriesByDirection implements engine.CategoryRemote.
func (f *FakeRemote) FetchCategoriesByDirection(ctx context.Context, dir model.Direction) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "categories/type/" + strconv.FormatBool(dir.IsIncome())
	if err := f.begin(ctx, OpCategoriesDir, 0, http.MethodGet, path); err != nil {
		return nil, err
	}
	return model.FilterCategories(f.categories, dir), nil
}
