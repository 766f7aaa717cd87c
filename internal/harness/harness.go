package harness

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/kolpmikel/FinanceApp/internal/engine"
	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/remote"
	"github.com/kolpmikel/FinanceApp/internal/store"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

// DefaultRequestID is attached to remote calls when a scenario sets none.
const DefaultRequestID = "test-request"

var allOps = []testutil.Op{
	testutil.OpFetch,
	testutil.OpCreate,
	testutil.OpUpdate,
	testutil.OpDelete,
	testutil.OpFetchAccount,
	testutil.OpUpdateAccount,
	testutil.OpCategories,
	testutil.OpCategoriesDir,
}

var opMethods = map[testutil.Op]string{
	testutil.OpFetch:         http.MethodGet,
	testutil.OpCreate:        http.MethodPost,
	testutil.OpUpdate:        http.MethodPut,
	testutil.OpDelete:        http.MethodDelete,
	testutil.OpFetchAccount:  http.MethodGet,
	testutil.OpUpdateAccount: http.MethodPut,
	testutil.OpCategories:    http.MethodGet,
	testutil.OpCategoriesDir: http.MethodGet,
}

// Harness runs one scenario against real engines, a fake server and a
// SQLite store that can be broken on demand.
type Harness struct {
	remote  *testutil.FakeRemote
	store   *store.Store
	local   *testutil.FlakyStore
	engines *engine.Engines
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh SQLite file in a temp dir. The clock and
// request ids are deterministic, so two runs produce the same trace.
//
// Execution flow:
//  1. Seed the fake server, the store and the backup queue
//  2. Start the engines
//  3. Execute steps, checking each expect clause
//  4. Capture the final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "finance-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "finance.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := &Harness{
		remote: testutil.NewFakeRemote(),
		store:  st,
		local:  testutil.NewFlakyStore(st),
	}
	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	requestID := scenario.RequestID
	if requestID == "" {
		requestID = DefaultRequestID
	}
	clock := testutil.NewDeterministicClock()
	h.engines = engine.New(h.remote, h.local,
		engine.WithClock(clock),
		engine.WithNow(clock.Now),
		engine.WithRequestIDs(testutil.NewFixedRequestIDGenerator(requestID)),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)
	stop := h.engines.Start(ctx)

	result := NewResult()
	for i, step := range scenario.Steps {
		seq := int64(i + 1)
		ids, count, err := h.execute(ctx, step)
		code := CodeOK
		if err != nil {
			code = string(engine.CodeOf(err))
		}
		result.AddTrace(seq, step.Action, code, ids)
		checkExpect(result, i, step, code, ids, count, err)
	}
	stop()

	// The store may still be broken by the last set_local step.
	h.local.Heal()
	state, err := h.capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, seed Seed) error {
	if seed.Account != nil {
		account, err := seed.Account.Account()
		if err != nil {
			return err
		}
		h.remote.SetAccount(account)
	}

	cats := make([]model.Category, 0, len(seed.Categories))
	for _, spec := range seed.Categories {
		c, err := spec.Category()
		if err != nil {
			return err
		}
		cats = append(cats, c)
	}
	h.remote.SetCategories(cats...)

	for _, spec := range seed.Remote {
		tx, err := spec.Transaction()
		if err != nil {
			return err
		}
		h.remote.Seed(tx)
	}
	if seed.NextID > 0 {
		h.remote.SetNextID(seed.NextID)
	}

	for _, spec := range seed.Local {
		tx, err := spec.Transaction()
		if err != nil {
			return err
		}
		if err := h.store.CreateTransaction(ctx, tx); err != nil {
			return err
		}
	}

	for _, q := range seed.Queue {
		tx, err := q.Tx.Transaction()
		if err != nil {
			return err
		}
		op, err := model.NewTransactionOperation(model.Action(q.Action), tx, testutil.Epoch)
		if err != nil {
			return err
		}
		if err := h.store.Upsert(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// execute runs one step. It returns the ids the step produced and the number
// of items it returned.
func (h *Harness) execute(ctx context.Context, step Step) ([]int64, int, error) {
	switch step.Action {
	case ActionCreate:
		tx, err := step.Tx.Transaction()
		if err != nil {
			return nil, 0, err
		}
		created, err := h.engines.Transactions.Create(ctx, tx)
		if err != nil {
			return nil, 0, err
		}
		return []int64{created.ID}, 1, nil

	case ActionUpdate:
		tx, err := step.Tx.Transaction()
		if err != nil {
			return nil, 0, err
		}
		updated, err := h.engines.Transactions.Update(ctx, tx)
		if err != nil {
			return nil, 0, err
		}
		return []int64{updated.ID}, 1, nil

	case ActionDelete:
		return nil, 0, h.engines.Transactions.Delete(ctx, step.ID)

	case ActionFetch:
		interval, err := step.interval()
		if err != nil {
			return nil, 0, err
		}
		txs, err := h.engines.Transactions.FetchTransactions(ctx, interval)
		if err != nil {
			return nil, 0, err
		}
		return transactionIDs(txs), len(txs), nil

	case ActionReplay:
		replayed, err := h.engines.Transactions.Sync(ctx)
		if err != nil {
			return nil, 0, err
		}
		return nil, replayed.Count(engine.OutcomeSynced) + replayed.Count(engine.OutcomeStale), nil

	case ActionAccount:
		account, err := h.engines.Accounts.FetchPrimary(ctx)
		if err != nil {
			return nil, 0, err
		}
		return []int64{account.ID}, 1, nil

	case ActionAccountUpdate:
		account, err := h.engines.Accounts.FetchPrimary(ctx)
		if err != nil {
			return nil, 0, err
		}
		account.Balance = decimal.RequireFromString(step.Balance)
		updated, err := h.engines.Accounts.Update(ctx, account)
		if err != nil {
			return nil, 0, err
		}
		return []int64{updated.ID}, 1, nil

	case ActionCategories:
		var (
			cats []model.Category
			err  error
		)
		if step.Direction == "" {
			cats, err = h.engines.Categories.FetchAll(ctx)
		} else {
			dir, _ := model.ParseDirection(step.Direction)
			cats, err = h.engines.Categories.FetchByDirection(ctx, dir)
		}
		if err != nil {
			return nil, 0, err
		}
		ids := make([]int64, len(cats))
		for i, c := range cats {
			ids[i] = c.ID
		}
		return ids, len(cats), nil

	case ActionSetRemote:
		if step.Offline != nil {
			h.remote.SetOffline(*step.Offline)
		}
		for _, op := range allOps {
			h.remote.Fail(op, nil)
		}
		for name, status := range step.Fail {
			op, _ := testutil.ParseOp(name)
			h.remote.Fail(op, &remote.StatusError{Method: opMethods[op], Path: string(op), StatusCode: status})
		}
		return nil, 0, nil

	case ActionSetLocal:
		h.local.Heal()
		for _, name := range step.Faults {
			f, _ := testutil.ParseFault(name)
			h.local.Set(f, true)
		}
		return nil, 0, nil

	case ActionForget:
		h.remote.Forget(step.ID)
		return nil, 0, nil
	}
	return nil, 0, fmt.Errorf("unknown action %q", step.Action)
}

// checkExpect compares a step outcome with its expect clause. A step without
// one must succeed.
func checkExpect(result *Result, index int, step Step, code string, ids []int64, count int, err error) {
	want := CodeOK
	if step.Expect != nil && step.Expect.Code != "" {
		want = step.Expect.Code
	}
	if code != want {
		msg := fmt.Sprintf("steps[%d] %s: expected code %s, got %s", index, step.Action, want, code)
		if err != nil {
			msg += ": " + err.Error()
		}
		result.AddError(msg)
		return
	}
	if step.Expect == nil {
		return
	}
	if step.Expect.IDs != nil && !slices.Equal(step.Expect.IDs, ids) {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected ids %v, got %v", index, step.Action, step.Expect.IDs, ids))
	}
	if step.Expect.Count != nil && *step.Expect.Count != count {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected count %d, got %d", index, step.Action, *step.Expect.Count, count))
	}
}

// capture reads the final state of the server, the store and the engines.
func (h *Harness) capture(ctx context.Context) (State, error) {
	local, err := h.store.FetchTransactions(ctx, model.Interval{})
	if err != nil {
		return State{}, err
	}
	queue, err := h.store.ListAll(ctx)
	if err != nil {
		return State{}, err
	}

	state := State{
		Local:  canonicalTransactions(local),
		Remote: canonicalTransactions(h.remote.Transactions()),
		Queue:  make([]string, len(queue)),
		View:   transactionIDs(h.engines.Transactions.View()),
		Calls:  make(map[string]int, len(allOps)),
	}
	for i, op := range queue {
		state.Queue[i] = op.String()
	}
	for _, op := range allOps {
		state.Calls[string(op)] = h.remote.CallCount(op)
	}
	return state, nil
}

func canonicalTransactions(txs []model.Transaction) []map[string]any {
	out := make([]map[string]any, len(txs))
	for i, tx := range txs {
		out[i] = tx.CanonicalFields()
	}
	return out
}

func transactionIDs(txs []model.Transaction) []int64 {
	ids := make([]int64, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	return ids
}
