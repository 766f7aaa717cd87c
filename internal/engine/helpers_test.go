package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func june(day int) time.Time {
	return time.Date(2025, time.June, day, 10, 0, 0, 0, time.UTC)
}

func newTx(id, amount int64, day int) model.Transaction {
	return model.Transaction{
		ID:              id,
		AccountID:       model.Int64(1),
		CategoryID:      model.Int64(2),
		Amount:          decimal.NewFromInt(amount),
		TransactionDate: june(day),
	}
}

func ids(txs []model.Transaction) []int64 {
	out := make([]int64, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

func amounts(txs []model.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Amount.String())
	}
	return out
}

// fixture is a running engine bundle over a fake server and a real SQLite store.
type fixture struct {
	remote  *testutil.FakeRemote
	store   *testutil.FlakyStore
	clock   *testutil.DeterministicClock
	engines *Engines
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		remote: testutil.NewFakeRemote(),
		store:  testutil.NewFlakyStore(testutil.OpenStore(t)),
		clock:  testutil.NewDeterministicClock(),
	}
	f.engines = New(f.remote, f.store,
		WithClock(f.clock),
		WithNow(f.clock.Now),
		WithLogger(quietLogger()),
		WithRequestIDs(testutil.NewFixedRequestIDGenerator("")),
	)
	stop := f.engines.Start(context.Background())
	t.Cleanup(stop)
	return f
}

// queueTx puts a transaction operation straight into the backup table.
func (f *fixture) queueTx(t *testing.T, action model.Action, tx model.Transaction) model.PendingOperation {
	t.Helper()
	op, err := model.NewTransactionOperation(action, tx, testutil.Epoch)
	require.NoError(t, err)
	require.NoError(t, f.store.Store.Upsert(context.Background(), op))
	return op
}

// pending lists the backup queue, bypassing injected faults.
func (f *fixture) pending(t *testing.T) []string {
	t.Helper()
	ops, err := f.store.Store.ListAll(context.Background())
	require.NoError(t, err)
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.String())
	}
	return out
}

// local lists every stored transaction, bypassing injected faults.
func (f *fixture) local(t *testing.T) []model.Transaction {
	t.Helper()
	txs, err := f.store.Store.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)
	return txs
}

// seedLocal writes txs straight into the transaction table.
func (f *fixture) seedLocal(t *testing.T, txs ...model.Transaction) {
	t.Helper()
	for _, tx := range txs {
		require.NoError(t, f.store.Store.CreateTransaction(context.Background(), tx))
	}
}
