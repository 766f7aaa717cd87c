package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/remote"
)

func sampleTx(id int64, day int) model.Transaction {
	return model.Transaction{
		ID:              id,
		AccountID:       model.Int64(1),
		Amount:          decimal.NewFromInt(100),
		TransactionDate: time.Date(2025, time.June, day, 10, 0, 0, 0, time.UTC),
	}
}

func TestFakeRemote_CreateAssignsIDs(t *testing.T) {
	f := NewFakeRemote()
	f.SetNextID(42)

	created, err := f.Create(context.Background(), sampleTx(0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)

	txs := f.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, int64(42), txs[0].ID)
}

func TestFakeRemote_RepeatedIdempotencyKeyConflicts(t *testing.T) {
	f := NewFakeRemote()
	ctx := model.WithIdempotencyKey(context.Background(), "k1")

	_, err := f.Create(ctx, sampleTx(0, 1))
	require.NoError(t, err)

	_, err = f.Create(ctx, sampleTx(0, 1))
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "DUPLICATE_ID", se.SyncCode())
	assert.Len(t, f.Transactions(), 1)
}

func TestFakeRemote_OfflineAndFailures(t *testing.T) {
	f := NewFakeRemote()
	ctx := context.Background()

	f.SetOffline(true)
	_, err := f.Fetch(ctx, model.Interval{})
	var ne *remote.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, ErrOffline)

	f.SetOffline(false)
	boom := errors.New("boom")
	f.Fail(OpDelete, boom)
	assert.ErrorIs(t, f.Delete(ctx, 1), boom)

	f.Fail(OpDelete, nil)
	var se *remote.StatusError
	require.ErrorAs(t, f.Delete(ctx, 1), &se)
	assert.Equal(t, "NOT_FOUND", se.SyncCode())

	assert.Equal(t, 2, f.CallCount(OpDelete))
	assert.Equal(t, 1, f.CallCount(OpFetch))
}

func TestFakeRemote_FetchFiltersAndSorts(t *testing.T) {
	f := NewFakeRemote()
	f.Seed(sampleTx(3, 2), sampleTx(1, 5), sampleTx(2, 2))

	txs, err := f.Fetch(context.Background(), model.Day(time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(2), txs[0].ID)
	assert.Equal(t, int64(3), txs[1].ID)
}

func TestFakeRemote_RecordsContextValues(t *testing.T) {
	f := NewFakeRemote()
	ctx := model.WithRequestID(model.WithIdempotencyKey(context.Background(), "key"), "req")

	_, _ = f.Create(ctx, sampleTx(0, 1))

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Call{Op: OpCreate, IdempotencyKey: "key", RequestID: "req"}, calls[0])
}

func TestFlakyStore_Faults(t *testing.T) {
	s := NewFlakyStore(OpenStore(t))
	ctx := context.Background()

	s.Set(FaultTransactionWrites, true)
	err := s.CreateTransaction(ctx, sampleTx(1, 1))
	assert.ErrorIs(t, err, ErrDiskFull)

	n, err := s.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	s.Heal()
	require.NoError(t, s.CreateTransaction(ctx, sampleTx(1, 1)))

	s.Set(FaultBackup, true)
	_, err = s.ListAll(ctx)
	assert.ErrorIs(t, err, ErrDiskFull)
}

func TestParseNames(t *testing.T) {
	op, err := ParseOp("update_account")
	require.NoError(t, err)
	assert.Equal(t, OpUpdateAccount, op)
	_, err = ParseOp("patch")
	assert.Error(t, err)

	f, err := ParseFault("backup")
	require.NoError(t, err)
	assert.Equal(t, FaultBackup, f)
	_, err = ParseFault("network")
	assert.Error(t, err)
}
