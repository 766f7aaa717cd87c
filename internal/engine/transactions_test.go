package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

func TestFetch_RemoteAnswerIsMirroredLocally(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(newTx(2, 50, 4), newTx(1, 100, 3))

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, ids(txs))
	assert.Equal(t, []int64{1, 2}, ids(f.local(t)))
	assert.Equal(t, []int64{1, 2}, ids(f.engines.Transactions.View()))
}

func TestFetch_ReconcileNeverOverwritesLocalRows(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, newTx(1, 50, 3))
	f.remote.Seed(newTx(1, 100, 3))

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)

	assert.Equal(t, []string{"100"}, amounts(txs))
	assert.Equal(t, []string{"50"}, amounts(f.local(t)))
}

func TestFetch_ReconcileFailureStillAnswers(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(newTx(1, 100, 3))
	f.store.Set(testutil.FaultTransactionWrites, true)

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(txs))
	assert.Empty(t, f.local(t))
}

func TestFetch_OfflineMergePrefersLocalRows(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, newTx(1, 100, 3))
	f.queueTx(t, model.ActionUpdate, newTx(1, 50, 3))
	f.queueTx(t, model.ActionCreate, newTx(2, 70, 2))
	f.remote.SetOffline(true)

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 1}, ids(txs), "ordered by date")
	assert.Equal(t, []string{"70", "100"}, amounts(txs))
	assert.Len(t, f.pending(t), 2, "entries stay queued while offline")
}

func TestFetch_OfflineMergeRespectsInterval(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, newTx(1, 10, 1), newTx(2, 20, 2), newTx(3, 30, 3))
	f.queueTx(t, model.ActionCreate, newTx(4, 40, 2))
	f.queueTx(t, model.ActionCreate, newTx(5, 50, 5))
	f.remote.SetOffline(true)

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Day(june(2)))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids(txs))
}

func TestFetch_OfflineMergeHidesPendingDeletes(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, newTx(1, 10, 1), newTx(2, 20, 2))
	f.queueTx(t, model.ActionDelete, model.Transaction{ID: 2})
	f.remote.SetOffline(true)

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(txs))
}

func TestFetch_OfflineWithQueuedSnapshotsOnly(t *testing.T) {
	f := newFixture(t)
	f.queueTx(t, model.ActionCreate, newTx(9, 90, 2))
	f.remote.SetOffline(true)

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, ids(txs))
}

func TestFetch_OfflineWithNothingLocalFails(t *testing.T) {
	f := newFixture(t)
	f.remote.SetOffline(true)

	_, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.Error(t, err)
	assert.Equal(t, CodeRemoteUnavailable, CodeOf(err))
	assert.Equal(t, "The server is unreachable. Check your connection and try again.", UserMessage(err))
}

func TestFetch_OfflineEmptyIntervalWithLocalDataIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.seedLocal(t, newTx(1, 10, 1))
	f.remote.SetOffline(true)

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Day(june(20)))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestCreate_LocalFailureQueuesAndDrainsLater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetNextID(42)
	f.store.Set(testutil.FaultTransactionWrites, true)

	created, err := f.engines.Transactions.Create(ctx, newTx(0, 100, 3))
	require.NoError(t, err, "a failed local write must not fail the mutation")
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, []string{"transaction/42 create"}, f.pending(t))
	assert.Empty(t, f.local(t))

	f.store.Heal()
	txs, err := f.engines.Transactions.FetchTransactions(ctx, model.Day(june(3)))
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, ids(txs))
	assert.Equal(t, []int64{42}, ids(f.local(t)))
	assert.Empty(t, f.pending(t))
	assert.Equal(t, 1, f.remote.CallCount(testutil.OpCreate), "replay must not create a second copy")
}

func TestCreate_QueuedCreateVisibleWhileOffline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetNextID(42)
	f.store.Set(testutil.FaultTransactionWrites, true)

	_, err := f.engines.Transactions.Create(ctx, newTx(0, 100, 3))
	require.NoError(t, err)

	f.remote.SetOffline(true)
	txs, err := f.engines.Transactions.FetchTransactions(ctx, model.Interval{})
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids(txs))
}

func TestCreate_RemoteFailureQueuesNothing(t *testing.T) {
	f := newFixture(t)
	f.remote.SetOffline(true)

	_, err := f.engines.Transactions.Create(context.Background(), newTx(0, 100, 3))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Empty(t, f.pending(t))
	assert.Empty(t, f.local(t))
}

func TestCreate_RejectsNegativeAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.engines.Transactions.Create(context.Background(), newTx(0, -5, 3))
	require.Error(t, err)
	assert.Equal(t, CodeRemoteRejected, CodeOf(err))
	assert.ErrorIs(t, err, model.ErrNegativeAmount)
	assert.Zero(t, f.remote.CallCount(testutil.OpCreate))
}

func TestCreate_BothWritesFailStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.store.Set(testutil.FaultTransactionWrites, true)
	f.store.Set(testutil.FaultBackup, true)

	created, err := f.engines.Transactions.Create(context.Background(), newTx(0, 100, 3))
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, ids(f.remote.Transactions()))
	assert.Empty(t, f.pending(t))
}

func TestUpdate_MirrorsLocally(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(newTx(5, 100, 3))
	f.seedLocal(t, newTx(5, 100, 3))

	updated, err := f.engines.Transactions.Update(context.Background(), newTx(5, 300, 3))
	require.NoError(t, err)
	assert.Equal(t, "300", updated.Amount.String())
	assert.Equal(t, []string{"300"}, amounts(f.local(t)))
}

func TestUpdate_MissingLocalRowIsInserted(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(newTx(5, 100, 3))

	_, err := f.engines.Transactions.Update(context.Background(), newTx(5, 300, 3))
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids(f.local(t)))
}

func TestUpdate_SuccessClearsOlderPendingEntry(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(newTx(5, 100, 3))
	f.seedLocal(t, newTx(5, 100, 3))
	f.queueTx(t, model.ActionUpdate, newTx(5, 10, 3))

	_, err := f.engines.Transactions.Update(context.Background(), newTx(5, 300, 3))
	require.NoError(t, err)
	assert.Empty(t, f.pending(t))

	txs, err := f.engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)
	assert.Equal(t, []string{"300"}, amounts(txs))
}

func TestUpdate_LocalFailureThenStaleReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Seed(newTx(5, 100, 3))
	f.seedLocal(t, newTx(5, 100, 3))
	f.store.Set(testutil.FaultTransactionWrites, true)

	_, err := f.engines.Transactions.Update(ctx, newTx(5, 300, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction/5 update"}, f.pending(t))

	f.store.Heal()
	f.remote.Forget(5)
	result, err := f.engines.Transactions.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count(OutcomeStale))
	assert.Empty(t, f.pending(t))
}

func TestUpdate_ReplayedOnceWhileLocalStoreStaysBroken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Seed(newTx(5, 100, 3))
	f.seedLocal(t, newTx(5, 100, 3))
	f.store.Set(testutil.FaultTransactionWrites, true)

	_, err := f.engines.Transactions.Update(ctx, newTx(5, 300, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction/5 update"}, f.pending(t))

	for range 3 {
		txs, err := f.engines.Transactions.FetchTransactions(ctx, model.Day(june(3)))
		require.NoError(t, err)
		assert.Equal(t, []string{"300"}, amounts(txs))
	}

	assert.Empty(t, f.pending(t))
	assert.Equal(t, 2, f.remote.CallCount(testutil.OpUpdate), "one direct call and one replay")
}

func TestUpdate_RemoteNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engines.Transactions.Update(context.Background(), newTx(5, 300, 3))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestDelete_LocalFailureQueuesPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Seed(newTx(7, 100, 3))
	f.seedLocal(t, newTx(7, 100, 3))
	f.store.Set(testutil.FaultTransactionWrites, true)

	require.NoError(t, f.engines.Transactions.Delete(ctx, 7))
	assert.Equal(t, []string{"transaction/7 delete"}, f.pending(t))
	assert.Empty(t, f.remote.Transactions())

	f.store.Heal()
	result, err := f.engines.Transactions.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(OutcomeSynced))
	assert.Empty(t, f.local(t))
	assert.Empty(t, f.pending(t))
}

func TestDelete_MissingLocalRowIsFine(t *testing.T) {
	f := newFixture(t)
	f.remote.Seed(newTx(7, 100, 3))

	require.NoError(t, f.engines.Transactions.Delete(context.Background(), 7))
	assert.Empty(t, f.pending(t))
}

func TestView_FollowsMutations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.Seed(newTx(1, 10, 1))

	_, err := f.engines.Transactions.FetchTransactions(ctx, model.Interval{})
	require.NoError(t, err)

	created, err := f.engines.Transactions.Create(ctx, newTx(0, 20, 2))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, created.ID}, ids(f.engines.Transactions.View()))

	require.NoError(t, f.engines.Transactions.Delete(ctx, 1))
	assert.Equal(t, []int64{created.ID}, ids(f.engines.Transactions.View()))

	view := f.engines.Transactions.View()
	view[0].Amount = decimal.NewFromInt(999)
	assert.Equal(t, "20", f.engines.Transactions.View()[0].Amount.String(), "View returns a copy")
}

// gatedRemote blocks the first Fetch until released.
type gatedRemote struct {
	*testutil.FakeRemote
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedRemote) Fetch(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		<-g.release
	}
	return g.FakeRemote.Fetch(ctx, interval)
}

func TestFetch_OlderRequestIsSuperseded(t *testing.T) {
	remote := &gatedRemote{
		FakeRemote: testutil.NewFakeRemote(),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	remote.Seed(newTx(1, 10, 1))
	engines := New(remote, testutil.NewFlakyStore(testutil.OpenStore(t)), WithLogger(quietLogger()))
	stop := engines.Start(context.Background())
	t.Cleanup(stop)

	firstErr := make(chan error, 1)
	go func() {
		_, err := engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
		firstErr <- err
	}()
	<-remote.started

	secondDone := make(chan []model.Transaction, 1)
	go func() {
		txs, err := engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
		assert.NoError(t, err)
		secondDone <- txs
	}()
	require.Eventually(t, func() bool {
		return engines.Transactions.latestFetch.Load() == 2
	}, time.Second, time.Millisecond)
	close(remote.release)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrSuperseded)
		assert.Equal(t, CodeSuperseded, CodeOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch did not finish")
	}
	select {
	case txs := <-secondDone:
		assert.Equal(t, []int64{1}, ids(txs))
	case <-time.After(2 * time.Second):
		t.Fatal("second fetch did not finish")
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engines.Transactions.FetchTransactions(ctx, model.Interval{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMutations_LocalFailureKeepsLatestActionPerID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetNextID(42)
	f.store.Set(testutil.FaultTransactionWrites, true)

	created, err := f.engines.Transactions.Create(ctx, newTx(0, 100, 3))
	require.NoError(t, err)
	require.Equal(t, int64(42), created.ID)
	assert.Equal(t, []string{"transaction/42 create"}, f.pending(t))

	created.Amount = decimal.NewFromInt(150)
	_, err = f.engines.Transactions.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction/42 update"}, f.pending(t))

	require.NoError(t, f.engines.Transactions.Delete(ctx, 42))
	assert.Equal(t, []string{"transaction/42 delete"}, f.pending(t))
}

func TestMutations_LocalFailureQueuesOneEntryPerID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetNextID(42)
	f.store.Set(testutil.FaultTransactionWrites, true)

	first, err := f.engines.Transactions.Create(ctx, newTx(0, 100, 3))
	require.NoError(t, err)
	second, err := f.engines.Transactions.Create(ctx, newTx(0, 200, 4))
	require.NoError(t, err)
	require.Equal(t, []int64{42, 43}, []int64{first.ID, second.ID})

	first.Amount = decimal.NewFromInt(120)
	_, err = f.engines.Transactions.Update(ctx, first)
	require.NoError(t, err)
	_, err = f.engines.Transactions.Update(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, []string{"transaction/42 update", "transaction/43 create"}, f.pending(t))

	op, err := f.store.Store.ListAll(ctx)
	require.NoError(t, err)
	queued, err := op[0].Transaction()
	require.NoError(t, err)
	assert.Equal(t, "120", queued.Amount.String())
}
