package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

func TestEngines_ShareOneSession(t *testing.T) {
	engines := New(testutil.NewFakeRemote(), testutil.NewFlakyStore(testutil.OpenStore(t)), WithLogger(quietLogger()))

	assert.Same(t, engines.Session, engines.Transactions.session)
	assert.Same(t, engines.Session, engines.Accounts.session)
	assert.Same(t, engines.Session, engines.Categories.session)
	assert.Same(t, engines.Replayer, engines.Transactions.replayer)
}

func TestEngines_StartAndStop(t *testing.T) {
	remote := testutil.NewFakeRemote()
	engines := New(remote, testutil.NewFlakyStore(testutil.OpenStore(t)), WithLogger(quietLogger()))

	stop := engines.Start(context.Background())
	_, err := engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	require.NoError(t, err)

	stop()
	select {
	case <-engines.Session.Done():
	case <-time.After(time.Second):
		t.Fatal("session still running after stop")
	}

	_, err = engines.Transactions.FetchTransactions(context.Background(), model.Interval{})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestEngines_QueuedAtUsesSessionClock(t *testing.T) {
	f := newFixture(t)
	f.store.Set(testutil.FaultTransactionWrites, true)

	_, err := f.engines.Transactions.Create(context.Background(), newTx(0, 5, 1))
	require.NoError(t, err)

	ops, err := f.store.Store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].QueuedAt.Equal(testutil.Epoch))
}
