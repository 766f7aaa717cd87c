package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/testutil"
)

func mainAccount(balance int64) model.BankAccount {
	return model.BankAccount{
		ID:       1,
		UserID:   7,
		Name:     "Main",
		Balance:  decimal.NewFromInt(balance),
		Currency: "RUB",
	}
}

func TestAccount_FetchPrefersLocalCopy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Store.SaveAccount(context.Background(), mainAccount(10)))
	f.remote.SetOffline(true)

	account, err := f.engines.Accounts.FetchPrimary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10", account.Balance.String())
	assert.Empty(t, f.remote.Calls())
}

func TestAccount_FetchMissMirrorsRemote(t *testing.T) {
	f := newFixture(t)
	f.remote.SetAccount(mainAccount(250))

	account, err := f.engines.Accounts.FetchPrimary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Main", account.Name)

	local, err := f.store.Store.PrimaryAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "250", local.Balance.String())
}

func TestAccount_FetchLocalFailureFallsBackToRemote(t *testing.T) {
	f := newFixture(t)
	f.remote.SetAccount(mainAccount(250))
	f.store.Set(testutil.FaultAccounts, true)

	account, err := f.engines.Accounts.FetchPrimary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)
}

func TestAccount_FetchFailsWithoutAnyCopy(t *testing.T) {
	f := newFixture(t)
	f.remote.SetOffline(true)

	_, err := f.engines.Accounts.FetchPrimary(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeRemoteUnavailable, CodeOf(err))
}

func TestAccount_Update(t *testing.T) {
	f := newFixture(t)
	f.remote.SetAccount(mainAccount(10))

	updated, err := f.engines.Accounts.Update(context.Background(), mainAccount(99))
	require.NoError(t, err)
	assert.Equal(t, "99", updated.Balance.String())

	local, err := f.store.Store.PrimaryAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "99", local.Balance.String())
	assert.Empty(t, f.pending(t))
}

func TestAccount_UpdateLocalFailureQueuesAndReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SetAccount(mainAccount(10))
	f.store.Set(testutil.FaultAccounts, true)

	_, err := f.engines.Accounts.Update(ctx, mainAccount(99))
	require.NoError(t, err)
	assert.Equal(t, []string{"account/1 update"}, f.pending(t))

	f.store.Heal()
	result, err := f.engines.Transactions.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count(OutcomeSynced))

	local, err := f.store.Store.PrimaryAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "99", local.Balance.String())
	assert.Empty(t, f.pending(t))
}

func TestAccount_UpdateRemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.remote.SetAccount(mainAccount(10))
	f.remote.SetOffline(true)

	_, err := f.engines.Accounts.Update(context.Background(), mainAccount(99))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Empty(t, f.pending(t))
}
