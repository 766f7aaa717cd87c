package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// AccountSyncEngine keeps the primary bank account in sync.
// It shares the session and backup queue with the transaction engine.
type AccountSyncEngine struct {
	session *Session
	remote  AccountRemote
	local   AccountStore
	backup  BackupQueue
	logger  *slog.Logger
}

// NewAccountSyncEngine wires an account engine onto session.
func NewAccountSyncEngine(session *Session, remote AccountRemote, local AccountStore, backup BackupQueue) *AccountSyncEngine {
	return &AccountSyncEngine{
		session: session,
		remote:  remote,
		local:   local,
		backup:  backup,
		logger:  session.logger,
	}
}

// FetchPrimary prefers the local copy. On a local miss or failure it asks
// the remote and mirrors the answer; a successful mirror clears any pending
// account entry.
func (e *AccountSyncEngine) FetchPrimary(ctx context.Context) (model.BankAccount, error) {
	var account model.BankAccount
	err := e.session.do(ctx, "account fetch", func(ctx context.Context) error {
		local, localErr := e.local.PrimaryAccount(ctx)
		if localErr == nil {
			account = local
			return nil
		}
		if !IsNotFound(localErr) {
			e.logger.Warn("local account read failed", "error", localErr)
		}

		remote, err := e.remote.FetchPrimary(ctx)
		if err != nil {
			return &SyncError{Code: Classify(err, CodeRemoteUnavailable), Op: "fetch", Kind: model.KindAccount, Err: errors.Join(err, localErr)}
		}
		account = remote

		if err := e.local.SaveAccount(ctx, remote); err != nil {
			e.logger.Warn("mirroring account failed", "id", remote.ID, "error", err)
			return nil
		}
		if err := e.backup.Remove(ctx, model.KindAccount, remote.ID); err != nil {
			e.logger.Warn("clearing backup entry failed", "kind", model.KindAccount, "id", remote.ID, "error", err)
		}
		return nil
	})
	if err != nil {
		return model.BankAccount{}, err
	}
	return account, nil
}

// Update sends the account to the remote, then saves the server copy
// locally. A local failure queues an account update and still succeeds.
func (e *AccountSyncEngine) Update(ctx context.Context, account model.BankAccount) (model.BankAccount, error) {
	var updated model.BankAccount
	err := e.session.do(ctx, "account update", func(ctx context.Context) error {
		var err error
		updated, err = e.remote.UpdateAccount(ctx, account)
		if err != nil {
			return remoteError("update", model.KindAccount, account.ID, err)
		}

		if localErr := e.local.SaveAccount(ctx, updated); localErr != nil {
			e.logger.Warn("local write failed, queueing for replay",
				"kind", model.KindAccount, "id", updated.ID, "action", model.ActionUpdate, "error", localErr)
			op, err := model.NewAccountOperation(model.ActionUpdate, updated, e.session.now())
			if err == nil {
				err = e.backup.Upsert(ctx, op)
			}
			if err != nil {
				e.logger.Error("backup queue write failed", "kind", model.KindAccount, "id", updated.ID, "error", err)
			}
			return nil
		}

		if err := e.backup.Remove(ctx, model.KindAccount, updated.ID); err != nil {
			e.logger.Warn("clearing backup entry failed", "kind", model.KindAccount, "id", updated.ID, "error", err)
		}
		return nil
	})
	if err != nil {
		return model.BankAccount{}, err
	}
	return updated, nil
}
