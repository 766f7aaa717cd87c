package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// ReplayOutcome is what happened to one pending operation during a pass.
type ReplayOutcome string

const (
	// OutcomeSynced means the remote call succeeded; the entry was removed.
	OutcomeSynced ReplayOutcome = "synced"
	// OutcomeStale means the remote no longer has the entity; the entry was dropped.
	OutcomeStale ReplayOutcome = "stale"
	// OutcomePending means the entry stays queued for the next pass.
	OutcomePending ReplayOutcome = "pending"
)

// ReplayEntry records the outcome for one pending operation.
type ReplayEntry struct {
	Kind    model.Kind
	ID      int64
	Action  model.Action
	Outcome ReplayOutcome
	Err     error
}

// ReplayResult summarizes one replay pass.
type ReplayResult struct {
	Entries []ReplayEntry
}

// Count returns how many entries ended with outcome.
func (r ReplayResult) Count(outcome ReplayOutcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

// Err joins the errors of entries that stayed pending.
func (r ReplayResult) Err() error {
	var errs []error
	for _, e := range r.Entries {
		if e.Err != nil {
			errs = append(errs, e.Err)
		}
	}
	return errors.Join(errs...)
}

// Replayer pushes pending operations from the backup queue to the remote.
//
// Replayer is not safe for concurrent use; the engines only call it from
// inside session jobs.
type Replayer struct {
	txRemote      TransactionRemote
	accountRemote AccountRemote
	txStore       TransactionStore
	accountStore  AccountStore
	backup        BackupQueue
	logger        *slog.Logger
}

// NewReplayer wires a replayer. accountRemote and accountStore may be nil when
// only transactions are queued; account entries then stay pending.
func NewReplayer(txRemote TransactionRemote, accountRemote AccountRemote, txStore TransactionStore, accountStore AccountStore, backup BackupQueue, logger *slog.Logger) *Replayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replayer{
		txRemote:      txRemote,
		accountRemote: accountRemote,
		txStore:       txStore,
		accountStore:  accountStore,
		backup:        backup,
		logger:        logger,
	}
}

// Replay attempts every pending operation in id order. A failing entry does
// not stop the pass. Entries whose remote call succeeded are removed after
// the pass. The local mirror is best effort: a row it misses comes back
// through the reconcile of the next online fetch.
//
// The returned error is non-nil only when the queue itself cannot be read.
func (r *Replayer) Replay(ctx context.Context) (ReplayResult, error) {
	ops, err := r.backup.ListAll(ctx)
	if err != nil {
		return ReplayResult{}, localError("replay", "", 0, fmt.Errorf("list backup queue: %w", err))
	}

	result := ReplayResult{Entries: make([]ReplayEntry, 0, len(ops))}
	for _, op := range ops {
		entry := ReplayEntry{Kind: op.Kind, ID: op.ID, Action: op.Action}
		entry.Outcome, entry.Err = r.replayOne(ctx, op)
		result.Entries = append(result.Entries, entry)
	}

	for i, entry := range result.Entries {
		if entry.Outcome == OutcomePending {
			r.logger.Warn("replay left entry queued",
				"kind", entry.Kind, "id", entry.ID, "action", entry.Action, "error", entry.Err)
			continue
		}
		if err := r.backup.Remove(ctx, entry.Kind, entry.ID); err != nil {
			result.Entries[i].Outcome = OutcomePending
			result.Entries[i].Err = localError("replay", entry.Kind, entry.ID, fmt.Errorf("remove entry: %w", err))
			continue
		}
		r.logger.Info("replayed pending operation",
			"kind", entry.Kind, "id", entry.ID, "action", entry.Action, "outcome", entry.Outcome)
	}

	return result, nil
}

func (r *Replayer) replayOne(ctx context.Context, op model.PendingOperation) (ReplayOutcome, error) {
	ctx = model.WithIdempotencyKey(ctx, op.IdempotencyKey)

	switch op.Kind {
	case model.KindTransaction:
		tx, err := op.Transaction()
		if err != nil {
			return OutcomePending, &SyncError{Code: CodeLocalUnavailable, Op: "replay", Kind: op.Kind, ID: op.ID, Err: err}
		}
		switch op.Action {
		case model.ActionCreate:
			return r.replayCreate(ctx, tx)
		case model.ActionUpdate:
			return r.replayUpdate(ctx, tx)
		case model.ActionDelete:
			return r.replayDelete(ctx, op.ID)
		}

	case model.KindAccount:
		if op.Action != model.ActionUpdate {
			break
		}
		account, err := op.Account()
		if err != nil {
			return OutcomePending, &SyncError{Code: CodeLocalUnavailable, Op: "replay", Kind: op.Kind, ID: op.ID, Err: err}
		}
		return r.replayAccount(ctx, account)
	}

	return OutcomePending, &SyncError{
		Code: CodeRemoteRejected,
		Op:   "replay",
		Kind: op.Kind,
		ID:   op.ID,
		Err:  fmt.Errorf("unsupported action %q", op.Action),
	}
}

// replayCreate checks whether the server already holds the transaction
// before creating it again.
func (r *Replayer) replayCreate(ctx context.Context, tx model.Transaction) (ReplayOutcome, error) {
	existing, err := r.txRemote.Fetch(ctx, model.Day(tx.TransactionDate))
	if err != nil {
		return OutcomePending, remoteError("replay create", model.KindTransaction, tx.ID, err)
	}
	for _, remoteTx := range existing {
		if remoteTx.ID == tx.ID {
			return r.mirrorTransaction(ctx, remoteTx)
		}
	}

	created, err := r.txRemote.Create(ctx, tx)
	switch {
	case err == nil:
		return r.mirrorTransaction(ctx, created)
	case IsDuplicateID(err):
		return r.mirrorTransaction(ctx, tx)
	default:
		return OutcomePending, remoteError("replay create", model.KindTransaction, tx.ID, err)
	}
}

func (r *Replayer) replayUpdate(ctx context.Context, tx model.Transaction) (ReplayOutcome, error) {
	updated, err := r.txRemote.Update(ctx, tx)
	switch {
	case err == nil:
		return r.mirrorTransaction(ctx, updated)
	case IsNotFound(err):
		return OutcomeStale, nil
	default:
		return OutcomePending, remoteError("replay update", model.KindTransaction, tx.ID, err)
	}
}

func (r *Replayer) replayDelete(ctx context.Context, id int64) (ReplayOutcome, error) {
	if err := r.txRemote.Delete(ctx, id); err != nil && !IsNotFound(err) {
		return OutcomePending, remoteError("replay delete", model.KindTransaction, id, err)
	}
	if err := r.txStore.DeleteTransaction(ctx, id); err != nil && !IsNotFound(err) {
		r.logger.Warn("replay mirror failed", "kind", model.KindTransaction, "id", id, "action", model.ActionDelete, "error", err)
	}
	return OutcomeSynced, nil
}

func (r *Replayer) replayAccount(ctx context.Context, account model.BankAccount) (ReplayOutcome, error) {
	if r.accountRemote == nil {
		return OutcomePending, &SyncError{Code: CodeRemoteUnavailable, Op: "replay update", Kind: model.KindAccount, ID: account.ID, Err: errors.New("account sync not configured")}
	}
	updated, err := r.accountRemote.UpdateAccount(ctx, account)
	switch {
	case err == nil:
	case IsNotFound(err):
		return OutcomeStale, nil
	default:
		return OutcomePending, remoteError("replay update", model.KindAccount, account.ID, err)
	}
	if r.accountStore == nil {
		return OutcomeSynced, nil
	}
	if err := r.accountStore.SaveAccount(ctx, updated); err != nil {
		r.logger.Warn("replay mirror failed", "kind", model.KindAccount, "id", account.ID, "error", err)
	}
	return OutcomeSynced, nil
}

func (r *Replayer) mirrorTransaction(ctx context.Context, tx model.Transaction) (ReplayOutcome, error) {
	if err := r.txStore.SaveTransaction(ctx, tx); err != nil {
		r.logger.Warn("replay mirror failed", "kind", model.KindTransaction, "id", tx.ID, "error", err)
	}
	return OutcomeSynced, nil
}
