package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// SyncEngine reconciles transactions between the remote and the local store,
// keeping the backup queue as the safety net for failed local writes.
type SyncEngine struct {
	session  *Session
	remote   TransactionRemote
	local    TransactionStore
	backup   BackupQueue
	replayer *Replayer
	logger   *slog.Logger

	latestFetch atomic.Int64

	mu   sync.RWMutex
	view []model.Transaction
}

// NewSyncEngine wires a transaction engine onto session. The replayer is
// shared with the account engine so both kinds drain in one pass.
func NewSyncEngine(session *Session, remote TransactionRemote, local TransactionStore, backup BackupQueue, replayer *Replayer) *SyncEngine {
	return &SyncEngine{
		session:  session,
		remote:   remote,
		local:    local,
		backup:   backup,
		replayer: replayer,
		logger:   session.logger,
	}
}

// View returns a copy of the transactions from the last successful fetch,
// adjusted by the mutations made since.
func (e *SyncEngine) View() []model.Transaction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.Transaction, len(e.view))
	copy(out, e.view)
	return out
}

// Sync runs a replay pass on its own.
func (e *SyncEngine) Sync(ctx context.Context) (ReplayResult, error) {
	var result ReplayResult
	err := e.session.do(ctx, "sync", func(ctx context.Context) error {
		var err error
		result, err = e.replayer.Replay(ctx)
		return err
	})
	return result, err
}

// FetchTransactions replays the backup queue, then returns the transactions
// inside interval: the remote list when the remote answers, otherwise the
// merge of local rows and queued snapshots.
//
// Returns ErrSuperseded if a newer fetch was issued before this one finished.
func (e *SyncEngine) FetchTransactions(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	seq := e.session.clock.Next()
	e.bumpLatest(seq)

	var out []model.Transaction
	err := e.session.do(ctx, "fetch", func(ctx context.Context) error {
		if e.latestFetch.Load() != seq {
			return ErrSuperseded
		}

		txs, err := e.fetch(ctx, interval)
		if err != nil {
			return err
		}

		if e.latestFetch.Load() != seq {
			e.logger.Debug("fetch superseded", "seq", seq, "latest", e.latestFetch.Load())
			return ErrSuperseded
		}
		e.setView(txs)
		out = txs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// bumpLatest raises latestFetch to seq unless a newer fetch already did.
func (e *SyncEngine) bumpLatest(seq int64) {
	for {
		cur := e.latestFetch.Load()
		if cur >= seq || e.latestFetch.CompareAndSwap(cur, seq) {
			return
		}
	}
}

func (e *SyncEngine) fetch(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	replay, err := e.replayer.Replay(ctx)
	if err != nil {
		e.logger.Warn("replay skipped", "error", err)
	}

	remoteTxs, remoteErr := e.remote.Fetch(ctx, interval)
	if remoteErr == nil {
		e.reconcile(ctx, remoteTxs)
		return remoteTxs, nil
	}

	e.logger.Warn("remote fetch failed, merging local data", "interval", interval.String(), "error", remoteErr)
	merged, ok := e.merge(ctx, interval)
	if !ok {
		return nil, &SyncError{
			Code: Classify(remoteErr, CodeRemoteUnavailable),
			Op:   "fetch",
			Err:  errors.Join(remoteErr, err, replay.Err()),
		}
	}
	return merged, nil
}

// reconcile inserts remote rows that are missing locally. It never deletes
// and never overwrites; local failures are logged, not surfaced.
func (e *SyncEngine) reconcile(ctx context.Context, remoteTxs []model.Transaction) {
	inserted, failed := 0, 0
	for _, tx := range remoteTxs {
		err := e.local.CreateTransaction(ctx, tx)
		switch {
		case err == nil:
			inserted++
		case IsDuplicateID(err):
		default:
			failed++
			e.logger.Debug("reconcile insert failed", "id", tx.ID, "error", err)
		}
	}
	if failed > 0 {
		e.logger.Warn("reconcile left rows unmirrored", "failed", failed, "inserted", inserted)
	}
}

// merge answers a read from local rows plus queued snapshots.
// Local rows win on id collision; ids with a pending delete are hidden.
// ok is false when there is no local data and nothing queued to fall back on.
func (e *SyncEngine) merge(ctx context.Context, interval model.Interval) ([]model.Transaction, bool) {
	hasLocal := false
	localTxs, err := e.local.FetchTransactions(ctx, interval)
	if err != nil {
		e.logger.Warn("local read failed", "error", err)
		localTxs = nil
	} else if n, err := e.local.CountTransactions(ctx); err != nil {
		e.logger.Warn("local count failed", "error", err)
		hasLocal = len(localTxs) > 0
	} else {
		hasLocal = n > 0
	}

	ops, err := e.backup.ListAll(ctx)
	if err != nil {
		e.logger.Warn("backup queue read failed", "error", err)
		ops = nil
	}

	deleted := make(map[int64]bool)
	var queued []model.Transaction
	for _, op := range ops {
		if op.Kind != model.KindTransaction {
			continue
		}
		if op.Action == model.ActionDelete {
			deleted[op.ID] = true
			continue
		}
		tx, err := op.Transaction()
		if err != nil {
			e.logger.Warn("skipping undecodable snapshot", "kind", op.Kind, "id", op.ID, "error", err)
			continue
		}
		queued = append(queued, tx)
	}

	if !hasLocal && len(queued) == 0 {
		return nil, false
	}

	seen := make(map[int64]bool, len(localTxs))
	merged := make([]model.Transaction, 0, len(localTxs)+len(queued))
	for _, tx := range localTxs {
		seen[tx.ID] = true
		if !deleted[tx.ID] {
			merged = append(merged, tx)
		}
	}
	for _, tx := range model.FilterTransactions(queued, interval) {
		if seen[tx.ID] || deleted[tx.ID] {
			continue
		}
		seen[tx.ID] = true
		merged = append(merged, tx)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		return a.ID < b.ID
	})
	return merged, true
}

// Create sends tx to the remote and mirrors the server copy locally.
// A local failure queues the server copy and still reports success.
func (e *SyncEngine) Create(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, &SyncError{Code: CodeRemoteRejected, Op: "create", Kind: model.KindTransaction, ID: tx.ID, Err: err}
	}

	var created model.Transaction
	err := e.session.do(ctx, "create", func(ctx context.Context) error {
		var err error
		created, err = e.remote.Create(ctx, tx)
		if err != nil {
			return remoteError("create", model.KindTransaction, tx.ID, err)
		}

		err = e.local.CreateTransaction(ctx, created)
		if IsDuplicateID(err) {
			err = e.local.SaveTransaction(ctx, created)
		}
		e.afterLocalWrite(ctx, model.ActionCreate, created, err)

		e.mu.Lock()
		e.view = upsertByID(e.view, created)
		e.mu.Unlock()
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return created, nil
}

// Update sends tx to the remote and mirrors the result locally.
func (e *SyncEngine) Update(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, &SyncError{Code: CodeRemoteRejected, Op: "update", Kind: model.KindTransaction, ID: tx.ID, Err: err}
	}

	var updated model.Transaction
	err := e.session.do(ctx, "update", func(ctx context.Context) error {
		var err error
		updated, err = e.remote.Update(ctx, tx)
		if err != nil {
			return remoteError("update", model.KindTransaction, tx.ID, err)
		}

		err = e.local.UpdateTransaction(ctx, updated.ID, updated)
		if IsNotFound(err) {
			err = e.local.SaveTransaction(ctx, updated)
		}
		e.afterLocalWrite(ctx, model.ActionUpdate, updated, err)

		e.mu.Lock()
		for i := range e.view {
			if e.view[i].ID == updated.ID {
				e.view[i] = updated
			}
		}
		e.mu.Unlock()
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return updated, nil
}

// Delete removes the transaction remotely, then locally. A local failure
// queues a placeholder carrying only the id.
func (e *SyncEngine) Delete(ctx context.Context, id int64) error {
	return e.session.do(ctx, "delete", func(ctx context.Context) error {
		if err := e.remote.Delete(ctx, id); err != nil {
			return remoteError("delete", model.KindTransaction, id, err)
		}

		err := e.local.DeleteTransaction(ctx, id)
		if IsNotFound(err) {
			err = nil
		}
		e.afterLocalWrite(ctx, model.ActionDelete, model.Transaction{ID: id}, err)

		e.mu.Lock()
		e.view = removeByID(e.view, id)
		e.mu.Unlock()
		return nil
	})
}

// afterLocalWrite settles the backup queue after the local half of a
// mutation. Success clears any older entry for the id so a stale snapshot
// is never replayed over newer data; failure queues the mutation.
func (e *SyncEngine) afterLocalWrite(ctx context.Context, action model.Action, tx model.Transaction, localErr error) {
	if localErr == nil {
		if err := e.backup.Remove(ctx, model.KindTransaction, tx.ID); err != nil {
			e.logger.Warn("clearing backup entry failed", "kind", model.KindTransaction, "id", tx.ID, "error", err)
		}
		return
	}

	e.logger.Warn("local write failed, queueing for replay",
		"kind", model.KindTransaction, "id", tx.ID, "action", action, "error", localErr)
	op, err := model.NewTransactionOperation(action, tx, e.session.now())
	if err == nil {
		err = e.backup.Upsert(ctx, op)
	}
	if err != nil {
		// the remote already has the change; it will come back on the next fetch
		e.logger.Error("backup queue write failed",
			"kind", model.KindTransaction, "id", tx.ID, "action", action, "error", fmt.Errorf("%w (local: %v)", err, localErr))
	}
}

func (e *SyncEngine) setView(txs []model.Transaction) {
	view := make([]model.Transaction, len(txs))
	copy(view, txs)
	e.mu.Lock()
	e.view = view
	e.mu.Unlock()
}

func upsertByID(txs []model.Transaction, tx model.Transaction) []model.Transaction {
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = tx
			return txs
		}
	}
	return append(txs, tx)
}

func removeByID(txs []model.Transaction, id int64) []model.Transaction {
	out := txs[:0]
	for _, tx := range txs {
		if tx.ID != id {
			out = append(out, tx)
		}
	}
	return out
}
