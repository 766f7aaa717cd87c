package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind names the entity a pending operation belongs to.
// Transaction ids and account ids come from separate server sequences, so the
// queue key is always the (Kind, ID) pair.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindAccount     Kind = "account"
)

// Action is the mutation a pending operation replays.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction validates a stored action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCreate, ActionUpdate, ActionDelete:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// ParseKind validates a stored kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTransaction, KindAccount:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// PendingOperation is a mutation that reached the remote but not the local
// store, waiting in the backup queue to be replayed.
type PendingOperation struct {
	Kind           Kind
	ID             int64
	Action         Action
	Snapshot       []byte // canonical JSON of the subject at enqueue time
	IdempotencyKey string
	QueuedAt       time.Time
}

// NewTransactionOperation builds a pending operation carrying a canonical
// snapshot of tx.
func NewTransactionOperation(action Action, tx Transaction, queuedAt time.Time) (PendingOperation, error) {
	snapshot, err := MarshalCanonical(tx.CanonicalFields())
	if err != nil {
		return PendingOperation{}, fmt.Errorf("snapshot transaction %d: %w", tx.ID, err)
	}
	return newOperation(KindTransaction, tx.ID, action, snapshot, queuedAt), nil
}

// NewAccountOperation builds a pending operation carrying a canonical
// snapshot of the account.
func NewAccountOperation(action Action, account BankAccount, queuedAt time.Time) (PendingOperation, error) {
	snapshot, err := MarshalCanonical(account.CanonicalFields())
	if err != nil {
		return PendingOperation{}, fmt.Errorf("snapshot account %d: %w", account.ID, err)
	}
	return newOperation(KindAccount, account.ID, action, snapshot, queuedAt), nil
}

func newOperation(kind Kind, id int64, action Action, snapshot []byte, queuedAt time.Time) PendingOperation {
	return PendingOperation{
		Kind:           kind,
		ID:             id,
		Action:         action,
		Snapshot:       snapshot,
		IdempotencyKey: IdempotencyKey(kind, id, action, snapshot),
		QueuedAt:       queuedAt,
	}
}

// Transaction decodes the snapshot of a transaction operation.
func (op PendingOperation) Transaction() (Transaction, error) {
	if op.Kind != KindTransaction {
		return Transaction{}, fmt.Errorf("pending %s %d is not a transaction", op.Kind, op.ID)
	}
	var tx Transaction
	if err := json.Unmarshal(op.Snapshot, &tx); err != nil {
		return Transaction{}, fmt.Errorf("decode snapshot %s %d: %w", op.Kind, op.ID, err)
	}
	return tx, nil
}

// Account decodes the snapshot of an account operation.
func (op PendingOperation) Account() (BankAccount, error) {
	if op.Kind != KindAccount {
		return BankAccount{}, fmt.Errorf("pending %s %d is not an account", op.Kind, op.ID)
	}
	var account BankAccount
	if err := json.Unmarshal(op.Snapshot, &account); err != nil {
		return BankAccount{}, fmt.Errorf("decode snapshot %s %d: %w", op.Kind, op.ID, err)
	}
	return account, nil
}

func (op PendingOperation) String() string {
	return fmt.Sprintf("%s/%d %s", op.Kind, op.ID, op.Action)
}

// CanonicalFields returns the snapshot representation of t. Nil optionals and
// zero dates are omitted.
func (t Transaction) CanonicalFields() map[string]any {
	fields := map[string]any{
		"id":     t.ID,
		"amount": t.Amount,
	}
	if t.AccountID != nil {
		fields["accountId"] = *t.AccountID
	}
	if t.CategoryID != nil {
		fields["categoryId"] = *t.CategoryID
	}
	if t.Comment != nil {
		fields["comment"] = *t.Comment
	}
	putTime(fields, "transactionDate", t.TransactionDate)
	putTime(fields, "createdAt", t.CreatedAt)
	putTime(fields, "updatedAt", t.UpdatedAt)
	return fields
}

// CanonicalFields returns the snapshot representation of a.
func (a BankAccount) CanonicalFields() map[string]any {
	fields := map[string]any{
		"id":       a.ID,
		"userId":   a.UserID,
		"name":     a.Name,
		"balance":  a.Balance,
		"currency": a.Currency,
	}
	putTime(fields, "createdAt", a.CreatedAt)
	putTime(fields, "updatedAt", a.UpdatedAt)
	return fields
}

func putTime(fields map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		fields[key] = t
	}
}
