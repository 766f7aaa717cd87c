package engine

import (
	"context"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// TransactionRemote is the server side of transactions.
type TransactionRemote interface {
	Fetch(ctx context.Context, interval model.Interval) ([]model.Transaction, error)
	Create(ctx context.Context, tx model.Transaction) (model.Transaction, error)
	Update(ctx context.Context, tx model.Transaction) (model.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

// AccountRemote is the server side of the primary account.
type AccountRemote interface {
	FetchPrimary(ctx context.Context) (model.BankAccount, error)
	UpdateAccount(ctx context.Context, account model.BankAccount) (model.BankAccount, error)
}

// CategoryRemote is the server side of the category catalog.
type CategoryRemote interface {
	FetchCategories(ctx context.Context) ([]model.Category, error)
	FetchCategoriesByDirection(ctx context.Context, dir model.Direction) ([]model.Category, error)
}

// RemoteService bundles every remote surface. Implemented by remote.Client.
type RemoteService interface {
	TransactionRemote
	AccountRemote
	CategoryRemote
}

// TransactionStore is the on-device transaction table.
//
// CreateTransaction reports an error classified DUPLICATE_ID when the id
// exists; UpdateTransaction and DeleteTransaction report NOT_FOUND.
type TransactionStore interface {
	FetchTransactions(ctx context.Context, interval model.Interval) ([]model.Transaction, error)
	CountTransactions(ctx context.Context) (int, error)
	CreateTransaction(ctx context.Context, tx model.Transaction) error
	UpdateTransaction(ctx context.Context, id int64, tx model.Transaction) error
	SaveTransaction(ctx context.Context, tx model.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// AccountStore is the on-device copy of the primary account.
// PrimaryAccount reports NOT_FOUND when nothing was mirrored yet.
type AccountStore interface {
	PrimaryAccount(ctx context.Context) (model.BankAccount, error)
	SaveAccount(ctx context.Context, account model.BankAccount) error
}

// CategoryStore is the on-device category catalog.
type CategoryStore interface {
	Categories(ctx context.Context) ([]model.Category, error)
	ReplaceCategories(ctx context.Context, cats []model.Category) error
}

// BackupQueue durably holds mutations that reached the remote but not the
// local store. At most one entry per (kind, id).
type BackupQueue interface {
	Upsert(ctx context.Context, op model.PendingOperation) error
	Remove(ctx context.Context, kind model.Kind, id int64) error
	ListAll(ctx context.Context) ([]model.PendingOperation, error)
}

// LocalStore bundles every local surface. Implemented by store.Store.
type LocalStore interface {
	TransactionStore
	AccountStore
	CategoryStore
	BackupQueue
}
