package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

const transactionColumns = `id, account_id, category_id, amount, transaction_date, comment, created_at, updated_at`

// FetchTransactions returns the transactions whose date lies inside interval,
// ordered by transaction_date then id. A zero interval returns every row.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) FetchTransactions(ctx context.Context, interval model.Interval) ([]model.Transaction, error) {
	var where []string
	var args []any
	if !interval.Start.IsZero() {
		where = append(where, "transaction_date >= ?")
		args = append(args, formatTime(interval.Start))
	}
	if !interval.End.IsZero() {
		where = append(where, "transaction_date <= ?")
		args = append(args, formatTime(interval.End))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY transaction_date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []model.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// GetTransaction returns a single transaction by id, or ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, id int64) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Transaction{}, fmt.Errorf("get transaction %d: %w", id, ErrNotFound)
	}
	return tx, err
}

// CountTransactions returns the number of locally stored transactions.
func (s *Store) CountTransactions(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// CreateTransaction inserts tx. Returns ErrDuplicateID if tx.ID is already stored;
// the existing row is left untouched.
func (s *Store) CreateTransaction(ctx context.Context, tx model.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, transactionArgs(tx)...)
	if err != nil {
		return fmt.Errorf("create transaction %d: %w", tx.ID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("create transaction %d: %w", tx.ID, err)
	} else if n == 0 {
		return fmt.Errorf("create transaction %d: %w", tx.ID, ErrDuplicateID)
	}
	return nil
}

// UpdateTransaction replaces the row with the given id by tx.
// Returns ErrNotFound if no such row exists.
func (s *Store) UpdateTransaction(ctx context.Context, id int64, tx model.Transaction) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET id = ?, account_id = ?, category_id = ?, amount = ?, transaction_date = ?,
		    comment = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, append(transactionArgs(tx), id)...)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("update transaction %d", id))
}

// SaveTransaction inserts tx or overwrites the row with the same id.
func (s *Store) SaveTransaction(ctx context.Context, tx model.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id = excluded.account_id,
			category_id = excluded.category_id,
			amount = excluded.amount,
			transaction_date = excluded.transaction_date,
			comment = excluded.comment,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, transactionArgs(tx)...)
	if err != nil {
		return fmt.Errorf("save transaction %d: %w", tx.ID, err)
	}
	return nil
}

// DeleteTransaction removes the row with the given id.
// Returns ErrNotFound if no such row exists.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("delete transaction %d", id))
}

func transactionArgs(tx model.Transaction) []any {
	return []any{
		tx.ID,
		nullableInt64(tx.AccountID),
		nullableInt64(tx.CategoryID),
		tx.Amount.String(),
		formatTime(tx.TransactionDate),
		nullableString(tx.Comment),
		formatOptionalTime(tx.CreatedAt),
		formatOptionalTime(tx.UpdatedAt),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		tx                   model.Transaction
		accountID, category  sql.NullInt64
		comment              sql.NullString
		amount, date         string
		createdAt, updatedAt string
	)
	if err := row.Scan(&tx.ID, &accountID, &category, &amount, &date, &comment, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, err
		}
		return model.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	var err error
	if tx.Amount, err = parseDecimal(amount); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	if tx.TransactionDate, err = parseTime(date); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	if tx.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	if tx.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	tx.AccountID = int64Ptr(accountID)
	tx.CategoryID = int64Ptr(category)
	tx.Comment = stringPtr(comment)
	return tx, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
