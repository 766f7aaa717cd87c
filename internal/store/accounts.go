package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// PrimaryAccount returns the stored primary account, or ErrNotFound if the
// account was never mirrored locally. With several rows the lowest id wins.
func (s *Store) PrimaryAccount(ctx context.Context) (model.BankAccount, error) {
	var (
		a                    model.BankAccount
		balance              string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, balance, currency, created_at, updated_at
		FROM bank_accounts
		ORDER BY id ASC
		LIMIT 1
	`).Scan(&a.ID, &a.UserID, &a.Name, &balance, &a.Currency, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BankAccount{}, fmt.Errorf("primary account: %w", ErrNotFound)
	}
	if err != nil {
		return model.BankAccount{}, fmt.Errorf("primary account: %w", err)
	}

	if a.Balance, err = parseDecimal(balance); err != nil {
		return model.BankAccount{}, fmt.Errorf("account %d: %w", a.ID, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.BankAccount{}, fmt.Errorf("account %d: %w", a.ID, err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.BankAccount{}, fmt.Errorf("account %d: %w", a.ID, err)
	}
	return a, nil
}

// SaveAccount inserts the account or overwrites the row with the same id.
func (s *Store) SaveAccount(ctx context.Context, a model.BankAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bank_accounts (id, user_id, name, balance, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			balance = excluded.balance,
			currency = excluded.currency,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`,
		a.ID,
		a.UserID,
		a.Name,
		a.Balance.String(),
		a.Currency,
		formatOptionalTime(a.CreatedAt),
		formatOptionalTime(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save account %d: %w", a.ID, err)
	}
	return nil
}
