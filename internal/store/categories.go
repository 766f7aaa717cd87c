package store

import (
	"context"
	"fmt"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// Categories returns the whole catalog ordered by id.
// Returns an empty slice (not nil) when the catalog was never stored.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, emoji, is_income
		FROM categories
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	cats := []model.Category{}
	for rows.Next() {
		var (
			c        model.Category
			isIncome int
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Emoji, &isIncome); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Direction = model.DirectionOutcome
		if isIncome == 1 {
			c.Direction = model.DirectionIncome
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// ReplaceCategories swaps the whole catalog for cats in one transaction.
// Readers never observe a partially replaced catalog.
func (s *Store) ReplaceCategories(ctx context.Context, cats []model.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace categories: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
		return fmt.Errorf("replace categories: clear: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO categories (id, name, emoji, is_income)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			emoji = excluded.emoji,
			is_income = excluded.is_income
	`)
	if err != nil {
		return fmt.Errorf("replace categories: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range cats {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Emoji, boolToInt(c.Direction.IsIncome())); err != nil {
			return fmt.Errorf("replace categories: insert %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace categories: commit: %w", err)
	}
	return nil
}
