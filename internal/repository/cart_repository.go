package repository

import (
	"context"
	"database/sql"
	"fmt"

	"carrethree/internal/domain"

	"github.com/google/uuid"
)

// CartRepository persists the cart embedded in a user's identity record
type CartRepository interface {
	Lines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	Replace(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) error
	ApplyMerge(ctx context.Context, userID, mergeID uuid.UUID, lines []domain.CartLine) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// Lines returns the user's cart lines in insertion order
func (r *cartRepository) Lines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	query := `
		SELECT product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// Replace overwrites the user's cart in a single transaction, so readers never
// observe a partially written cart. Concurrent writers resolve as last write wins.
func (r *cartRepository) Replace(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cart transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceLines(ctx, tx, userID, lines); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}

	return nil
}

// ApplyMerge records mergeID and writes lines in one transaction. It reports
// false and writes nothing when the user already has a merge with that id.
func (r *cartRepository) ApplyMerge(ctx context.Context, userID, mergeID uuid.UUID, lines []domain.CartLine) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin cart transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO cart_merges (user_id, merge_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, merge_id) DO NOTHING
	`, userID, mergeID)
	if err != nil {
		return false, fmt.Errorf("failed to record cart merge: %w", err)
	}

	recorded, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if recorded == 0 {
		return false, nil
	}

	if err := replaceLines(ctx, tx, userID, lines); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit cart: %w", err)
	}

	return true, nil
}

func replaceLines(ctx context.Context, tx *sql.Tx, userID uuid.UUID, lines []domain.CartLine) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to reset cart: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, position)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cart insert: %w", err)
	}
	defer stmt.Close()

	for i, line := range lines {
		if _, err := stmt.ExecContext(ctx, userID, line.ProductID, line.Quantity, i); err != nil {
			return fmt.Errorf("failed to insert cart line: %w", err)
		}
	}
	return nil
}

// Clear removes every line of the user's cart
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
