// Package billing charges prepaid balances for exam access and guards
// the at-most-one-charge-per-attempt invariant.
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bandmaster/bandmaster/internal/apperr"
	"github.com/bandmaster/bandmaster/internal/db"
)

// Balance is the prepaid-balance collaborator the gate consumes.
type Balance interface {
	HasEnough(ctx context.Context, userID string) (bool, error)
	Deduct(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (float64, error)
	Credit(ctx context.Context, userID string, amount float64) error
}

// SQLBalance keeps balances on the users table. Deduct and Credit do
// the read-modify-write inside one transaction so concurrent top-ups
// and charges for the same user cannot lose updates.
type SQLBalance struct {
	db     *sql.DB
	driver db.Driver
	cost   float64
}

func NewSQLBalance(database *sql.DB, driver db.Driver, examCost float64) *SQLBalance {
	return &SQLBalance{db: database, driver: driver, cost: examCost}
}

func (b *SQLBalance) Cost() float64 { return b.cost }

func (b *SQLBalance) Get(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := b.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id=$1`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("user not found")
	}
	return balance, err
}

func (b *SQLBalance) HasEnough(ctx context.Context, userID string) (bool, error) {
	balance, err := b.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= b.cost, nil
}

func (b *SQLBalance) Deduct(ctx context.Context, userID string) error {
	return b.withBalanceTx(ctx, userID, func(balance float64) (float64, error) {
		if balance < b.cost {
			return 0, apperr.Forbidden(
				"Insufficient balance. You need %.0f to take an exam. Your current balance: %.0f",
				b.cost, balance)
		}
		return balance - b.cost, nil
	})
}

func (b *SQLBalance) Credit(ctx context.Context, userID string, amount float64) error {
	if amount <= 0 {
		return apperr.Invalid("credit amount must be positive")
	}
	return b.withBalanceTx(ctx, userID, func(balance float64) (float64, error) {
		return balance + amount, nil
	})
}

func (b *SQLBalance) withBalanceTx(ctx context.Context, userID string, mutate func(float64) (float64, error)) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `SELECT balance FROM users WHERE id=$1`
	if b.driver == db.DriverPostgres {
		query += ` FOR UPDATE`
	}
	var balance float64
	if err := tx.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user not found")
		}
		return err
	}

	next, err := mutate(balance)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance=$1 WHERE id=$2`, next, userID); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return tx.Commit()
}
