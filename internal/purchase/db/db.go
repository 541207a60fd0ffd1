package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/models"
)

// DB persists purchase transactions and their payments. Bun is either the
// pool or an open transaction.
type DB struct {
	Bun bun.IDB
}

func New(idb bun.IDB) *DB {
	return &DB{Bun: idb}
}

// WithTx returns a DB bound to tx.
func (d *DB) WithTx(tx bun.IDB) *DB {
	return &DB{Bun: tx}
}

// ---------------- TRANSACTIONS ----------------

func (d *DB) CreateTransaction(ctx context.Context, tx *models.PurchaseTransaction) error {
	_, err := d.Bun.NewInsert().Model(tx).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert purchase transaction: %w", err)
	}
	return nil
}

// GetTransaction returns sql.ErrNoRows (wrapped) when id is unknown.
func (d *DB) GetTransaction(ctx context.Context, id string) (*models.PurchaseTransaction, error) {
	tx := new(models.PurchaseTransaction)
	err := d.Bun.NewSelect().Model(tx).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select purchase transaction %s: %w", id, err)
	}
	return tx, nil
}

// CompleteTransaction moves a pending transaction to completed. It reports
// false when the transaction was no longer pending.
func (d *DB) CompleteTransaction(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().Model((*models.PurchaseTransaction)(nil)).
		Set("status = ?", models.TransactionCompleted).
		Set("completed_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.TransactionPending).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("complete purchase transaction %s: %w", id, err)
	}
	return affected(res)
}

// CancelTransaction moves a pending transaction to cancelled. It reports
// false when the transaction was no longer pending.
func (d *DB) CancelTransaction(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	q := d.Bun.NewUpdate().Model((*models.PurchaseTransaction)(nil)).
		Set("status = ?", models.TransactionCancelled).
		Set("cancelled_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", models.TransactionPending)
	if reason != "" {
		q = q.Set("cancel_reason = ?", reason)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("cancel purchase transaction %s: %w", id, err)
	}
	return affected(res)
}

func (d *DB) SetGatewayReference(ctx context.Context, id, reference string) error {
	_, err := d.Bun.NewUpdate().Model((*models.PurchaseTransaction)(nil)).
		Set("gateway_reference = ?", reference).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set gateway reference on %s: %w", id, err)
	}
	return nil
}

// ---------------- PAYMENTS ----------------

// CreatePayment inserts p unless a payment with the same method and
// external reference exists. It reports whether a row was written.
func (d *DB) CreatePayment(ctx context.Context, p *models.Payment) (bool, error) {
	res, err := d.Bun.NewInsert().Model(p).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert payment for %s: %w", p.TransactionID, err)
	}
	return affected(res)
}

func (d *DB) GetPayments(ctx context.Context, transactionID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().Model(&payments).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select payments for %s: %w", transactionID, err)
	}
	return payments, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func affected(res rowsAffected) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
