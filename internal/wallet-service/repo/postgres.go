package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

const (
	statusPending   = "PENDING"
	statusCommitted = "COMMITTED"
	statusRefunded  = "REFUNDED"
)

// Postgres guarda carteiras, reservas e o ledger em centavos
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetOrCreateWallet devolve a carteira do usuário, criando com saldo zero
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (string, int64, error) {
	var id string
	var bal int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO wallets (id, user_id, balance_cents, version) VALUES ($1, $2, 0, 1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, balance_cents`, uuid.New().String(), userID).Scan(&id, &bal)
	return id, bal, err
}

// Deposit credita saldo; externalRef repetido não credita duas vezes
func (p *Postgres) Deposit(ctx context.Context, userID string, amount int64, externalRef string) (string, int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	walletID, bal, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return "", 0, err
	}

	desc := "deposit:" + externalRef
	if externalRef != "" {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM wallet_ledger WHERE wallet_id=$1 AND description=$2`, walletID, desc).Scan(&n); err != nil {
			return "", 0, err
		}
		if n > 0 {
			return walletID, bal, tx.Commit()
		}
	}

	if err := tx.QueryRowContext(ctx, `
		UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1
		WHERE id=$2 RETURNING balance_cents`, amount, walletID).Scan(&bal); err != nil {
		return "", 0, err
	}
	if err := ledger(ctx, tx, walletID, "CREDIT", amount, desc); err != nil {
		return "", 0, err
	}
	return walletID, bal, tx.Commit()
}

// Reserve bloqueia o valor (debita já) e cria a reserva PENDING.
// Idempotente por (wallet_id, external_ref).
func (p *Postgres) Reserve(ctx context.Context, userID string, amount int64, externalRef string) (string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	walletID, bal, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return "", err
	}

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM wallet_reservations WHERE wallet_id=$1 AND external_ref=$2`, walletID, externalRef).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if bal < amount {
		return "", ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = balance_cents - $1, version = version + 1 WHERE id=$2`, amount, walletID); err != nil {
		return "", err
	}
	resID := uuid.New().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_reservations (id, wallet_id, external_ref, amount_cents, status)
		VALUES ($1, $2, $3, $4, $5)`, resID, walletID, externalRef, amount, statusPending); err != nil {
		return "", err
	}
	if err := ledger(ctx, tx, walletID, "RESERVE", amount, "reserve:"+externalRef); err != nil {
		return "", err
	}
	return resID, tx.Commit()
}

// Commit efetiva a reserva; já efetivada ou estornada não muda nada
func (p *Postgres) Commit(ctx context.Context, userID, externalRef string) error {
	return p.settle(ctx, userID, externalRef, statusCommitted)
}

// Refund estorna a reserva devolvendo o saldo
func (p *Postgres) Refund(ctx context.Context, userID, externalRef string) error {
	return p.settle(ctx, userID, externalRef, statusRefunded)
}

func (p *Postgres) settle(ctx context.Context, userID, externalRef, to string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var resID, walletID, status string
	var amount int64
	err = tx.QueryRowContext(ctx, `
		SELECT wr.id, wr.wallet_id, wr.amount_cents, wr.status
		FROM wallet_reservations wr
		JOIN wallets w ON w.id = wr.wallet_id
		WHERE w.user_id=$1 AND wr.external_ref=$2
		FOR UPDATE OF wr`, userID, externalRef).Scan(&resID, &walletID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != statusPending {
		return nil
	}

	if to == statusRefunded {
		if _, err := tx.ExecContext(ctx,
			`UPDATE wallets SET balance_cents = balance_cents + $1, version = version + 1 WHERE id=$2`, amount, walletID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE wallet_reservations SET status=$1 WHERE id=$2`, to, resID); err != nil {
		return err
	}

	op, prefix := "DEBIT", "commit:"
	if to == statusRefunded {
		op, prefix = "REFUND", "refund:"
	}
	if err := ledger(ctx, tx, walletID, op, amount, prefix+externalRef); err != nil {
		return err
	}
	return tx.Commit()
}

func lockWallet(ctx context.Context, tx *sql.Tx, userID string) (string, int64, error) {
	var id string
	var bal int64
	err := tx.QueryRowContext(ctx,
		`SELECT id, balance_cents FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id, &bal)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, fmt.Errorf("lock wallet: %w", err)
	}
	return id, bal, nil
}

func ledger(ctx context.Context, tx *sql.Tx, walletID, op string, amount int64, desc string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (wallet_id, operation_type, amount_cents, description)
		VALUES ($1, $2, $3, $4)`, walletID, op, amount, desc)
	return err
}
