package rtp

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// PostgresStore guarda a configuração numa única linha (id = 1).
// Toda escrita é um upsert de uma instrução: o banco serializa as escritas
// (last-write-wins) e nenhuma leitura enxerga registro parcial.
type PostgresStore struct{ db *sql.DB }

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const selectConfig = `
	SELECT rtp_target, rtp_recommended, COALESCE(updated_by, ''), updated_at
	FROM rtp_config
	WHERE id = 1`

// Current lê a configuração, criando a linha padrão na primeira chamada
func (p *PostgresStore) Current(ctx context.Context) (Snapshot, error) {
	s, err := scanSnapshot(p.db.QueryRowContext(ctx, selectConfig))
	if err != sql.ErrNoRows {
		return s, err
	}

	if _, err := p.db.ExecContext(ctx, `
		INSERT INTO rtp_config (id, rtp_target, updated_by, updated_at)
		VALUES (1, $1, 'system', NOW())
		ON CONFLICT (id) DO NOTHING`, DefaultTarget); err != nil {
		return Snapshot{}, err
	}
	return scanSnapshot(p.db.QueryRowContext(ctx, selectConfig))
}

// Update valida e grava a configuração, devolvendo o snapshot resultante
func (p *PostgresStore) Update(ctx context.Context, u Update) (Snapshot, error) {
	if err := ValidateUpdate(u); err != nil {
		return Snapshot{}, err
	}

	rec := decimal.NullDecimal{}
	if u.Recommended != nil {
		rec = decimal.NewNullDecimal(*u.Recommended)
	}

	return scanSnapshot(p.db.QueryRowContext(ctx, `
		INSERT INTO rtp_config (id, rtp_target, rtp_recommended, updated_by, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
		  rtp_target      = EXCLUDED.rtp_target,
		  rtp_recommended = EXCLUDED.rtp_recommended,
		  updated_by      = EXCLUDED.updated_by,
		  updated_at      = EXCLUDED.updated_at
		RETURNING rtp_target, rtp_recommended, COALESCE(updated_by, ''), updated_at`,
		u.Target, rec, u.UpdatedBy,
	))
}

func scanSnapshot(row *sql.Row) (Snapshot, error) {
	var s Snapshot
	var rec decimal.NullDecimal
	if err := row.Scan(&s.Target, &rec, &s.UpdatedBy, &s.UpdatedAt); err != nil {
		return Snapshot{}, err
	}
	if rec.Valid {
		v := rec.Decimal
		s.Recommended = &v
	}
	return s, nil
}
