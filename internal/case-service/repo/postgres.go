package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

var ErrNotFound = errors.New("not found")

// Postgres implementa leitura de caixas/prêmios e gravação de aberturas
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de caixas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ListActiveCases lista as caixas ativas ordenadas por preço
func (p *Postgres) ListActiveCases(ctx context.Context) ([]CaseSummary, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, price, COALESCE(image_url, '')
		FROM cases
		WHERE active
		ORDER BY price, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CaseSummary{}
	for rows.Next() {
		var c CaseSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCase carrega a caixa com todos os prêmios (ativos ou não);
// o filtro de elegibilidade fica com o motor de sorteio
func (p *Postgres) GetCase(ctx context.Context, id string) (draw.Case, error) {
	var c draw.Case
	err := p.db.QueryRowContext(ctx, `SELECT id, name, price, active FROM cases WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Price, &c.Active)
	if err == sql.ErrNoRows {
		return draw.Case{}, ErrNotFound
	}
	if err != nil {
		return draw.Case{}, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, value, probability, active, COALESCE(image_url, '')
		FROM prizes
		WHERE case_id=$1
		ORDER BY id`, id)
	if err != nil {
		return draw.Case{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var pr draw.Prize
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Value, &pr.Weight, &pr.Active, &pr.ImageURL); err != nil {
			return draw.Case{}, err
		}
		c.Prizes = append(c.Prizes, pr)
	}
	return c, rows.Err()
}

// InsertOpening grava a abertura junto com a distribuição e o roll usados
func (p *Postgres) InsertOpening(ctx context.Context, o *Opening) error {
	dist, err := json.Marshal(o.Distribution)
	if err != nil {
		return fmt.Errorf("marshal distribution: %w", err)
	}
	// jsonb via string: []byte seria enviado como bytea pelo lib/pq
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO case_openings
		  (id, user_id, case_id, prize_id, prize_name, price, prize_value, rtp_target, roll, distribution)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		o.ID, o.UserID, o.CaseID, o.PrizeID, o.PrizeName, o.Price, o.PrizeValue, o.RTPTarget, o.Roll, string(dist),
	).Scan(&o.CreatedAt)
	return err
}

// GetOpening retorna o registro de auditoria de uma abertura
func (p *Postgres) GetOpening(ctx context.Context, id string) (*Opening, error) {
	var o Opening
	var dist []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, case_id, prize_id, prize_name, price, prize_value, rtp_target, roll, distribution, created_at
		FROM case_openings
		WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.CaseID, &o.PrizeID, &o.PrizeName, &o.Price, &o.PrizeValue, &o.RTPTarget, &o.Roll, &dist, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dist, &o.Distribution); err != nil {
		return nil, fmt.Errorf("decode distribution: %w", err)
	}
	return &o, nil
}
