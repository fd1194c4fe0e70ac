package stats

import (
	"context"
	"database/sql"

	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

// upsertStatsSQL só soma se o openingId ainda não estiver em case_rtp_stats_seen
const upsertStatsSQL = `
	WITH seen AS (
		INSERT INTO case_rtp_stats_seen (opening_id, case_id)
		VALUES ($4, $1)
		ON CONFLICT (opening_id) DO NOTHING
		RETURNING opening_id
	)
	INSERT INTO case_rtp_stats (case_id, openings, wagered_cents, payout_cents, last_opening_id, updated_at)
	SELECT $1, 1, $2, $3, opening_id, now() FROM seen
	ON CONFLICT (case_id) DO UPDATE SET
	  openings        = case_rtp_stats.openings + 1,
	  wagered_cents   = case_rtp_stats.wagered_cents + EXCLUDED.wagered_cents,
	  payout_cents    = case_rtp_stats.payout_cents + EXCLUDED.payout_cents,
	  last_opening_id = EXCLUDED.last_opening_id,
	  updated_at      = now()
`

// PostgresStats mantém o acumulado durável por caixa (case_rtp_stats)
type PostgresStats struct {
	DB *sql.DB
}

func NewPostgresStats(db *sql.DB) *PostgresStats { return &PostgresStats{DB: db} }

// Upsert soma a abertura; devolve false quando ela já tinha sido contabilizada
func (p *PostgresStats) Upsert(ctx context.Context, ev events.CaseOpened) (bool, error) {
	res, err := p.DB.ExecContext(ctx, upsertStatsSQL, ev.CaseID, ev.PriceCents, ev.PrizeValueCents, ev.OpeningID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
