package stats

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

const (
	keyGlobal = "stats:rtp:global"
	keyCases  = "stats:rtp:cases"

	fieldOpenings = "openings"
	fieldWagered  = "wagered_cents"
	fieldPayout   = "payout_cents"

	// janela de deduplicação de reentregas do Kafka
	seenTTL = 24 * time.Hour
)

func keyCase(caseID string) string { return "stats:rtp:case:" + caseID }
func keySeen(openingID string) string { return "stats:seen:" + openingID }

// Totals são somas em centavos (inteiros) para não acumular erro de arredondamento
type Totals struct {
	CaseID       string `json:"caseId,omitempty"`
	Openings     int64  `json:"openings"`
	WageredCents int64  `json:"wagered_cents"`
	PayoutCents  int64  `json:"payout_cents"`
}

// RealizedRTP devolve payout/wagered em percentual com 4 casas
func (t Totals) RealizedRTP() decimal.Decimal {
	if t.WageredCents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(t.PayoutCents).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(t.WageredCents), 4)
}

type RedisStats struct {
	R *redis.Client
}

func NewRedisStats(r *redis.Client) *RedisStats { return &RedisStats{R: r} }

// Record soma a abertura nos contadores global e da caixa.
// Devolve false se o openingId já foi contabilizado.
func (s *RedisStats) Record(ctx context.Context, ev events.CaseOpened) (bool, error) {
	fresh, err := s.R.SetNX(ctx, keySeen(ev.OpeningID), 1, seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("stats dedupe: %w", err)
	}
	if !fresh {
		return false, nil
	}

	_, err = s.R.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range []string{keyGlobal, keyCase(ev.CaseID)} {
			p.HIncrBy(ctx, k, fieldOpenings, 1)
			p.HIncrBy(ctx, k, fieldWagered, ev.PriceCents)
			p.HIncrBy(ctx, k, fieldPayout, ev.PrizeValueCents)
		}
		p.SAdd(ctx, keyCases, ev.CaseID)
		return nil
	})
	if err != nil {
		// libera o openingId para a reentrega tentar de novo
		_ = s.R.Del(ctx, keySeen(ev.OpeningID)).Err()
		return false, fmt.Errorf("stats incr: %w", err)
	}
	return true, nil
}

func (s *RedisStats) Global(ctx context.Context) (Totals, error) {
	return s.read(ctx, keyGlobal, "")
}

func (s *RedisStats) ForCase(ctx context.Context, caseID string) (Totals, error) {
	return s.read(ctx, keyCase(caseID), caseID)
}

// PerCase lista os totais de todas as caixas já abertas, ordenados por id
func (s *RedisStats) PerCase(ctx context.Context) ([]Totals, error) {
	ids, err := s.R.SMembers(ctx, keyCases).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	out := make([]Totals, 0, len(ids))
	for _, id := range ids {
		t, err := s.ForCase(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisStats) read(ctx context.Context, key, caseID string) (Totals, error) {
	m, err := s.R.HGetAll(ctx, key).Result()
	if err != nil {
		return Totals{}, err
	}
	return parseTotals(caseID, m)
}

func parseTotals(caseID string, m map[string]string) (Totals, error) {
	t := Totals{CaseID: caseID}
	for field, dst := range map[string]*int64{
		fieldOpenings: &t.Openings,
		fieldWagered:  &t.WageredCents,
		fieldPayout:   &t.PayoutCents,
	} {
		raw, ok := m[field]
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Totals{}, fmt.Errorf("stats field %s: %w", field, err)
		}
		*dst = v
	}
	return t, nil
}
