package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

// CaseSource é a origem de verdade das caixas (Postgres)
type CaseSource interface {
	GetCase(ctx context.Context, id string) (draw.Case, error)
}

// Cache guarda snapshots de caixa com prêmios no Redis com TTL curto.
// Falha do Redis nunca bloqueia a leitura: cai direto na origem.
type Cache struct {
	R    *redis.Client
	Next CaseSource
	TTL  time.Duration
}

func New(r *redis.Client, next CaseSource, ttl time.Duration) *Cache {
	return &Cache{R: r, Next: next, TTL: ttl}
}

func keyCase(caseID string) string { return "case:" + caseID }

func (c *Cache) GetCase(ctx context.Context, id string) (draw.Case, error) {
	if b, err := c.R.Get(ctx, keyCase(id)).Bytes(); err == nil {
		var cs draw.Case
		if json.Unmarshal(b, &cs) == nil {
			return cs, nil
		}
	}

	cs, err := c.Next.GetCase(ctx, id)
	if err != nil {
		return draw.Case{}, err
	}
	if b, err := json.Marshal(cs); err == nil {
		_ = c.R.Set(ctx, keyCase(id), b, c.TTL).Err()
	}
	return cs, nil
}

// Invalidate remove o snapshot de uma caixa (ex.: após edição administrativa)
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	return c.R.Del(ctx, keyCase(id)).Err()
}
