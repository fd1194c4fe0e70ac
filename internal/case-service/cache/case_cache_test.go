package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/slotbox-platform-poc/internal/case-service/repo"
	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

type countingSource struct {
	calls int
	cases map[string]draw.Case
}

func (s *countingSource) GetCase(_ context.Context, id string) (draw.Case, error) {
	s.calls++
	if c, ok := s.cases[id]; ok {
		return c, nil
	}
	return draw.Case{}, repo.ErrNotFound
}

// redis inexistente: todo Get falha rápido
func deadRedis(t *testing.T) *redis.Client {
	t.Helper()
	r := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestCache_FallsBackToSourceWhenRedisIsDown(t *testing.T) {
	src := &countingSource{cases: map[string]draw.Case{
		"starter": {ID: "starter", Name: "Starter", Price: decimal.RequireFromString("1.50"), Active: true},
	}}
	c := New(deadRedis(t), src, 30*time.Second)

	got, err := c.GetCase(context.Background(), "starter")
	require.NoError(t, err)
	assert.Equal(t, "Starter", got.Name)
	assert.Equal(t, 1, src.calls)

	_, err = c.GetCase(context.Background(), "ghost")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestKeyCase(t *testing.T) {
	assert.Equal(t, "case:starter", keyCase("starter"))
}
