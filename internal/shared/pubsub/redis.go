package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisBroadcaster struct {
	r *redis.Client
}

func NewRedisBroadcaster(r *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{r: r}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.r.Publish(ctx, channel, payload).Err()
}

// Listen assina o canal numa goroutine e chama fn para cada mensagem,
// até o contexto ser cancelado
func Listen(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, fn func(payload []byte)) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		log.Info("redis subscriber started", zap.String("channel", channel))
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("redis subscription closed", zap.String("channel", channel))
					return
				}
				fn([]byte(msg.Payload))
			}
		}
	}()
}
