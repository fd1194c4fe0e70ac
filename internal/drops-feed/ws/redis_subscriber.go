package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/internal/shared/pubsub"
	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

// StartRedisSubscriber repassa ao hub cada drop publicado no canal pelo processor
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	pubsub.Listen(ctx, log, r, channel, func(payload []byte) {
		hub.HandlePayload(log, payload)
	})
}

// HandlePayload decodifica uma mensagem do canal e faz o broadcast
func (h *Hub) HandlePayload(log *zap.Logger, payload []byte) {
	var d events.Drop
	if err := json.Unmarshal(payload, &d); err != nil {
		log.Warn("drop unmarshal failed", zap.Error(err))
		return
	}
	h.Broadcast(d)
}
