package producer

import (
	"context"
	"time"

	"github.com/radieske/slotbox-platform-poc/internal/shared/kafka"
	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// PublishCaseOpened publica a abertura com chave caseId
func (p *KafkaPublisher) PublishCaseOpened(ctx context.Context, e events.CaseOpened) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	return kafka.WriteJSON(ctx, p.Writer, e.CaseID, e)
}
