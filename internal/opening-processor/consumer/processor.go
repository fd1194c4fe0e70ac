package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

var errMissingFields = errors.New("case_opened without opening_id or case_id")

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type StatsRecorder interface {
	Record(ctx context.Context, ev events.CaseOpened) (bool, error)
}

type StatsPersister interface {
	Upsert(ctx context.Context, ev events.CaseOpened) (bool, error)
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Processor consome case_opened, atualiza o RTP realizado e alimenta o feed de drops
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	DLQ         MessageWriter
	Stats       StatsRecorder
	Durable     StatsPersister
	Broadcaster Broadcaster
	DropChannel string

	OnConsumed  func()
	OnDuplicate func()
	OnRecorded  func()
	OnPersist   func()
	OnBroadcast func()
	OnDLQ       func()
	OnError     func(stage string)

	retryDelay time.Duration
}

// Run processa mensagens até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	delay := p.retryDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}
		p.handle(ctx, m)
	}
}

func (p *Processor) handle(ctx context.Context, m kafka.Message) {
	var ev events.CaseOpened
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.deadLetter(ctx, m, err)
		return
	}
	if ev.OpeningID == "" || ev.CaseID == "" {
		p.deadLetter(ctx, m, errMissingFields)
		return
	}

	fresh, err := p.Stats.Record(ctx, ev)
	if err != nil {
		p.Log.Warn("redis stats failed", zap.String("openingId", ev.OpeningID), zap.Error(err))
		p.fail("stats")
	}
	if err == nil && !fresh {
		// reentrega: já contabilizado e já anunciado
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return
	}
	if err == nil && p.OnRecorded != nil {
		p.OnRecorded()
	}

	redisDown := err != nil
	applied, err := p.Durable.Upsert(ctx, ev)
	switch {
	case err != nil:
		p.Log.Warn("db upsert failed", zap.String("caseId", ev.CaseID), zap.Error(err))
		p.fail("db_upsert")
	case applied:
		if p.OnPersist != nil {
			p.OnPersist()
		}
	case redisDown:
		// sem o redis, o banco é quem reconhece a reentrega
		if p.OnDuplicate != nil {
			p.OnDuplicate()
		}
		return
	}

	b, _ := json.Marshal(dropFrom(ev))
	if err := p.Broadcaster.Publish(ctx, p.DropChannel, b); err != nil {
		p.Log.Warn("drop broadcast failed", zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, cause error) {
	p.Log.Warn("invalid message", zap.Int64("offset", m.Offset), zap.Error(cause))
	p.fail("decode")
	if p.DLQ == nil {
		return
	}
	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func dropFrom(ev events.CaseOpened) events.Drop {
	return events.Drop{
		OpeningID:     ev.OpeningID,
		CaseID:        ev.CaseID,
		CaseName:      ev.CaseName,
		PrizeName:     ev.PrizeName,
		PrizeImageURL: ev.PrizeImageURL,
		PrizeValue:    decimal.New(ev.PrizeValueCents, -2).StringFixed(2),
		TsUnixMs:      ev.TsUnixMs,
	}
}
