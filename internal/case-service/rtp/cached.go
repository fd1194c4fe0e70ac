package rtp

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

// Publisher avisa as outras instâncias que a configuração mudou
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type cached struct {
	snap     Snapshot
	loadedAt time.Time
}

// CachedStore mantém o último snapshot em memória por até ttl.
// O snapshot é trocado atomicamente: leitores nunca veem um registro parcial.
type CachedStore struct {
	next    Store
	pub     Publisher
	channel string
	ttl     time.Duration
	log     *zap.Logger

	cur atomic.Pointer[cached]
	now func() time.Time
}

func NewCachedStore(log *zap.Logger, next Store, pub Publisher, channel string, ttl time.Duration) *CachedStore {
	return &CachedStore{next: next, pub: pub, channel: channel, ttl: ttl, log: log, now: time.Now}
}

func (s *CachedStore) Current(ctx context.Context) (Snapshot, error) {
	seen := s.cur.Load()
	if seen != nil && !seen.loadedAt.IsZero() && s.now().Sub(seen.loadedAt) < s.ttl {
		return seen.snap, nil
	}
	snap, err := s.next.Current(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	// só grava se ninguém trocou o ponteiro durante a leitura (Update ou Invalidate)
	s.cur.CompareAndSwap(seen, &cached{snap: snap, loadedAt: s.now()})
	return snap, nil
}

func (s *CachedStore) Update(ctx context.Context, u Update) (Snapshot, error) {
	snap, err := s.next.Update(ctx, u)
	if err != nil {
		return Snapshot{}, err
	}
	s.cur.Store(&cached{snap: snap, loadedAt: s.now()})

	if s.pub != nil {
		msg, _ := json.Marshal(events.RTPUpdated{
			RTPTarget: snap.Target.StringFixed(2),
			UpdatedBy: snap.UpdatedBy,
			TsUnixMs:  s.now().UnixMilli(),
		})
		if err := s.pub.Publish(ctx, s.channel, msg); err != nil {
			// as outras instâncias ainda expiram pelo TTL
			s.log.Warn("rtp update broadcast failed", zap.Error(err))
		}
	}
	return snap, nil
}

// Invalidate descarta o snapshot local; a próxima leitura vai ao banco.
// Cada chamada grava um marcador novo, para que leituras já em curso não
// consigam reinstalar o valor antigo.
func (s *CachedStore) Invalidate() {
	s.cur.Store(&cached{})
}

// OnRemoteUpdate é o handler do canal de atualização de RTP
func (s *CachedStore) OnRemoteUpdate(payload []byte) {
	var ev events.RTPUpdated
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.Warn("invalid rtp update message", zap.Error(err))
	}
	s.Invalidate()
	s.log.Info("rtp config changed remotely", zap.String("rtpTarget", ev.RTPTarget), zap.String("by", ev.UpdatedBy))
}
