package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/internal/case-service/repo"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/rtp"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/wallet"
	"github.com/radieske/slotbox-platform-poc/internal/draw"
	"github.com/radieske/slotbox-platform-poc/pkg/contracts/events"
)

var (
	ErrCaseNotFound = errors.New("case not found")
	ErrCaseInactive = errors.New("case inactive")
	ErrInvalidPrice = errors.New("price is not a whole number of cents")
)

// settleTimeout limita refund, commit e publish, que rodam desacoplados do request
const settleTimeout = 5 * time.Second

type CaseReader interface {
	GetCase(ctx context.Context, id string) (draw.Case, error)
}

type RTPReader interface {
	Current(ctx context.Context) (rtp.Snapshot, error)
}

type Drawer interface {
	Draw(c draw.Case, rtpTarget decimal.Decimal) (draw.Outcome, error)
}

type Wallet interface {
	Reserve(ctx context.Context, userID string, cents int64, externalRef string) (string, error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

type OpeningStore interface {
	InsertOpening(ctx context.Context, o *repo.Opening) error
}

type Publisher interface {
	PublishCaseOpened(ctx context.Context, e events.CaseOpened) error
}

// OpenResult é o que o jogador recebe ao abrir uma caixa
type OpenResult struct {
	Opening *repo.Opening
	Prize   draw.Prize
}

// Service orquestra a compra: sorteio, reserva, persistência, commit e evento
type Service struct {
	log     *zap.Logger
	cases   CaseReader
	rtp     RTPReader
	engine  Drawer
	wallet  Wallet
	store   OpeningStore
	publ    Publisher
	newID   func() string
	timeNow func() time.Time

	// callbacks de métrica (podem ser nil)
	OnOpened       func(caseID string)
	OnRejected     func(reason string)
	OnCommitFailed func()
	OnPublishError func()
	OnCompensated  func(stage string)
}

func NewService(log *zap.Logger, cases CaseReader, rtpr RTPReader, engine Drawer, w Wallet, store OpeningStore, publ Publisher) *Service {
	return &Service{
		log:     log,
		cases:   cases,
		rtp:     rtpr,
		engine:  engine,
		wallet:  w,
		store:   store,
		publ:    publ,
		newID:   func() string { return uuid.New().String() },
		timeNow: time.Now,
	}
}

func (s *Service) Open(ctx context.Context, userID, caseID string) (*OpenResult, error) {
	// 1) caixa
	c, err := s.cases.GetCase(ctx, caseID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, s.reject("not_found", ErrCaseNotFound)
	}
	if err != nil {
		return nil, s.reject("case_lookup", fmt.Errorf("load case %s: %w", caseID, err))
	}
	if !c.Active {
		return nil, s.reject("inactive", ErrCaseInactive)
	}
	priceCents, err := toCents(c.Price)
	if err != nil {
		return nil, s.reject("invalid_price", err)
	}

	// 2) RTP vigente
	snap, err := s.rtp.Current(ctx)
	if err != nil {
		return nil, s.reject("rtp_lookup", fmt.Errorf("load rtp: %w", err))
	}

	// 3) sorteio antes de mexer no saldo
	out, err := s.engine.Draw(c, snap.Target)
	if err != nil {
		return nil, s.reject("draw", err)
	}
	prizeCents, err := toCents(out.Prize.Value)
	if err != nil {
		return nil, s.reject("invalid_price", err)
	}

	// 4) reserva (external_ref = openingID)
	openingID := s.newID()
	if _, err := s.wallet.Reserve(ctx, userID, priceCents, openingID); err != nil {
		if !errors.Is(err, wallet.ErrRejected) {
			// timeout ou 5xx: a reserva pode ter sido criada do outro lado
			s.compensate(ctx, "reserve", userID, openingID)
		}
		return nil, s.reject("wallet_reserve", err)
	}

	// 5) persiste; se falhar devolve a reserva
	o := &repo.Opening{
		ID:           openingID,
		UserID:       userID,
		CaseID:       c.ID,
		PrizeID:      out.Prize.ID,
		PrizeName:    out.Prize.Name,
		Price:        c.Price,
		PrizeValue:   out.Prize.Value,
		RTPTarget:    snap.Target,
		Roll:         out.Roll,
		Distribution: out.Distribution,
	}
	if err := s.store.InsertOpening(ctx, o); err != nil {
		s.compensate(ctx, "persist", userID, openingID)
		return nil, s.reject("persist", fmt.Errorf("persist opening: %w", err))
	}

	// a partir daqui o dinheiro já saiu; cliente desconectado não interrompe o fluxo
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	// 6) commit; o débito já aconteceu na reserva
	if err := s.wallet.Commit(sctx, userID, openingID); err != nil {
		s.log.Error("wallet commit", zap.String("openingId", openingID), zap.Error(err))
		if s.OnCommitFailed != nil {
			s.OnCommitFailed()
		}
	}

	// 7) evento
	ev := events.CaseOpened{
		OpeningID:       openingID,
		UserID:          userID,
		CaseID:          c.ID,
		CaseName:        c.Name,
		PrizeID:         out.Prize.ID,
		PrizeName:       out.Prize.Name,
		PrizeImageURL:   out.Prize.ImageURL,
		PriceCents:      priceCents,
		PrizeValueCents: prizeCents,
		RTPTarget:       snap.Target.StringFixed(2),
		TsUnixMs:        s.timeNow().UnixMilli(),
	}
	if err := s.publ.PublishCaseOpened(sctx, ev); err != nil {
		s.log.Warn("publish case_opened", zap.String("openingId", openingID), zap.Error(err))
		if s.OnPublishError != nil {
			s.OnPublishError()
		}
	}

	if s.OnOpened != nil {
		s.OnOpened(c.ID)
	}
	s.log.Info("case opened",
		zap.String("openingId", openingID),
		zap.String("caseId", c.ID),
		zap.String("prizeId", out.Prize.ID),
		zap.String("rtpTarget", ev.RTPTarget),
	)
	return &OpenResult{Opening: o, Prize: out.Prize}, nil
}

// compensate devolve a reserva num contexto próprio; o do request pode já estar cancelado
func (s *Service) compensate(parent context.Context, stage, userID, openingID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), settleTimeout)
	defer cancel()

	err := s.wallet.Refund(ctx, userID, openingID)
	switch {
	case errors.Is(err, wallet.ErrRejected) && stage == "reserve":
		// a reserva nunca chegou a existir
		s.log.Debug("nothing to refund", zap.String("openingId", openingID))
		return
	case err != nil:
		s.log.Error("refund failed", zap.String("stage", stage), zap.String("openingId", openingID), zap.Error(err))
		return
	}
	s.log.Warn("reservation refunded", zap.String("stage", stage), zap.String("openingId", openingID))
	if s.OnCompensated != nil {
		s.OnCompensated(stage)
	}
}

func (s *Service) reject(reason string, err error) error {
	if s.OnRejected != nil {
		s.OnRejected(reason)
	}
	return err
}

var centsPerUnit = decimal.NewFromInt(100)

func toCents(v decimal.Decimal) (int64, error) {
	c := v.Mul(centsPerUnit)
	if !c.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, v)
	}
	return c.IntPart(), nil
}
