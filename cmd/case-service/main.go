package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	casecache "github.com/radieske/slotbox-platform-poc/internal/case-service/cache"
	httpapi "github.com/radieske/slotbox-platform-poc/internal/case-service/http"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/producer"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/purchase"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/repo"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/rtp"
	"github.com/radieske/slotbox-platform-poc/internal/case-service/wallet"
	"github.com/radieske/slotbox-platform-poc/internal/draw"
	"github.com/radieske/slotbox-platform-poc/internal/drops-feed/ws"
	"github.com/radieske/slotbox-platform-poc/internal/opening-processor/stats"
	"github.com/radieske/slotbox-platform-poc/internal/shared/cache"
	"github.com/radieske/slotbox-platform-poc/internal/shared/config"
	"github.com/radieske/slotbox-platform-poc/internal/shared/db"
	"github.com/radieske/slotbox-platform-poc/internal/shared/kafka"
	"github.com/radieske/slotbox-platform-poc/internal/shared/logger"
	"github.com/radieske/slotbox-platform-poc/internal/shared/metrics"
	"github.com/radieske/slotbox-platform-poc/internal/shared/pubsub"
)

func main() {
	cfg := config.LoadFor("case-service")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicCaseOpened)
	defer writer.Close()

	// métricas
	opened := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "case_openings_total", Help: "aberturas concluídas"}, []string{"case_id"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "case_openings_rejected_total", Help: "aberturas recusadas por motivo"}, []string{"reason"})
	commitFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "case_wallet_commit_failures_total", Help: "commits de carteira que falharam"})
	publishFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "case_opened_publish_failures_total", Help: "eventos case_opened não publicados"})
	refunded := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "case_wallet_refunds_total", Help: "reservas devolvidas por compensação"}, []string{"stage"})
	prometheus.MustRegister(opened, rejected, commitFailed, publishFailed, refunded)

	// RTP: Postgres + snapshot em memória invalidado via pub/sub
	bcast := pubsub.NewRedisBroadcaster(rdb)
	rtpStore := rtp.NewCachedStore(log, rtp.NewPostgresStore(pg), bcast, cfg.RedisRTPChannel, cfg.RTPCacheTTL)
	pubsub.Listen(ctx, log, rdb, cfg.RedisRTPChannel, rtpStore.OnRemoteUpdate)

	pgRepo := repo.NewPostgres(pg)
	cases := casecache.New(rdb, pgRepo, cfg.CaseCacheTTL)
	engine := draw.New(draw.CryptoSource{})

	svc := purchase.NewService(log, cases, rtpStore, engine, wallet.New(cfg.WalletURL), pgRepo, producer.NewKafkaPublisher(writer))
	svc.OnOpened = func(caseID string) { opened.WithLabelValues(caseID).Inc() }
	svc.OnRejected = func(reason string) { rejected.WithLabelValues(reason).Inc() }
	svc.OnCommitFailed = commitFailed.Inc
	svc.OnPublishError = publishFailed.Inc
	svc.OnCompensated = func(stage string) { refunded.WithLabelValues(stage).Inc() }

	// feed de drops: o processor publica no canal, o hub repassa aos clientes
	hub := ws.NewHub(log, func(*http.Request) bool { return true }, ws.DefaultBacklog)
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisDropsChannel, hub)

	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN empty; admin routes disabled")
	}

	api := &httpapi.API{
		Log:        log,
		Catalog:    pgRepo,
		Cases:      cases,
		Opener:     svc,
		RTP:        rtpStore,
		Engine:     engine,
		Stats:      stats.NewRedisStats(rdb),
		Drops:      hub.HandleWS,
		AdminToken: cfg.AdminToken,
	}

	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("case-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	_ = msrv.Shutdown(shCtx)
}
