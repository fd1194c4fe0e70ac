package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/slotbox-platform-poc/internal/opening-processor/consumer"
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
	cfg := config.LoadFor("opening-processor-worker")

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

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

	// consumer group opening-processor
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicCaseOpened, "opening-processor")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicCaseOpenedDLQ)
	defer dlq.Close()

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "opening_proc_messages_consumed_total", Help: "mensagens consumidas"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "opening_proc_duplicates_total", Help: "reentregas ignoradas"})
	recorded := prometheus.NewCounter(prometheus.CounterOpts{Name: "opening_proc_stats_recorded_total", Help: "aberturas somadas no redis"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "opening_proc_db_writes_total", Help: "upserts em case_rtp_stats"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{Name: "opening_proc_drops_broadcast_total", Help: "drops publicados no feed"})
	dlqCount := prometheus.NewCounter(prometheus.CounterOpts{Name: "opening_proc_dlq_total", Help: "mensagens enviadas à DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "opening_proc_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, duplicates, recorded, persist, broadcasts, dlqCount, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		DLQ:         dlq,
		Stats:       stats.NewRedisStats(rdb),
		Durable:     stats.NewPostgresStats(pg),
		Broadcaster: pubsub.NewRedisBroadcaster(rdb),
		DropChannel: cfg.RedisDropsChannel,
		OnConsumed:  consumed.Inc,
		OnDuplicate: duplicates.Inc,
		OnRecorded:  recorded.Inc,
		OnPersist:   persist.Inc,
		OnBroadcast: broadcasts.Inc,
		OnDLQ:       dlqCount.Inc,
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return rdb.Ping(ctx).Err()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("opening-processor started", zap.String("topic", cfg.TopicCaseOpened))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}

	shCtx, shCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shCancel()
	_ = msrv.Shutdown(shCtx)
	log.Info("opening-processor stopped")
}
