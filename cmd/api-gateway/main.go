package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	gateway "github.com/radieske/slotbox-platform-poc/internal/api-gateway"
	"github.com/radieske/slotbox-platform-poc/internal/shared/config"
	"github.com/radieske/slotbox-platform-poc/internal/shared/logger"
)

func main() {
	cfg := config.LoadFor("api-gateway")
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	caseURL := os.Getenv("CASE_URL")
	if caseURL == "" {
		caseURL = "http://localhost:8084"
	}

	h, err := gateway.NewRouter(gateway.Targets{CaseURL: caseURL, WalletURL: cfg.WalletURL})
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api-gateway listening", zap.String("addr", srv.Addr),
			zap.String("case", caseURL), zap.String("wallet", cfg.WalletURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("gateway failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
}
