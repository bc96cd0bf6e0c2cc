// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/config"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/crm"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/logging"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/metrics"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/sched"
	tele "github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/telegram"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/web"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Account registry ----
	accounts := make([]*model.Account, 0, len(cfg.CRM.Accounts))
	for _, a := range cfg.CRM.Accounts {
		accounts = append(accounts, &model.Account{
			URLFragment:       a.URLFragment,
			BaseURL:           a.BaseURL,
			APIKey:            a.APIKey,
			TelegramChannelID: a.TelegramChannel,
			Currency:          a.Currency,
		})
	}
	registry := model.NewRegistry(accounts, cfg.CRM.DefaultAccount)
	logger.Info().Int("accounts", len(accounts)).
		Str("default", registry.Default().URLFragment).Msg("account registry loaded")

	// ---- Infra ----
	crmClient := crm.NewClient(10 * time.Second)
	notifier, err := tele.NewNotifier(cfg.Telegram.Token, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	// ---- Pipeline ----
	extractor := usecase.NewExtractorUseCase(registry, logger)
	resolver := usecase.NewResolverUseCase(crmClient, registry, cfg.CRM.DefaultSites, logger)
	gate := usecase.NewApprovalGate(logger)
	relayUC := usecase.NewRelayUseCase(extractor, resolver, gate, registry, notifier, logger)

	var sweepUC usecase.SweepUseCase
	if cfg.Mode == "polling" {
		sweepUC = usecase.NewSweepUseCase(crmClient, registry, gate, notifier, cfg.Polling.Limit, logger)
		worker := sched.NewPollWorker(sweepUC, cfg.Polling.Interval)
		go worker.Run(ctx)
	}

	// ---- HTTP surface ----
	var auth *web.AuthManager
	if cfg.Admin.JWTSecret != "" {
		auth = web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	} else {
		logger.Warn().Msg("admin.jwt_secret not set; operational endpoints are locked out")
	}
	srv := web.NewServer(relayUC, sweepUC, gate, cfg.Admin.Key, auth, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("mode", cfg.Mode).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutdown requested")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
