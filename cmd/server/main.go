package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Berkaniis/survey-tool/internal/api"
	"github.com/Berkaniis/survey-tool/internal/audit"
	"github.com/Berkaniis/survey-tool/internal/config"
	"github.com/Berkaniis/survey-tool/internal/dispatch"
	"github.com/Berkaniis/survey-tool/internal/pkg/logger"
	"github.com/Berkaniis/survey-tool/internal/provider"
	"github.com/Berkaniis/survey-tool/internal/repository/postgres"
	"github.com/Berkaniis/survey-tool/internal/service/campaign"
	"github.com/Berkaniis/survey-tool/internal/service/template"
	"github.com/Berkaniis/survey-tool/internal/service/wave"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	switch cfg.Logging.Level {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	prov := buildProvider(cfg)
	logger.Info("mail provider configured", "provider", prov.Name())

	var quota *dispatch.DailyQuota
	if cfg.Redis.URL != "" && cfg.Dispatch.DailyQuota > 0 {
		quota, err = dispatch.NewDailyQuotaFromURL(cfg.Redis.URL, cfg.Dispatch.DailyQuota)
		if err != nil {
			log.Fatalf("redis quota: %v", err)
		}
		defer quota.Close()
		logger.Info("daily send quota enabled", "limit", cfg.Dispatch.DailyQuota)
	}

	limiter := dispatch.NewRateLimiter(cfg.Dispatch.RateLimit, cfg.Dispatch.RateWindow())
	pipeline := dispatch.NewPipeline(prov, postgres.NewDispatchStore(db), limiter, dispatch.Options{
		MaxRetries:  cfg.Dispatch.MaxRetries,
		RetryDelays: cfg.Dispatch.RetryDelays(),
		PopTimeout:  cfg.Dispatch.PopTimeout(),
		Quota:       quota,
	})
	pipeline.Start()

	auditor := audit.New(postgres.NewAuditRepo(db))
	waveSvc := wave.NewService(postgres.NewWaveRepo(db), pipeline, prov, auditor)
	templateSvc := template.NewService(postgres.NewTemplateRepo(db), auditor)
	campaignSvc := campaign.NewService(postgres.NewCampaignRepo(db), auditor)

	server := api.NewServer(api.NewHandlers(waveSvc, templateSvc, campaignSvc, prov))
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server: %v", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := pipeline.Stop(ctx); err != nil {
		logger.Error("pipeline shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}

func buildProvider(cfg *config.Config) provider.Provider {
	p := cfg.Provider
	switch p.Type {
	case "ses":
		return provider.NewSESProvider(p.SES.AccessKey, p.SES.SecretKey, p.SES.Region,
			p.SenderName, p.SenderEmail)
	default:
		return provider.NewSMTPProvider(p.SMTP.Host, p.SMTP.Port, p.SMTP.Username,
			p.SMTP.Password, p.SenderName, p.SenderEmail)
	}
}
