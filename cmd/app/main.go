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

	"github.com/rs/zerolog"

	"apidoc-digester/internal/config"
	"apidoc-digester/internal/digest"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/domain/ports/repository"
	"apidoc-digester/internal/extract"
	aiAdapters "apidoc-digester/internal/infra/adapters/ai"
	pg "apidoc-digester/internal/infra/db/postgres"
	"apidoc-digester/internal/infra/docfs"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/infra/metrics"
	red "apidoc-digester/internal/infra/redis"
	"apidoc-digester/internal/infra/security"
	"apidoc-digester/internal/infra/web"
	"apidoc-digester/internal/infra/worker"
	"apidoc-digester/internal/jobs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop AI fallback)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Storage backend ----
	var store repository.JobStore
	var docs repository.DocumentSource
	switch cfg.Jobs.Backend {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		store = pg.NewJobStore(pool, pg.NewTxManager(pool))
		docs = pg.NewDocumentSource(pool)

		if cfg.Redis.URL != "" {
			redisClient, err := red.NewClient(ctx, &cfg.Redis)
			if err != nil {
				logger.Fatal().Err(err).Msg("redis")
			}
			defer redisClient.Close()

			var encSvc *security.EncryptionService
			if cfg.Security.EncryptionKey != "" {
				encSvc, err = security.NewEncryptionService(cfg.Security.EncryptionKey)
				if err != nil {
					logger.Fatal().Err(err).Msg("encryption")
				}
			}
			docs = red.NewCachedDocumentSource(docs, redisClient, cfg.Redis.TTL, encSvc, logger)
		}
	case "file":
		fs, err := jobs.NewFileStore(cfg.Jobs.Dir, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("file job store")
		}
		store = fs
		docs = docfs.NewSource(cfg.Documents.Dir)
	default:
		logger.Fatal().Str("backend", cfg.Jobs.Backend).Msg("unknown jobs backend")
	}

	// ---- Job runner and startup recovery ----
	runner := jobs.NewRunner(store, logger)
	recovered := runner.Recover(ctx)
	if recovered > 0 {
		metrics.AddJobsRecovered(recovered)
		logger.Warn().Int("count", recovered).Msg("failed jobs left running by a previous process")
	}

	// ---- Chat model (OpenAI and/or Gemini) ----
	chat, err := buildChatModel(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("chat model")
	}
	if cfg.AI.RatePerSecond > 0 {
		chat = aiAdapters.NewLimitedChatModel(chat, cfg.AI.RatePerSecond, cfg.AI.RateBurst)
	}
	extractor := aiAdapters.NewExtractor(chat, cfg.AI.DefaultModel, logger)

	// ---- Digest service ----
	orch := extract.NewOrchestrator(store, logger, cfg.Digest.DocConcurrency, cfg.Digest.ChunkConcurrency)
	svc := digest.NewService(docs, store, runner, orch, extractor, extractor, cfg.Digest, logger)

	// ---- Worker pool ----
	pool := worker.NewPool(cfg.Jobs.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()
	digestWorker := worker.NewDigestWorker(store, runner, svc, cfg.Jobs.PollInterval, logger)
	go digestWorker.Start(ctx, pool)

	// ---- HTTP API ----
	srv := web.NewServer(svc, store, cfg.Web.APIKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// buildChatModel wires the configured providers behind one ChatModel. With
// both keys set, calls route by model name prefix; with none, dev mode gets
// the noop model and production refuses to start.
func buildChatModel(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.ChatModel, error) {
	providers := map[string]adapter.ChatModel{}
	defaultProvider := ""

	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		providers["openai"] = oa
		defaultProvider = "openai"
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI provider: OpenAI")
	}
	if cfg.AI.GeminiKey != "" {
		gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		providers["gemini"] = gm
		if defaultProvider == "" {
			defaultProvider = "gemini"
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI provider: Gemini")
	}

	switch len(providers) {
	case 0:
		if cfg.Runtime.Dev {
			logger.Warn().Msg("no AI provider configured; using noop chat model")
			return aiAdapters.NoopChatModel{}, nil
		}
		return nil, fmt.Errorf("no AI provider configured: set ai.openai_key or ai.gemini_key")
	case 1:
		return providers[defaultProvider], nil
	default:
		return aiAdapters.NewMultiChatModel(defaultProvider, providers), nil
	}
}
