package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"empirepilot/internal/admin"
	"empirepilot/internal/config"
	"empirepilot/internal/content"
	"empirepilot/internal/delivery"
	"empirepilot/internal/delivery/registry"
	"empirepilot/internal/httpapi"
	"empirepilot/internal/metrics"
	"empirepilot/internal/news"
	"empirepilot/internal/pilot"
	"empirepilot/internal/queue"
	"empirepilot/internal/quote"
	"empirepilot/internal/telegram"
	"empirepilot/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, delivery worker and optional Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogger(cfg.Log.Level)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	log.Info().
		Str("mode", cfg.AppMode).
		Str("db_driver", cfg.DB.Driver).
		Bool("redis", cfg.Redis.Addr != "").
		Bool("telegram", cfg.Telegram.BotToken != "").
		Msg("starting empire")

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer closeRepo()

	rdb, err := openRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	site, err := content.Load()
	if err != nil {
		return fmt.Errorf("load site content: %w", err)
	}

	m := metrics.Global()

	pilotCfg := pilot.Config{
		Store:      repo,
		Logger:     log.Logger,
		Metrics:    m,
		ReplyDelay: pilot.RandomDelay(cfg.Chat.ReplyDelayMin, cfg.Chat.ReplyDelayMax),
	}
	quoteCfg := quote.Config{Store: repo, Logger: log.Logger, Metrics: m}
	var jobQueue *queue.StreamQueue
	var dedupe *queue.Deduplicator
	var clientLimiter pilot.Limiter
	if rdb != nil {
		jobQueue = queue.NewStreamQueue(rdb, cfg.Redis.DeliveryStream, cfg.Redis.DeliveryGroup, cfg.Worker.ConsumerName, cfg.Redis.QueueBlock)
		dedupe = queue.NewDeduplicator(rdb, cfg.Redis.DedupeTTL)
		pilotCfg.Drafts = pilot.NewRedisDrafts(rdb, cfg.Redis.DraftTTL)
		pilotCfg.Limiter = queue.NewRateLimiter(rdb, cfg.Chat.RatePerHour)
		clientLimiter = queue.NewRateLimiter(rdb, cfg.Chat.ClientRatePerHour)
		pilotCfg.Dedupe = dedupe
		pilotCfg.Deliveries = jobQueue
		quoteCfg.Deliveries = jobQueue
	} else {
		log.Warn().Msg("REDIS_ADDR is empty: lead drafts stay in memory and deliveries are disabled")
	}

	chat := pilot.NewService(pilotCfg)
	dashboard := admin.NewService(admin.Config{Store: repo, Logger: log.Logger})

	var bot *gotgbot.Bot
	if cfg.Telegram.BotToken != "" {
		bot, err = gotgbot.NewBot(cfg.Telegram.BotToken, nil)
		if err != nil {
			return fmt.Errorf("create telegram bot: %s", sanitizeTelegramErr(err, cfg.Telegram.BotToken))
		}
		log.Info().Str("bot_username", bot.User.Username).Int64("bot_id", bot.User.Id).Msg("telegram bot initialized")
	}

	runWorker := jobQueue != nil && cfg.Runs(config.ModeWorker)
	var sinks []delivery.Sink
	if runWorker {
		sinks, err = buildSinks(cfg, bot)
		if err != nil {
			return err
		}
	}

	errCh := make(chan error, 4)
	var wg sync.WaitGroup

	var updater *ext.Updater
	if bot != nil && cfg.Telegram.Polling && cfg.Runs(config.ModeWeb) {
		updater, err = startPolling(bot, cfg, chat, dashboard, dedupe, m)
		if err != nil {
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.HTTP.HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.HTTP.MetricsPath, promhttp.Handler())
	if cfg.Runs(config.ModeWeb) {
		api := httpapi.New(httpapi.Config{
			Pilot:      chat,
			News:       news.NewService(news.Config{Store: repo, Demo: site, Logger: log.Logger, Metrics: m}),
			Quotes:     quote.NewService(quoteCfg),
			Admin:      dashboard,
			Site:       site,
			AdminToken: cfg.HTTP.AdminToken,
			Logger:     log.Logger,
			Metrics:    m,

			ClientLimiter: clientLimiter,
		})
		mux.Handle("/api/", api.Routes())
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTP.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if runWorker {
		w := worker.New(worker.Config{
			Queue:         jobQueue,
			Sinks:         sinks,
			Label:         quote.Label,
			MaxJobRetries: cfg.Worker.MaxRetries,
			Logger:        log.Logger,
			Metrics:       m,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Start(ctx, cfg.Worker.Concurrency); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("worker failed: %w", err)
			}
		}()
		log.Info().Int("concurrency", cfg.Worker.Concurrency).Int("sinks", len(sinks)).Msg("worker started")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("runtime error")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if updater != nil {
		if err := updater.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop updater")
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
	}
	chat.Close()
	wg.Wait()

	log.Info().Msg("stopped")
	return nil
}

func startPolling(bot *gotgbot.Bot, cfg *config.Config, chat *pilot.Service, dashboard *admin.Service, dedupe *queue.Deduplicator, m *metrics.Metrics) (*ext.Updater, error) {
	logTelegramErr := func(err error) {
		log.Error().Str("component", "telegram").Msg(sanitizeTelegramErr(err, cfg.Telegram.BotToken))
	}
	processor := telegram.Processor{Metrics: m, Logger: log.Logger}
	if dedupe != nil {
		processor.Dedupe = dedupe
	}
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		MaxRoutines:      100,
		UnhandledErrFunc: logTelegramErr,
		Processor:        processor,
	})
	telegram.NewService(telegram.Config{
		Pilot:       chat,
		Stats:       dashboard,
		Bot:         bot,
		AdminUserID: cfg.Telegram.AdminUserID,
		Logger:      log.Logger,
		Metrics:     m,
	}).Register(dispatcher)

	updater := ext.NewUpdater(dispatcher, &ext.UpdaterOpts{UnhandledErrFunc: logTelegramErr})
	if err := updater.StartPolling(bot, &ext.PollingOpts{
		EnableWebhookDeletion: true,
		DropPendingUpdates:    true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 50,
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: 60 * time.Second,
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("start polling: %s", sanitizeTelegramErr(err, cfg.Telegram.BotToken))
	}
	log.Info().Msg("telegram polling started")
	return updater, nil
}

// buildSinks falls back to logging notices when no outbound channel is set.
func buildSinks(cfg *config.Config, bot *gotgbot.Bot) ([]delivery.Sink, error) {
	var opts []registry.BuildOptions
	if strings.TrimSpace(cfg.Webhook.URL) != "" {
		opts = append(opts, registry.BuildOptions{
			Kind:         "webhook",
			URL:          cfg.Webhook.URL,
			Headers:      cfg.Webhook.Headers,
			BodyTemplate: cfg.Webhook.BodyTemplate,
			HTTPClient:   &http.Client{Timeout: cfg.Webhook.ClientTimeout},
			MaxRetries:   cfg.Webhook.MaxRetries,
			BackoffBase:  cfg.Webhook.BackoffBase,
		})
	}
	if bot != nil && cfg.Telegram.NotifyChatID != 0 {
		opts = append(opts, registry.BuildOptions{Kind: "telegram", Bot: bot, ChatID: cfg.Telegram.NotifyChatID})
	}
	if len(opts) == 0 {
		opts = append(opts, registry.BuildOptions{Kind: "log", Logger: log.Logger})
	}

	sinks := make([]delivery.Sink, 0, len(opts))
	for _, o := range opts {
		s, err := registry.Build(o)
		if err != nil {
			return nil, fmt.Errorf("build %s sink: %w", o.Kind, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
