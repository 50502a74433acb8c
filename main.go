package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jlvergne/masterbot/ai"
	"github.com/jlvergne/masterbot/bot"
	"github.com/jlvergne/masterbot/convo"
	"github.com/jlvergne/masterbot/market"
	"github.com/jlvergne/masterbot/metrics"
	"github.com/jlvergne/masterbot/ratelimit"
)

const updateTimeout = 30 // seconds, Telegram long-poll

func main() {
	cfg := LoadConfig()
	setupLogging(cfg)

	if cfg.BotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.OpenAIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY is required")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	store := convo.NewStore(cfg.SystemPrompt, convo.DefaultMaxTurns)
	limiter := ratelimit.New(ratelimit.DefaultInterval)
	completer := ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.Model)
	marketData := market.NewClient(cfg.MarketBaseURL)

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram connect failed")
	}
	log.Info().Str("username", api.Self.UserName).Str("model", cfg.Model).Msg("bot online (long polling)")

	dispatcher := bot.NewDispatcher(api, store, limiter, completer, marketData, m)

	// Admin listener: health check and Prometheus metrics.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	go func() {
		log.Info().Str("addr", cfg.AdminAddr).Msg("admin listener starting")
		if err := http.ListenAndServe(cfg.AdminAddr, mux); err != nil {
			log.Error().Err(err).Msg("admin listener failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drop idle debounce entries once in a while.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.CleanupStale(24*time.Hour, time.Now())
			}
		}
	}()

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = updateTimeout

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	dispatcher.Run(ctx, api.GetUpdatesChan(updateCfg))
	log.Info().Msg("shutting down")
}

func setupLogging(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
