package main

import (
	"flag"
	"os"

	"github.com/jlvergne/masterbot/market"
)

const defaultSystemPrompt = "You are 'Master Assistant', a Telegram bot for an engineer. " +
	"Answer clearly in one or two sentences first, then add detail when useful. " +
	"Give concrete examples and avoid needless jargon."

type Config struct {
	BotToken      string
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
	SystemPrompt  string
	MarketBaseURL string
	AdminAddr     string
	LogLevel      string
	LogPretty     bool
}

func LoadConfig() Config {
	cfg := Config{
		BotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIKey: os.Getenv("OPENAI_API_KEY"),
	}

	flag.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "Completion API base URL")
	flag.StringVar(&cfg.Model, "model", envOrDefault("MODEL_NAME", "gpt-4o-mini"), "Completion model identifier")
	flag.StringVar(&cfg.SystemPrompt, "system-prompt", envOrDefault("SYSTEM_PROMPT", defaultSystemPrompt), "Persona prepended to every conversation")
	flag.StringVar(&cfg.MarketBaseURL, "market-base-url", envOrDefault("MARKET_BASE_URL", market.DefaultBaseURL), "Market data API base URL")
	flag.StringVar(&cfg.AdminAddr, "admin-addr", defaultAdminAddr(), "Health and metrics listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", envOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.LogPretty, "log-pretty", os.Getenv("LOG_PRETTY") != "", "Pretty console logging")
	flag.Parse()

	return cfg
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultAdminAddr() string {
	if v := os.Getenv("ADMIN_ADDR"); v != "" {
		return v
	}
	// Railway, Render, etc. set PORT
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8090"
}
