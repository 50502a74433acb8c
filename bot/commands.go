package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/jlvergne/masterbot/ai"
	"github.com/jlvergne/masterbot/convo"
	"github.com/jlvergne/masterbot/market"
)

const (
	greetingText = "Hi 👋 I'm Master Assistant.\nCommands: /help · /reset · /ping · /diag · /price · /chart · /news"
	helpText     = "Help\n- Send any message and I'll answer.\n- /reset clears your conversation memory.\n- /price <symbol>, /chart <symbol>, /news, /analyze <symbol> for market data.\n- /diag probes the AI endpoint."

	seriesDays       = 7
	newsLimit        = 5
	analysisMaxToken = 750

	analystPrompt = "You are a concise market analyst. Summarize the given price data in a few plain sentences. No investment advice."
)

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	user := msg.From.ID
	chat := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		d.store.GetOrCreate(user)
		d.reply(chat, greetingText)
	case "help":
		d.reply(chat, helpText)
	case "reset":
		d.store.Reset(user)
		d.reply(chat, "Memory cleared.")
	case "ping":
		d.reply(chat, "pong ✅")
	case "diag":
		d.handleDiag(ctx, chat)
	case "price":
		d.handlePrice(ctx, chat, args)
	case "chart":
		d.handleChart(ctx, chat, args)
	case "news":
		d.handleNews(ctx, chat)
	case "analyze":
		d.handleAnalyze(ctx, chat, args)
	default:
		d.reply(chat, "Unknown command. Try /help.")
	}
}

// handleDiag probes the completion provider's model listing and reports
// the raw status. Purely a liveness check.
func (d *Dispatcher) handleDiag(ctx context.Context, chat int64) {
	status, body, err := d.ai.Ping(ctx)
	if err != nil {
		d.reply(chat, fmt.Sprintf("Diag error: %v", err))
		return
	}
	text := fmt.Sprintf("AI status: %d", status)
	if status != 200 && body != "" {
		text += " · " + body
	}
	d.reply(chat, text)
}

func (d *Dispatcher) handlePrice(ctx context.Context, chat int64, symbol string) {
	if symbol == "" {
		d.reply(chat, "Usage: /price <symbol>, e.g. /price btc")
		return
	}
	quote, err := d.market.Price(ctx, symbol)
	if err != nil {
		d.lookupError(chat, "price", err)
		return
	}
	d.reply(chat, quote.Format())
}

func (d *Dispatcher) handleChart(ctx context.Context, chat int64, symbol string) {
	if symbol == "" {
		d.reply(chat, "Usage: /chart <symbol>, e.g. /chart eth")
		return
	}
	series, err := d.market.Series(ctx, symbol, seriesDays)
	if err != nil {
		d.lookupError(chat, "chart", err)
		return
	}
	if len(series) == 0 {
		d.reply(chat, "No chart data for "+strings.ToUpper(symbol)+".")
		return
	}
	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	d.reply(chat, fmt.Sprintf("%s %dd: %s\nlow $%.2f · high $%.2f",
		strings.ToUpper(symbol), seriesDays, market.Sparkline(series), lo, hi))
}

func (d *Dispatcher) handleNews(ctx context.Context, chat int64) {
	headlines, err := d.market.News(ctx)
	if err != nil {
		d.lookupError(chat, "news", err)
		return
	}
	if len(headlines) == 0 {
		d.reply(chat, "No headlines right now.")
		return
	}
	if len(headlines) > newsLimit {
		headlines = headlines[:newsLimit]
	}
	var b strings.Builder
	for _, h := range headlines {
		fmt.Fprintf(&b, "• %s\n  %s\n", h.Title, h.URL)
	}
	d.reply(chat, strings.TrimRight(b.String(), "\n"))
}

// handleAnalyze feeds a one-shot price summary through the completion
// endpoint. It does not touch the user's stored conversation.
func (d *Dispatcher) handleAnalyze(ctx context.Context, chat int64, symbol string) {
	if symbol == "" {
		d.reply(chat, "Usage: /analyze <symbol>, e.g. /analyze btc")
		return
	}
	quote, err := d.market.Price(ctx, symbol)
	if err != nil {
		d.lookupError(chat, "analyze", err)
		return
	}
	series, err := d.market.Series(ctx, symbol, seriesDays)
	if err != nil {
		d.lookupError(chat, "analyze", err)
		return
	}

	closes := make([]string, len(series))
	for i, v := range series {
		closes[i] = fmt.Sprintf("%.2f", v)
	}
	prompt := fmt.Sprintf("Give a short market read on %s. Spot price $%.2f, 24h change %+.2f%%. Daily closes over the last %d days: %s.",
		strings.ToUpper(symbol), quote.USD, quote.Change24h, seriesDays, strings.Join(closes, ", "))

	d.typing(chat)
	answer, err := d.ai.Complete(ctx, []convo.Turn{
		{Role: convo.RoleSystem, Content: analystPrompt},
		{Role: convo.RoleUser, Content: prompt},
	}, ai.WithMaxTokens(analysisMaxToken))
	if err != nil {
		reply, kind := translateAIError(err)
		d.metrics.CompletionFailures.WithLabelValues(kind).Inc()
		log.Error().Err(err).Str("kind", kind).Msg("analysis completion failed")
		d.reply(chat, reply)
		return
	}
	d.reply(chat, answer)
}

// lookupError reports a failed read-only lookup inline, naming the
// operation, and never propagates further.
func (d *Dispatcher) lookupError(chat int64, operation string, err error) {
	d.metrics.LookupFailures.WithLabelValues(operation).Inc()
	log.Warn().Err(err).Str("operation", operation).Msg("lookup failed")
	d.reply(chat, fmt.Sprintf("Couldn't fetch %s data right now. Try again later.", operation))
}
