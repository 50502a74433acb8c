// Package bot routes inbound Telegram updates to the conversation
// store, rate limiter, completion client and market lookups, and sends
// the replies.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/jlvergne/masterbot/ai"
	"github.com/jlvergne/masterbot/convo"
	"github.com/jlvergne/masterbot/market"
	"github.com/jlvergne/masterbot/metrics"
	"github.com/jlvergne/masterbot/ratelimit"
)

// Fixed user-facing strings for completion failures. The completion
// client returns typed errors; translation to text happens here only.
const (
	replyAIError  = "AI-side error (HTTP)."
	replyBadReply = "Unexpected AI response."
)

// Sender is the slice of the Telegram API the dispatcher needs.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Completer produces a reply for a turn sequence.
type Completer interface {
	Complete(ctx context.Context, turns []convo.Turn, opts ...ai.Option) (string, error)
	Ping(ctx context.Context) (int, string, error)
}

// MarketData provides the read-only lookups behind the market commands.
type MarketData interface {
	Price(ctx context.Context, symbol string) (market.Quote, error)
	Series(ctx context.Context, symbol string, days int) ([]float64, error)
	News(ctx context.Context) ([]market.Headline, error)
}

type Dispatcher struct {
	api     Sender
	store   *convo.Store
	limiter *ratelimit.Limiter
	ai      Completer
	market  MarketData
	metrics *metrics.Metrics

	// Per-user locks serialize handling for one user without blocking
	// other users' in-flight work.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewDispatcher(api Sender, store *convo.Store, limiter *ratelimit.Limiter, completer Completer, md MarketData, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		api:     api,
		store:   store,
		limiter: limiter,
		ai:      completer,
		market:  md,
		metrics: m,
		locks:   make(map[int64]*sync.Mutex),
	}
}

// Run consumes updates until the channel closes or ctx is canceled.
// Each update is handled in its own goroutine.
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go d.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one inbound update. Handling is serialized
// per user, so turn-store mutations land in acceptance order.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	unlock := d.lockUser(msg.From.ID)
	defer unlock()

	if msg.IsCommand() {
		d.metrics.MessagesTotal.WithLabelValues(msg.Command()).Inc()
		d.handleCommand(ctx, msg)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	d.metrics.MessagesTotal.WithLabelValues("text").Inc()
	d.handleText(ctx, msg)
}

// handleText is the core relay path: debounce, remember the user turn,
// ask the completion endpoint, remember and send the reply.
func (d *Dispatcher) handleText(ctx context.Context, msg *tgbotapi.Message) {
	user := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if !d.limiter.Allow(user, time.Now()) {
		d.metrics.MessagesDropped.Inc()
		log.Debug().Int64("user", user).Msg("message dropped by debounce")
		return
	}

	d.reply(msg.Chat.ID, "✅ Received: "+text)

	d.store.Append(user, convo.RoleUser, text)
	d.typing(msg.Chat.ID)

	d.metrics.CompletionAttempts.Inc()
	start := time.Now()
	answer, err := d.ai.Complete(ctx, d.store.GetOrCreate(user))
	d.metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reply, kind := translateAIError(err)
		d.metrics.CompletionFailures.WithLabelValues(kind).Inc()
		log.Error().Err(err).Int64("user", user).Str("kind", kind).Msg("completion failed")
		d.reply(msg.Chat.ID, reply)
		return
	}

	d.store.Append(user, convo.RoleAssistant, answer)
	d.reply(msg.Chat.ID, answer)
}

// translateAIError maps a typed completion error to its fixed
// user-facing string and a metrics label.
func translateAIError(err error) (string, string) {
	var bad *ai.BadReplyError
	if errors.As(err, &bad) {
		return replyBadReply, "bad_reply"
	}
	var status *ai.StatusError
	if errors.As(err, &status) {
		return replyAIError, "http_status"
	}
	return replyAIError, "transport"
}

func (d *Dispatcher) lockUser(user int64) func() {
	d.mu.Lock()
	l, ok := d.locks[user]
	if !ok {
		l = &sync.Mutex{}
		d.locks[user] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (d *Dispatcher) reply(chatID int64, text string) {
	if _, err := d.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

func (d *Dispatcher) typing(chatID int64) {
	if _, err := d.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Debug().Err(err).Int64("chat", chatID).Msg("chat action failed")
	}
}
