package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token   string
	APIBase string
	// OpenLabel and IgnoreLabel are the inline button captions.
	OpenLabel   string
	IgnoreLabel string
}

// Telegram is a Transport backed by the Telegram Bot API with long polling.
type Telegram struct {
	client   *tgbot.Bot
	sink     func(context.Context, Event)
	logger   *slog.Logger
	keyboard *tgmodels.InlineKeyboardMarkup
	botID    atomic.Int64
}

// NewTelegram creates the transport. Inbound events are passed to sink from
// the polling goroutines; sink must not block for long.
func NewTelegram(cfg TelegramConfig, sink func(context.Context, Event), logger *slog.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpenLabel == "" {
		cfg.OpenLabel = "Apri"
	}
	if cfg.IgnoreLabel == "" {
		cfg.IgnoreLabel = "Ignora"
	}

	t := &Telegram{
		sink:   sink,
		logger: logger,
		keyboard: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				{Text: cfg.OpenLabel, CallbackData: ButtonOpen},
				{Text: cfg.IgnoreLabel, CallbackData: ButtonIgnore},
			}},
		},
	}

	options := []tgbot.Option{
		tgbot.WithSkipGetMe(),
		tgbot.WithDefaultHandler(t.onUpdate),
		tgbot.WithErrorsHandler(func(err error) {
			logger.Warn("telegram polling error", "error", err)
		}),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/"); base != "" {
		options = append(options, tgbot.WithServerURL(base))
	}

	client, err := tgbot.New(cfg.Token, options...)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	t.client = client
	return t, nil
}

// Run identifies the bot and polls for updates until ctx is done.
// A failing identification is returned so the caller can retry.
func (t *Telegram) Run(ctx context.Context) error {
	me, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	t.botID.Store(me.ID)
	t.logger.Info("telegram connected", "bot", me.Username, "id", me.ID)

	t.client.Start(ctx)
	return ctx.Err()
}

// Send posts text to dest.
func (t *Telegram) Send(ctx context.Context, dest, text string, opts SendOptions) (Handle, error) {
	params := &tgbot.SendMessageParams{
		ChatID:              normalizeChatID(dest),
		Text:                text,
		DisableNotification: opts.Silent,
	}
	if opts.Buttons {
		params.ReplyMarkup = t.keyboard
	}

	sent, err := t.client.SendMessage(ctx, params)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: telegram send to %s: %w", ErrDelivery, dest, err)
	}
	if sent == nil || sent.ID <= 0 {
		return Handle{}, fmt.Errorf("%w: telegram send to %s returned empty message id", ErrDelivery, dest)
	}
	return Handle{ChatID: dest, MessageID: sent.ID}, nil
}

// Edit replaces the text of h; the inline keyboard is dropped.
func (t *Telegram) Edit(ctx context.Context, h Handle, text string) error {
	_, err := t.client.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:    normalizeChatID(h.ChatID),
		MessageID: h.MessageID,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("%w: telegram edit %s/%d: %w", ErrDelivery, h.ChatID, h.MessageID, err)
	}
	return nil
}

// Acknowledge answers a callback query.
func (t *Telegram) Acknowledge(ctx context.Context, callbackID string) error {
	_, err := t.client.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	if err != nil {
		return fmt.Errorf("%w: telegram answer callback: %w", ErrDelivery, err)
	}
	return nil
}

func (t *Telegram) onUpdate(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	if ev, ok := t.translate(update); ok {
		t.sink(ctx, ev)
	}
}

// translate maps a Telegram update onto an Event. Updates the doorbell does
// not care about report false.
func (t *Telegram) translate(update *tgmodels.Update) (Event, bool) {
	if update == nil {
		return Event{}, false
	}

	if q := update.CallbackQuery; q != nil {
		msg := q.Message.Message
		if msg == nil {
			// Too old to edit; nothing useful to resolve.
			return Event{}, false
		}
		return Event{
			Type:       EventButton,
			Value:      q.Data,
			CallbackID: q.ID,
			Message:    Handle{ChatID: formatChatID(msg.Chat.ID), MessageID: msg.ID},
			Origin:     originOf(msg.Chat),
		}, true
	}

	m := update.Message
	if m == nil {
		return Event{}, false
	}
	origin := originOf(m.Chat)
	botID := t.botID.Load()

	for _, member := range m.NewChatMembers {
		if botID != 0 && member.ID == botID {
			return Event{Type: EventCommand, Name: "addchat", Origin: origin}, true
		}
	}
	if m.LeftChatMember != nil && botID != 0 && m.LeftChatMember.ID == botID {
		return Event{Type: EventCommand, Name: "removechat", Origin: origin}, true
	}

	name, ok := ParseCommand(m.Text)
	if !ok {
		return Event{}, false
	}
	return Event{Type: EventCommand, Name: name, Origin: origin}, true
}

func originOf(c tgmodels.Chat) Origin {
	name := c.Title
	if name == "" {
		name = c.Username
	}
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return Origin{ID: formatChatID(c.ID), Name: name}
}

func formatChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// normalizeChatID converts numeric chat IDs to int64 and keeps @channel names as string.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
