// Package telegram adapts the Telegram update stream into chat events for
// the recorder. It is the only package that knows the host API; the core
// sees a stable Event type.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatcsv/internal/chatlog"
)

// NewBot creates a Telegram bot instance whose default handler feeds every
// incoming message to the recorder. No commands are registered; the adapter
// only listens. The returned Listener is used to stamp the bot's own
// identity once GetMe has run.
func NewBot(token string, recorder *chatlog.Recorder, logger *slog.Logger) (*bot.Bot, *Listener, error) {
	if token == "" {
		return nil, nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram")

	l := &Listener{recorder: recorder, logger: log}

	b, err := bot.New(token,
		bot.WithMiddlewares(Middleware(log)),
		bot.WithDefaultHandler(l.handle),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created")
	return b, l, nil
}

// Listener holds the adapter state shared by every update.
type Listener struct {
	recorder *chatlog.Recorder
	selfID   string
	logger   *slog.Logger
}

// SetSelf records the bot's own identity, stamped into the self_id column of
// every row. Called once after GetMe, before updates start flowing.
func (l *Listener) SetSelf(me *models.User) {
	if me != nil {
		l.selfID = fmt.Sprintf("%d", me.ID)
	}
}

func (l *Listener) handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil {
		l.logger.DebugContext(ctx, "Ignoring non-message update", "update_id", update.ID)
		return
	}
	l.recorder.Record(ctx, MapMessage(msg, l.selfID))
}

// MapMessage converts one Telegram message into the core event record. The
// mapping is total: absent fields stay zero and render as empty cells
// downstream.
func MapMessage(msg *models.Message, selfID string) chatlog.Event {
	ev := chatlog.Event{
		Timestamp:   int64(msg.Date),
		Platform:    "telegram",
		MessageType: string(msg.Chat.Type),
		SelfID:      selfID,
		SessionID:   fmt.Sprintf("%d", msg.Chat.ID),
		MessageID:   fmt.Sprintf("%d", msg.ID),
		MessageText: msg.Text,
		RawMessage:  msg,
	}

	if msg.Text == "" && msg.Caption != "" {
		ev.MessageText = msg.Caption
	}

	if msg.Chat.Type == models.ChatTypeGroup || msg.Chat.Type == models.ChatTypeSupergroup {
		ev.GroupID = fmt.Sprintf("%d", msg.Chat.ID)
	}

	if msg.From != nil {
		ev.SenderID = fmt.Sprintf("%d", msg.From.ID)
		ev.SenderName = senderName(msg.From)
		ev.SenderRepr = msg.From
	}

	if len(msg.Photo) > 0 {
		ev.Components = msg.Photo
	} else if len(msg.Entities) > 0 {
		ev.Components = msg.Entities
	}

	return ev
}

func senderName(u *models.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}
