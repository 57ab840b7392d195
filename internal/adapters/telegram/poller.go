package telegram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/core/domain"
	"github.com/snipechecks/snipebot/internal/core/service"
)

const retryInterval = 5 * time.Second

// Poller drives the bot from the Telegram long-poll loop. Updates are
// processed sequentially in arrival order; per-account ordering beyond
// that is handled inside the bot itself.
type Poller struct {
	client *Client
	bot    *service.Bot
	log    *zap.Logger
}

func NewPoller(client *Client, bot *service.Bot, log *zap.Logger) *Poller {
	return &Poller{
		client: client,
		bot:    bot,
		log:    log.Named("telegram"),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("starting telegram poller")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("failed to fetch updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryInterval):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			p.handleUpdate(ctx, update)
		}
	}
}

func (p *Poller) handleUpdate(ctx context.Context, update Update) {
	ev, chatID, callbackID, ok := eventFromUpdate(update)
	if !ok {
		return
	}

	reply := p.bot.HandleEvent(ctx, ev)

	if callbackID != "" {
		if err := p.client.AnswerCallbackQuery(ctx, callbackID); err != nil {
			p.log.Warn("failed to answer callback query", zap.Error(err))
		}
	}
	if reply.Text == "" {
		return
	}
	if err := p.client.SendMessage(ctx, chatID, renderText(reply), renderKeyboard(reply)); err != nil {
		p.log.Warn("failed to send reply",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// eventFromUpdate maps a Telegram update onto a chat event. Updates
// without a usable sender or text are dropped.
func eventFromUpdate(update Update) (ev domain.ChatEvent, chatID int64, callbackID string, ok bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil || cb.Message == nil {
			return ev, 0, "", false
		}
		return domain.ChatEvent{
			AccountID:   strconv.FormatInt(cb.From.ID, 10),
			DisplayName: senderName(cb.From),
			Callback:    cb.Data,
		}, cb.Message.Chat.ID, cb.ID, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Text == "" {
			return ev, 0, "", false
		}
		return domain.ChatEvent{
			AccountID:   strconv.FormatInt(msg.From.ID, 10),
			DisplayName: senderName(msg.From),
			Text:        msg.Text,
		}, msg.Chat.ID, "", true
	}
	return ev, 0, "", false
}

func senderName(u *TGUser) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

func renderText(reply domain.Reply) string {
	if reply.TweetText == "" {
		return reply.Text
	}
	link := "https://twitter.com/intent/tweet?text=" + url.QueryEscape(reply.TweetText)
	return fmt.Sprintf("%s\n\n[Click here to tweet](%s)", reply.Text, link)
}

func renderKeyboard(reply domain.Reply) *InlineKeyboardMarkup {
	if len(reply.Options) == 0 {
		return nil
	}
	rows := make([][]InlineKeyboardButton, 0, len(reply.Options))
	for _, opt := range reply.Options {
		rows = append(rows, []InlineKeyboardButton{{
			Text:         opt.Label,
			CallbackData: opt.Data,
		}})
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}
