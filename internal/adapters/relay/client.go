package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/core/domain"
	"github.com/snipechecks/snipebot/internal/core/service"
)

const (
	dialTimeout    = 10 * time.Second
	initialBackoff = 2 * time.Second
	maxBackoff     = 30 * time.Second
	writeWait      = 10 * time.Second
)

// inboundFrame is what the relay pushes for each user message.
type inboundFrame struct {
	Type        string `json:"type"`
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name,omitempty"`
	Text        string `json:"text,omitempty"`
	Callback    string `json:"callback,omitempty"`
}

// outboundFrame carries the bot's reply back through the relay.
type outboundFrame struct {
	Type      string        `json:"type"`
	AccountID string        `json:"account_id"`
	Text      string        `json:"text"`
	Options   []replyOption `json:"options,omitempty"`
	TweetText string        `json:"tweet_text,omitempty"`
}

type replyOption struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Client connects the bot to a websocket relay that fans chat traffic in
// and out. The connection is re-dialed with capped backoff whenever it
// drops.
type Client struct {
	relayURL string
	bot      *service.Bot
	log      *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(relayURL string, bot *service.Bot, log *zap.Logger) *Client {
	return &Client{
		relayURL: relayURL,
		bot:      bot,
		log:      log.Named("relay"),
	}
}

// Run dials the relay and processes frames until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.connectAndServe(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("relay connection lost, reconnecting",
				zap.Duration("backoff", backoff),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.relayURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer conn.Close()
	c.log.Info("connected to relay", zap.String("url", c.relayURL))

	// Close the socket when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read relay frame: %w", err)
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Warn("dropping malformed relay frame", zap.Error(err))
			continue
		}
		if frame.Type != "message" || frame.AccountID == "" {
			continue
		}

		reply := c.bot.HandleEvent(ctx, domain.ChatEvent{
			AccountID:   frame.AccountID,
			DisplayName: frame.DisplayName,
			Text:        frame.Text,
			Callback:    frame.Callback,
		})
		if reply.Text == "" {
			continue
		}
		if err := c.send(frame.AccountID, reply); err != nil {
			c.log.Warn("failed to send relay reply",
				zap.String("account_id", frame.AccountID),
				zap.Error(err))
		}
	}
}

func (c *Client) send(accountID string, reply domain.Reply) error {
	out := outboundFrame{
		Type:      "reply",
		AccountID: accountID,
		Text:      reply.Text,
		TweetText: reply.TweetText,
	}
	for _, opt := range reply.Options {
		out.Options = append(out.Options, replyOption{Label: opt.Label, Data: opt.Data})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode reply frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("relay not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write reply frame: %w", err)
	}
	return nil
}
