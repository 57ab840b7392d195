package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

const msgTryLater = "Something went wrong on our side. Please try again later."

const msgWelcome = `Welcome to the Snipe Checks Bot 🤖✨

Log your trades and see how your calls stack up against everyone else:
1) 🏹 Paste any Solana CA in the chat to start tracking it.
2) 📈 Log BUY/SELL calls with /buy and /sell — we track the PnL live.
3) 🏆 Check /leaderboard to see whose calls actually print.

Commands:
  /addwallet - register a wallet
  /buy, /sell - log a trade
  /portfolio - your calls and PnL
  /leaderboard - the top 10 📈
  /share - share your picks on Twitter 🐦
  /cancel - abort the current conversation`

// Bot is the dispatcher: every inbound chat event enters through
// HandleEvent, which routes it to commands, the user's open session, or
// contract-address capture, and returns the response payload for the
// transport to render.
type Bot struct {
	repo     domain.Repository
	prices   domain.PriceSource
	sessions domain.SessionStore
	balances domain.BalanceService
	engine   *PnLEngine
	log      *zap.Logger

	// now is injectable for tests.
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBot(
	repo domain.Repository,
	prices domain.PriceSource,
	sessions domain.SessionStore,
	balances domain.BalanceService,
	engine *PnLEngine,
	log *zap.Logger,
) *Bot {
	return &Bot{
		repo:     repo,
		prices:   prices,
		sessions: sessions,
		balances: balances,
		engine:   engine,
		log:      log.Named("bot"),
		now:      func() time.Time { return time.Now().UTC() },
		locks:    make(map[string]*sync.Mutex),
	}
}

// HandleEvent processes one chat event and returns the reply. Events for
// the same account are applied in arrival order (per-account lock); events
// for different accounts may run concurrently. A panic anywhere below is
// recovered here so a single bad event can never take the dispatcher down.
func (b *Bot) HandleEvent(ctx context.Context, ev domain.ChatEvent) (reply domain.Reply) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("recovered from panic in event handler",
				zap.String("account_id", ev.AccountID),
				zap.String("text", ev.Text),
				zap.Any("panic", r),
				zap.Stack("stack"))
			reply = domain.Reply{Text: msgTryLater}
		}
	}()

	lock := b.accountLock(ev.AccountID)
	lock.Lock()
	defer lock.Unlock()

	user, err := b.repo.GetOrCreateUser(ctx, ev.AccountID, ev.DisplayName)
	if err != nil {
		return b.degraded("get or create user", ev.AccountID, err)
	}

	if ev.Callback != "" {
		return b.handleCallback(ctx, user, ev.Callback)
	}

	text := strings.TrimSpace(ev.Text)
	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, user, text)
	}

	session, err := b.sessions.Get(ctx, user.AccountID)
	if err != nil {
		b.log.Warn("failed to load session, treating as none",
			zap.String("account_id", user.AccountID), zap.Error(err))
		session = nil
	}
	if session != nil {
		return b.handleSessionInput(ctx, user, session, text)
	}

	if domain.IsValidSolanaAddress(text) {
		return b.handleContractAddress(ctx, user, text)
	}

	return domain.Reply{Text: "I didn't catch that. Paste a Solana CA to track it, or see /help for commands."}
}

// handleCommand routes slash commands. /buy, /sell and /addwallet are entry
// points: issuing one while a session is open silently abandons the old
// session and starts fresh.
func (b *Bot) handleCommand(ctx context.Context, user *domain.User, text string) domain.Reply {
	cmd := strings.ToLower(strings.Fields(text)[0])
	// Telegram group chats address commands as /cmd@BotName.
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}

	switch cmd {
	case "/start", "/help":
		return domain.Reply{Text: msgWelcome}
	case "/buy":
		return b.startTradeSession(ctx, user, domain.ActionBuy)
	case "/sell":
		return b.startTradeSession(ctx, user, domain.ActionSell)
	case "/trade":
		return b.startTradeSession(ctx, user, "")
	case "/addwallet":
		return b.startWalletSession(ctx, user)
	case "/cancel":
		return b.cancelSession(ctx, user)
	case "/leaderboard":
		return b.leaderboardReply(ctx)
	case "/portfolio":
		return b.portfolioReply(ctx, user)
	case "/share":
		return b.shareReply(ctx, user)
	}
	return domain.Reply{Text: "Unknown command. See /help."}
}

func (b *Bot) leaderboardReply(ctx context.Context) domain.Reply {
	entries, err := b.engine.Leaderboard(ctx)
	if err != nil {
		return b.degraded("compute leaderboard", "", err)
	}
	if len(entries) == 0 {
		return domain.Reply{Text: "No calls logged yet. Be the first — log one with /buy!"}
	}

	var sb strings.Builder
	sb.WriteString("🏆 Snipe Checks Leaderboard 🏆\n\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, displayName(e.User), formatUSD(e.TotalPnL))
	}
	return domain.Reply{Text: sb.String()}
}

func (b *Bot) portfolioReply(ctx context.Context, user *domain.User) domain.Reply {
	summary, err := b.engine.PortfolioSummary(ctx, user)
	if err != nil {
		return b.degraded("compute portfolio", user.AccountID, err)
	}
	if len(summary.Entries) == 0 && len(summary.Wallets) == 0 && len(summary.Contracts) == 0 {
		return domain.Reply{Text: "Your portfolio is empty. Register a wallet with /addwallet and log a trade with /buy."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 %s's portfolio\n\n", displayName(user))
	for _, e := range summary.Entries {
		line := fmt.Sprintf("%s %s %s @ $%.8f", e.Call.Action, trimFloat(e.Call.Units), e.Call.Symbol, e.Call.PriceAtCall)
		if e.Priced {
			fmt.Fprintf(&sb, "%s → %s\n", line, formatUSD(e.PnL))
		} else {
			fmt.Fprintf(&sb, "%s → no price data\n", line)
		}
	}
	if len(summary.Entries) > 0 {
		fmt.Fprintf(&sb, "\nTotal PnL: %s\n", formatUSD(summary.TotalPnL))
	}
	if len(summary.Wallets) > 0 {
		sb.WriteString("\nWallets:\n")
		for _, w := range summary.Wallets {
			fmt.Fprintf(&sb, "  %s (%s) — %.4f SOL\n", w.WalletID, shortAddress(w.Address), w.Balance)
		}
	}
	if len(summary.Contracts) > 0 {
		sb.WriteString("\nTracked CAs:\n")
		for _, c := range summary.Contracts {
			fmt.Fprintf(&sb, "  %s\n", c.Address)
		}
	}
	return domain.Reply{Text: sb.String()}
}

// shareReply builds the tweet text; the transport wraps it in an intent link.
func (b *Bot) shareReply(ctx context.Context, user *domain.User) domain.Reply {
	summary, err := b.engine.PortfolioSummary(ctx, user)
	if err != nil {
		return b.degraded("compute portfolio for share", user.AccountID, err)
	}
	if len(summary.Entries) == 0 {
		return domain.Reply{Text: "You have no calls to share yet. Log one with /buy!"}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s's Snipe Checks picks:\n\n", displayName(user))
	for _, e := range summary.Entries {
		fmt.Fprintf(&sb, "%s %s => %s\n", e.Call.Action, e.Call.Symbol, formatUSD(e.PnL))
	}
	fmt.Fprintf(&sb, "\nTotal PnL: %s\nShared via #SnipeChecksBot", formatUSD(summary.TotalPnL))

	return domain.Reply{
		Text:      "Share your picks on Twitter 🐦",
		TweetText: sb.String(),
	}
}

// degraded logs an upstream failure with context and returns the generic
// try-again reply; internal errors never propagate past the dispatcher.
func (b *Bot) degraded(op, accountID string, err error) domain.Reply {
	b.log.Error("operation degraded",
		zap.String("op", op),
		zap.String("account_id", accountID),
		zap.Error(err))
	return domain.Reply{Text: msgTryLater}
}

func (b *Bot) accountLock(accountID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[accountID] = l
	}
	return l
}

func displayName(u *domain.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "Anonymous"
}

// formatUSD renders a signed dollar amount rounded to cents. Rounding is
// presentation only; the engine itself never rounds.
func formatUSD(v float64) string {
	sign := "+"
	if v < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s$%.2f", sign, math.Abs(v))
}
