package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/adapters/sessions"
	"github.com/snipechecks/snipebot/internal/adapters/storage"
	"github.com/snipechecks/snipebot/internal/core/domain"
)

const (
	testAccount = "acct-test"
	testWallet  = "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2"
	testCA      = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

type stubBalances struct {
	balance float64
}

func (s *stubBalances) GetBalance(ctx context.Context, address string) (float64, error) {
	return s.balance, nil
}

type panicPrices struct{}

func (p *panicPrices) GetPrices(ctx context.Context, symbols []string) map[string]float64 {
	panic("oracle exploded")
}

func newTestBot(t *testing.T, prices domain.PriceSource) (*Bot, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	engine := NewPnLEngine(repo, prices, zap.NewNop())
	bot := NewBot(repo, prices, sessions.NewMemoryStore(), &stubBalances{balance: 1.5}, engine, zap.NewNop())
	return bot, repo
}

func say(bot *Bot, text string) domain.Reply {
	return bot.HandleEvent(context.Background(), domain.ChatEvent{
		AccountID:   testAccount,
		DisplayName: "tester",
		Text:        text,
	})
}

func press(bot *Bot, data string) domain.Reply {
	return bot.HandleEvent(context.Background(), domain.ChatEvent{
		AccountID:   testAccount,
		DisplayName: "tester",
		Callback:    data,
	})
}

func registerWallet(t *testing.T, bot *Bot) {
	t.Helper()
	say(bot, "/addwallet")
	if reply := say(bot, testWallet); !strings.Contains(reply.Text, "registered") {
		t.Fatalf("wallet registration reply = %q", reply.Text)
	}
}

func TestTradeFlowLogsSingleCall(t *testing.T) {
	ctx := context.Background()
	prices := &stubPrices{quotes: map[string]float64{"SOL": 150}}
	bot, repo := newTestBot(t, prices)
	registerWallet(t, bot)

	say(bot, "/buy")
	say(bot, "SOL")
	reply := say(bot, "2.5")
	if len(reply.Options) != 1 {
		t.Fatalf("wallet prompt options = %d, want 1", len(reply.Options))
	}

	reply = press(bot, reply.Options[0].Data)
	if !strings.Contains(reply.Text, "Logged BUY") {
		t.Fatalf("commit reply = %q", reply.Text)
	}

	calls, err := repo.AllCalls(ctx)
	if err != nil {
		t.Fatalf("AllCalls: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want exactly 1", len(calls))
	}
	call := calls[0]
	if call.Action != domain.ActionBuy || call.Symbol != "SOL" || call.Units != 2.5 || call.PriceAtCall != 150 {
		t.Errorf("call = %+v, want BUY 2.5 SOL @ 150", call)
	}

	// The session is gone: plain text falls through to the default hint.
	if reply := say(bot, "hello"); !strings.Contains(reply.Text, "didn't catch") {
		t.Errorf("post-commit reply = %q, want fallback hint", reply.Text)
	}
}

func TestInvalidInputRepromptsInPlace(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{"SOL": 150}}
	bot, repo := newTestBot(t, prices)
	registerWallet(t, bot)

	say(bot, "/trade")
	if reply := say(bot, "hold"); !strings.Contains(reply.Text, "BUY or SELL") {
		t.Errorf("bad action reply = %q", reply.Text)
	}
	say(bot, "sell")
	if reply := say(bot, "not-a-ticker"); !strings.Contains(reply.Text, "ticker") {
		t.Errorf("bad symbol reply = %q", reply.Text)
	}
	say(bot, "SOL")
	if reply := say(bot, "-5"); !strings.Contains(reply.Text, "positive") {
		t.Errorf("bad units reply = %q", reply.Text)
	}

	// The session survived every rejection; valid input still advances.
	reply := say(bot, "3")
	if len(reply.Options) != 1 {
		t.Fatalf("wallet prompt options = %d, want 1", len(reply.Options))
	}
	press(bot, reply.Options[0].Data)

	calls, _ := repo.AllCalls(context.Background())
	if len(calls) != 1 || calls[0].Units != 3 || calls[0].Action != domain.ActionSell {
		t.Fatalf("calls = %+v, want one SELL of 3 units", calls)
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{"SOL": 150}}
	bot, repo := newTestBot(t, prices)
	registerWallet(t, bot)

	say(bot, "/buy")
	say(bot, "SOL")
	if reply := say(bot, "/cancel"); !strings.Contains(reply.Text, "Nothing was saved") {
		t.Errorf("cancel reply = %q", reply.Text)
	}

	calls, _ := repo.AllCalls(context.Background())
	if len(calls) != 0 {
		t.Fatalf("calls after cancel = %d, want 0", len(calls))
	}

	// A fresh session opens cleanly after cancellation.
	if reply := say(bot, "/buy"); !strings.Contains(reply.Text, "ticker") {
		t.Errorf("reopen reply = %q, want symbol prompt", reply.Text)
	}
}

func TestNoWalletsEndsTradeSession(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{"SOL": 150}}
	bot, repo := newTestBot(t, prices)

	say(bot, "/buy")
	say(bot, "SOL")
	if reply := say(bot, "2"); !strings.Contains(reply.Text, "/addwallet") {
		t.Errorf("no-wallet reply = %q, want /addwallet guidance", reply.Text)
	}

	// The session terminated: the next text is not treated as wallet input.
	if reply := say(bot, "1"); !strings.Contains(reply.Text, "didn't catch") {
		t.Errorf("post-termination reply = %q, want fallback hint", reply.Text)
	}
	calls, _ := repo.AllCalls(context.Background())
	if len(calls) != 0 {
		t.Fatalf("calls = %d, want 0", len(calls))
	}
}

func TestEntryPointCommandAbandonsOpenSession(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{"SOL": 150}}
	bot, repo := newTestBot(t, prices)

	say(bot, "/buy")
	say(bot, "/addwallet")
	// The pasted address feeds the wallet session, not the abandoned trade.
	if reply := say(bot, testWallet); !strings.Contains(reply.Text, "registered") {
		t.Fatalf("wallet reply = %q", reply.Text)
	}

	user, _ := repo.GetOrCreateUser(context.Background(), testAccount, "tester")
	if len(user.Wallets) != 1 {
		t.Errorf("wallets = %d, want 1", len(user.Wallets))
	}
	calls, _ := repo.AllCalls(context.Background())
	if len(calls) != 0 {
		t.Errorf("calls = %d, want 0", len(calls))
	}
}

func TestContractCaptureIsIdempotent(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{}}
	bot, repo := newTestBot(t, prices)

	if reply := say(bot, testCA); !strings.Contains(reply.Text, "Now tracking") {
		t.Fatalf("first paste reply = %q", reply.Text)
	}
	if reply := say(bot, testCA); !strings.Contains(reply.Text, "already tracking") {
		t.Fatalf("second paste reply = %q", reply.Text)
	}

	user, _ := repo.GetOrCreateUser(context.Background(), testAccount, "tester")
	if len(user.Contracts) != 1 {
		t.Errorf("contracts = %d, want 1", len(user.Contracts))
	}
}

func TestCommitWithoutPriceKeepsSessionOpen(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{}}
	bot, _ := newTestBot(t, prices)
	registerWallet(t, bot)

	say(bot, "/buy")
	say(bot, "XYZ")
	reply := say(bot, "1")
	if len(reply.Options) != 1 {
		t.Fatalf("wallet prompt options = %d, want 1", len(reply.Options))
	}
	data := reply.Options[0].Data

	if reply := press(bot, data); !strings.Contains(reply.Text, "Could not fetch a price") {
		t.Fatalf("unpriced commit reply = %q", reply.Text)
	}

	// Once the upstream recovers the same selection commits.
	prices.quotes["XYZ"] = 0.5
	if reply := press(bot, data); !strings.Contains(reply.Text, "Logged BUY") {
		t.Fatalf("retry commit reply = %q", reply.Text)
	}
}

func TestStaleCallbackIsRejected(t *testing.T) {
	prices := &stubPrices{quotes: map[string]float64{"SOL": 150}}
	bot, repo := newTestBot(t, prices)

	if reply := press(bot, "wallet:1"); !strings.Contains(reply.Text, "no longer active") {
		t.Errorf("stale callback reply = %q", reply.Text)
	}
	calls, _ := repo.AllCalls(context.Background())
	if len(calls) != 0 {
		t.Errorf("calls = %d, want 0", len(calls))
	}
}

func TestPanicInHandlerIsRecovered(t *testing.T) {
	bot, _ := newTestBot(t, &panicPrices{})

	if reply := say(bot, "/leaderboard"); reply.Text != msgTryLater {
		t.Errorf("reply after panic = %q, want %q", reply.Text, msgTryLater)
	}
	// The dispatcher is still alive afterwards.
	if reply := say(bot, "/help"); !strings.Contains(reply.Text, "Snipe Checks") {
		t.Errorf("follow-up reply = %q", reply.Text)
	}
}
