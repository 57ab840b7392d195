package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/adapters/chain"
	"github.com/snipechecks/snipebot/internal/adapters/price"
	"github.com/snipechecks/snipebot/internal/adapters/sessions"
	"github.com/snipechecks/snipebot/internal/adapters/storage"
	"github.com/snipechecks/snipebot/internal/core/domain"
	"github.com/snipechecks/snipebot/internal/core/service"
)

// scriptedOracle serves canned quotes so the simulation runs offline.
type scriptedOracle struct {
	quotes map[string]float64
}

func (o *scriptedOracle) FetchQuotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, sym := range symbols {
		if p, ok := o.quotes[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

func main() {
	logger := zap.NewNop()

	// 1. Wire the bot against in-memory adapters.
	repo := storage.NewMemoryRepository()
	store := sessions.NewMemoryStore()
	oracle := &scriptedOracle{quotes: map[string]float64{"SOL": 150.0, "BONK": 0.00002}}
	cache := price.NewCache(oracle, time.Minute, 16, logger)
	balances := chain.NewSolanaService("")
	engine := service.NewPnLEngine(repo, cache, logger)
	bot := service.NewBot(repo, cache, store, balances, engine, logger)

	ctx := context.Background()
	user := func(text string) domain.ChatEvent {
		return domain.ChatEvent{AccountID: "42", DisplayName: "simulated_user", Text: text}
	}

	// 2. Walk one full conversation: wallet registration, a BUY call,
	// then the portfolio view.
	script := []domain.ChatEvent{
		user("/start"),
		user("/addwallet"),
		user("7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2"),
		user("/buy"),
		user("SOL"),
		user("2.5"),
		{AccountID: "42", DisplayName: "simulated_user", Callback: "wallet:1"},
		user("/portfolio"),
	}

	for _, ev := range script {
		label := ev.Text
		if label == "" {
			label = "callback " + ev.Callback
		}
		log.Printf("> %s", label)
		reply := bot.HandleEvent(ctx, ev)
		out, _ := json.MarshalIndent(reply, "", "  ")
		fmt.Println(string(out))
	}
}
