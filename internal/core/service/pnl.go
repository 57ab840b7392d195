package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

// leaderboardSize is how many ranked entries survive truncation for display.
const leaderboardSize = 10

// PnLEngine computes per-call and aggregate profit/loss against live prices.
// It is pure computation over repository reads plus one batched price fetch
// per operation; all monetary values are unrounded USD floats.
type PnLEngine struct {
	repo   domain.Repository
	prices domain.PriceSource
	log    *zap.Logger
}

func NewPnLEngine(repo domain.Repository, prices domain.PriceSource, log *zap.Logger) *PnLEngine {
	return &PnLEngine{repo: repo, prices: prices, log: log.Named("pnl")}
}

// CallPnL computes the signed PnL of a single call at currentPrice.
// BUY gains when the price rose since logging, SELL gains when it fell.
func CallPnL(call domain.Call, currentPrice float64) float64 {
	switch call.Action {
	case domain.ActionSell:
		return (call.PriceAtCall - currentPrice) * call.Units
	default:
		return (currentPrice - call.PriceAtCall) * call.Units
	}
}

// priceCalls resolves each call against the quote map. A call whose symbol
// has no quote counts as flat (PnL 0) rather than being excluded, so totals
// stay stable under partial price outages.
func priceCalls(calls []domain.Call, quotes map[string]float64) ([]domain.CallPnL, float64) {
	entries := make([]domain.CallPnL, 0, len(calls))
	var total float64
	for _, c := range calls {
		price, ok := quotes[c.Symbol]
		e := domain.CallPnL{Call: c, CurrentPrice: price, Priced: ok}
		if ok {
			e.PnL = CallPnL(c, price)
		}
		total += e.PnL
		entries = append(entries, e)
	}
	return entries, total
}

func distinctSymbols(calls []domain.Call) []string {
	seen := make(map[string]struct{}, len(calls))
	var symbols []string
	for _, c := range calls {
		if _, ok := seen[c.Symbol]; ok {
			continue
		}
		seen[c.Symbol] = struct{}{}
		symbols = append(symbols, c.Symbol)
	}
	return symbols
}

// PortfolioSummary builds the per-user PnL view. All distinct symbols across
// the user's calls go out in a single batched price request.
func (e *PnLEngine) PortfolioSummary(ctx context.Context, user *domain.User) (*domain.PortfolioSummary, error) {
	calls, err := e.repo.CallsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calls for user %s: %w", user.ID, err)
	}

	quotes := e.prices.GetPrices(ctx, distinctSymbols(calls))
	entries, total := priceCalls(calls, quotes)

	return &domain.PortfolioSummary{
		User:      user,
		Entries:   entries,
		TotalPnL:  total,
		Wallets:   user.Wallets,
		Contracts: user.Contracts,
	}, nil
}

// Leaderboard ranks all users by total PnL, descending, ties kept in
// first-seen order, truncated to the top entries for display. Prices for
// every distinct symbol system-wide are fetched in one batch so the number
// of upstream calls stays constant regardless of user count.
func (e *PnLEngine) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	users, err := e.repo.AllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	calls, err := e.repo.AllCalls(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load calls: %w", err)
	}

	quotes := e.prices.GetPrices(ctx, distinctSymbols(calls))

	totals := make(map[string]float64, len(users))
	for _, c := range calls {
		price, ok := quotes[c.Symbol]
		if !ok {
			continue
		}
		totals[c.UserID] += CallPnL(c, price)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i := range users {
		entries = append(entries, domain.LeaderboardEntry{
			User:     &users[i],
			TotalPnL: totals[users[i].ID],
		})
	}

	// Stable sort keeps equal totals in first-seen order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPnL > entries[j].TotalPnL
	})

	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries, nil
}
