package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

const walletCallbackPrefix = "wallet:"

// Conversation prompts. Validation failures re-prompt in place and never
// abort the session.
const (
	promptAction  = "Are you logging a BUY or a SELL?"
	promptSymbol  = "Which ticker? (1-5 letters, e.g. SOL)"
	promptUnits   = "How many units?"
	promptWallet  = "Which wallet is this trade on?"
	promptAddress = "Paste the Solana wallet address to register."

	msgNoWallets = "You have no wallets registered yet. Use /addwallet to register one, then log your trade again."
	msgCancelled = "Cancelled. Nothing was saved."
)

// startTradeSession opens a fresh trade-entry session, silently abandoning
// any session already open for the user. With a pre-filled action (/buy,
// /sell) the conversation starts at the symbol step.
func (b *Bot) startTradeSession(ctx context.Context, user *domain.User, action domain.Action) domain.Reply {
	s := &domain.Session{UserKey: user.AccountID, State: domain.StateAwaitingAction}
	prompt := promptAction
	if action != "" {
		s.State = domain.StateAwaitingSymbol
		s.Draft.Action = action
		prompt = promptSymbol
	}
	if err := b.sessions.Put(ctx, s); err != nil {
		return b.degraded("open trade session", user.AccountID, err)
	}
	return domain.Reply{Text: prompt}
}

// startWalletSession opens the single-step wallet-registration session.
func (b *Bot) startWalletSession(ctx context.Context, user *domain.User) domain.Reply {
	s := &domain.Session{UserKey: user.AccountID, State: domain.StateAwaitingAddress}
	if err := b.sessions.Put(ctx, s); err != nil {
		return b.degraded("open wallet session", user.AccountID, err)
	}
	return domain.Reply{Text: promptAddress}
}

// cancelSession tears down the open session, if any, without persisting.
func (b *Bot) cancelSession(ctx context.Context, user *domain.User) domain.Reply {
	s, err := b.sessions.Get(ctx, user.AccountID)
	if err == nil && s == nil {
		return domain.Reply{Text: "Nothing to cancel."}
	}
	if err := b.sessions.Delete(ctx, user.AccountID); err != nil {
		b.log.Warn("failed to delete session", zap.String("account_id", user.AccountID), zap.Error(err))
	}
	return domain.Reply{Text: msgCancelled}
}

// handleSessionInput applies one text input to the open session. Each state
// validates its own field: valid input stores the field and advances,
// invalid input re-prompts without a state change.
func (b *Bot) handleSessionInput(ctx context.Context, user *domain.User, s *domain.Session, text string) domain.Reply {
	switch s.State {
	case domain.StateAwaitingAction:
		action := domain.Action(strings.ToUpper(strings.TrimSpace(text)))
		if action != domain.ActionBuy && action != domain.ActionSell {
			return domain.Reply{Text: "Please answer BUY or SELL. " + promptAction}
		}
		s.Draft.Action = action
		s.State = domain.StateAwaitingSymbol
		return b.saveAndPrompt(ctx, s, promptSymbol)

	case domain.StateAwaitingSymbol:
		symbol := strings.ToUpper(strings.TrimSpace(text))
		if !domain.IsValidSymbol(symbol) {
			return domain.Reply{Text: "That doesn't look like a ticker. " + promptSymbol}
		}
		s.Draft.Symbol = symbol
		s.State = domain.StateAwaitingUnits
		return b.saveAndPrompt(ctx, s, promptUnits)

	case domain.StateAwaitingUnits:
		units, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || math.IsNaN(units) || math.IsInf(units, 0) || units <= 0 {
			return domain.Reply{Text: "Units must be a positive number. " + promptUnits}
		}
		s.Draft.Units = units
		return b.advanceToWalletSelection(ctx, user, s)

	case domain.StateAwaitingWallet:
		wallet, ok := resolveWallet(user.Wallets, text)
		if !ok {
			reply := b.walletPrompt(user.Wallets)
			reply.Text = "I don't know that wallet. " + reply.Text
			return reply
		}
		return b.commitCall(ctx, user, s, wallet)

	case domain.StateAwaitingAddress:
		return b.commitWallet(ctx, user, strings.TrimSpace(text))
	}

	// Unknown state in the store: drop the session rather than trapping the user.
	b.log.Error("session in unknown state", zap.String("account_id", user.AccountID), zap.String("state", string(s.State)))
	_ = b.sessions.Delete(ctx, user.AccountID)
	return domain.Reply{Text: msgTryLater}
}

// handleCallback resolves a structured option selection (wallet buttons).
func (b *Bot) handleCallback(ctx context.Context, user *domain.User, data string) domain.Reply {
	s, err := b.sessions.Get(ctx, user.AccountID)
	if err != nil {
		return b.degraded("load session", user.AccountID, err)
	}
	if s == nil || s.State != domain.StateAwaitingWallet {
		return domain.Reply{Text: "That selection is no longer active."}
	}
	walletID := strings.TrimPrefix(data, walletCallbackPrefix)
	wallet, ok := resolveWallet(user.Wallets, walletID)
	if !ok {
		return domain.Reply{Text: "That wallet is no longer registered. " + promptWallet}
	}
	return b.commitCall(ctx, user, s, wallet)
}

// advanceToWalletSelection moves a complete draft to the wallet step, or
// terminates the session with guidance when the user has nothing to select.
func (b *Bot) advanceToWalletSelection(ctx context.Context, user *domain.User, s *domain.Session) domain.Reply {
	if len(user.Wallets) == 0 {
		if err := b.sessions.Delete(ctx, user.AccountID); err != nil {
			b.log.Warn("failed to delete session", zap.String("account_id", user.AccountID), zap.Error(err))
		}
		return domain.Reply{Text: msgNoWallets}
	}
	s.State = domain.StateAwaitingWallet
	if err := b.sessions.Put(ctx, s); err != nil {
		return b.degraded("save session", user.AccountID, err)
	}
	return b.walletPrompt(user.Wallets)
}

func (b *Bot) walletPrompt(wallets []domain.Wallet) domain.Reply {
	options := make([]domain.ReplyOption, 0, len(wallets))
	for _, w := range wallets {
		options = append(options, domain.ReplyOption{
			Label: fmt.Sprintf("%s (%s)", w.WalletID, shortAddress(w.Address)),
			Data:  walletCallbackPrefix + w.WalletID,
		})
	}
	return domain.Reply{Text: promptWallet, Options: options}
}

// commitCall assembles and persists the call at the current price, then
// refreshes the wallet balance best-effort and destroys the session.
// When the price or the store is unavailable the session stays open so the
// user can re-select once the upstream recovers.
func (b *Bot) commitCall(ctx context.Context, user *domain.User, s *domain.Session, wallet domain.Wallet) domain.Reply {
	quotes := b.prices.GetPrices(ctx, []string{s.Draft.Symbol})
	price, ok := quotes[s.Draft.Symbol]
	if !ok {
		return domain.Reply{Text: fmt.Sprintf("Could not fetch a price for %s right now. Try again later.", s.Draft.Symbol)}
	}

	call := domain.Call{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Symbol:      s.Draft.Symbol,
		Action:      s.Draft.Action,
		Units:       s.Draft.Units,
		PriceAtCall: price,
		WalletID:    wallet.WalletID,
		Timestamp:   b.now(),
	}
	if err := b.repo.LogCall(ctx, call); err != nil {
		return b.degraded("log call", user.AccountID, err)
	}

	b.refreshWalletBalance(ctx, user, wallet)

	if err := b.sessions.Delete(ctx, user.AccountID); err != nil {
		b.log.Warn("failed to delete session after commit", zap.String("account_id", user.AccountID), zap.Error(err))
	}

	return domain.Reply{Text: fmt.Sprintf(
		"✅ Logged %s %s %s at $%.8f on wallet %s.\nUse /portfolio to track it or /leaderboard to see how you rank!",
		call.Action, trimFloat(call.Units), call.Symbol, call.PriceAtCall, wallet.WalletID,
	)}
}

// commitWallet validates and registers a wallet address, ending the
// wallet-registration session.
func (b *Bot) commitWallet(ctx context.Context, user *domain.User, address string) domain.Reply {
	if !domain.IsValidSolanaAddress(address) {
		return domain.Reply{Text: "That doesn't look like a Solana address. " + promptAddress}
	}

	wallet := domain.Wallet{
		WalletID:  shortID(),
		Address:   address,
		CreatedAt: b.now(),
	}
	if bal, err := b.balances.GetBalance(ctx, address); err == nil {
		wallet.Balance = bal
	} else {
		b.log.Warn("balance lookup failed, defaulting to 0",
			zap.String("address", shortAddress(address)), zap.Error(err))
	}

	if err := b.repo.AddWallet(ctx, user.ID, wallet); err != nil {
		return b.degraded("add wallet", user.AccountID, err)
	}
	if err := b.sessions.Delete(ctx, user.AccountID); err != nil {
		b.log.Warn("failed to delete session", zap.String("account_id", user.AccountID), zap.Error(err))
	}

	return domain.Reply{Text: fmt.Sprintf(
		"✅ Wallet %s registered for %s.\nYou can now log trades with /buy and /sell.",
		wallet.WalletID, shortAddress(address),
	)}
}

// handleContractAddress is the single-shot contract capture: a valid pasted
// address is committed unless the user already tracks it, in which case the
// insert is a no-op and the user gets a warning.
func (b *Bot) handleContractAddress(ctx context.Context, user *domain.User, address string) domain.Reply {
	dup, err := b.repo.FindDuplicateContract(ctx, user.ID, address)
	if err != nil {
		return b.degraded("check duplicate contract", user.AccountID, err)
	}
	if dup {
		return domain.Reply{Text: fmt.Sprintf("⚠️ You are already tracking %s. Nothing was added.", shortAddress(address))}
	}

	contract := domain.ContractAddress{
		ContractID: shortID(),
		Address:    address,
		CreatedAt:  b.now(),
	}
	err = b.repo.AddContract(ctx, user.ID, contract)
	if err == domain.ErrDuplicateContract {
		// Lost a race with a concurrent insert; already satisfied.
		return domain.Reply{Text: fmt.Sprintf("⚠️ You are already tracking %s. Nothing was added.", shortAddress(address))}
	}
	if err != nil {
		return b.degraded("add contract", user.AccountID, err)
	}

	return domain.Reply{Text: fmt.Sprintf(
		"🏹 Now tracking CA %s.\nUse /leaderboard to see how your picks rank!", shortAddress(address),
	)}
}

// refreshWalletBalance updates the stored balance from chain, best-effort.
func (b *Bot) refreshWalletBalance(ctx context.Context, user *domain.User, wallet domain.Wallet) {
	bal, err := b.balances.GetBalance(ctx, wallet.Address)
	if err != nil {
		b.log.Warn("wallet balance refresh failed",
			zap.String("wallet_id", wallet.WalletID), zap.Error(err))
		return
	}
	if err := b.repo.UpdateWalletBalance(ctx, user.ID, wallet.WalletID, bal); err != nil {
		b.log.Warn("wallet balance update failed",
			zap.String("wallet_id", wallet.WalletID), zap.Error(err))
	}
}

func (b *Bot) saveAndPrompt(ctx context.Context, s *domain.Session, prompt string) domain.Reply {
	if err := b.sessions.Put(ctx, s); err != nil {
		return b.degraded("save session", s.UserKey, err)
	}
	return domain.Reply{Text: prompt}
}

// resolveWallet matches free-form input to a registered wallet: exact
// wallet_id, exact address, or a 1-based list index.
func resolveWallet(wallets []domain.Wallet, input string) (domain.Wallet, bool) {
	input = strings.TrimSpace(input)
	for _, w := range wallets {
		if strings.EqualFold(w.WalletID, input) || w.Address == input {
			return w, true
		}
	}
	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(wallets) {
		return wallets[idx-1], true
	}
	return domain.Wallet{}, false
}

func shortID() string {
	return uuid.NewString()[:8]
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// trimFloat renders units without trailing zero noise.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
