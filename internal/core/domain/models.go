package domain

import "time"

// Action is the direction of a logged trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// User owns wallets, contract addresses and calls. Created lazily on first
// contact and never deleted. AccountID is the external stable identity
// (unique across all users); ID is the internal ownership key.
type User struct {
	ID          string            `bson:"_id" json:"id"`
	AccountID   string            `bson:"account_id" json:"account_id"`
	DisplayName string            `bson:"display_name" json:"display_name"`
	Wallets     []Wallet          `bson:"wallets" json:"wallets"`
	Contracts   []ContractAddress `bson:"contracts" json:"contracts"`
	CreatedAt   time.Time         `bson:"created_at" json:"created_at"`
}

// Wallet is a registered Solana wallet owned by exactly one user.
// Balance is best-effort and defaults to 0.
type Wallet struct {
	WalletID  string    `bson:"wallet_id" json:"wallet_id"`
	Address   string    `bson:"address" json:"address"`
	Balance   float64   `bson:"balance" json:"balance"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ContractAddress is a tracked token contract attached to a user.
// A user's contract list never holds the same address twice.
type ContractAddress struct {
	ContractID string    `bson:"contract_id" json:"contract_id"`
	Address    string    `bson:"address" json:"address"`
	Balance    float64   `bson:"balance" json:"balance"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Call is a logged BUY/SELL transaction entry. Immutable once created.
type Call struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	Symbol      string    `bson:"symbol" json:"symbol"`
	Action      Action    `bson:"action" json:"action"`
	Units       float64   `bson:"units" json:"units"`
	PriceAtCall float64   `bson:"price_at_call" json:"price_at_call"`
	WalletID    string    `bson:"wallet_id" json:"wallet_id"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// CallPnL pairs a call with its current price and signed profit/loss.
// Priced is false when the quote provider had no price for the symbol,
// in which case PnL is 0 and the call counts as flat.
type CallPnL struct {
	Call         Call    `json:"call"`
	CurrentPrice float64 `json:"current_price"`
	PnL          float64 `json:"pnl"`
	Priced       bool    `json:"priced"`
}

// PortfolioSummary is the per-user PnL view rendered by /portfolio and /share.
type PortfolioSummary struct {
	User      *User             `json:"user"`
	Entries   []CallPnL         `json:"entries"`
	TotalPnL  float64           `json:"total_pnl"`
	Wallets   []Wallet          `json:"wallets"`
	Contracts []ContractAddress `json:"contracts"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	User     *User   `json:"user"`
	TotalPnL float64 `json:"total_pnl"`
}
