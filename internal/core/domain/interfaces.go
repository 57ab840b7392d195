package domain

import (
	"context"
	"errors"
)

// Sentinel errors crossing the port boundaries.
var (
	ErrDuplicateContract = errors.New("contract address already tracked for this user")
	ErrUnknownWallet     = errors.New("wallet not registered for this user")
	ErrUserNotFound      = errors.New("user not found")
)

// Repository persists users, wallets, contract addresses and calls.
// All operations are append-style except UpdateWalletBalance, which is the
// single mutable-field path in the model.
type Repository interface {
	// GetOrCreateUser is idempotent: a second call with the same accountID
	// returns the already-created record, including when two first contacts
	// race (the unique-constraint violation is treated as "already exists").
	GetOrCreateUser(ctx context.Context, accountID, displayName string) (*User, error)

	// AllUsers returns every user in first-seen (creation) order.
	AllUsers(ctx context.Context) ([]User, error)

	AddWallet(ctx context.Context, userID string, w Wallet) error

	// AddContract appends a contract address; it returns ErrDuplicateContract
	// when the user already tracks the address.
	AddContract(ctx context.Context, userID string, c ContractAddress) error

	// FindDuplicateContract reports whether the user already tracks address.
	FindDuplicateContract(ctx context.Context, userID, address string) (bool, error)

	LogCall(ctx context.Context, call Call) error
	CallsByUser(ctx context.Context, userID string) ([]Call, error)
	AllCalls(ctx context.Context) ([]Call, error)

	UpdateWalletBalance(ctx context.Context, userID, walletID string, balance float64) error
}

// PriceOracle fetches spot prices from the external quote provider.
// It may fail; callers treat failure as "no data".
type PriceOracle interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]float64, error)
}

// PriceSource is the caching price surface the core computes against.
// GetPrices never fails: symbols that could not be resolved are simply
// absent from the returned map.
type PriceSource interface {
	GetPrices(ctx context.Context, symbols []string) map[string]float64
}

// SessionStore keeps the per-user conversation state. Get returns
// (nil, nil) when no session is open for the key.
type SessionStore interface {
	Get(ctx context.Context, userKey string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userKey string) error
}

// BalanceService resolves a wallet address to its on-chain balance.
// Strictly best-effort: failures leave the stored balance unchanged.
type BalanceService interface {
	GetBalance(ctx context.Context, address string) (float64, error)
}
