package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

// MemoryRepository is the in-process Repository used by tests and the
// simulator. It preserves first-seen user order and enforces the same
// invariants as the Mongo implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	users []*domain.User
	byAcc map[string]*domain.User
	calls []domain.Call
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byAcc: make(map[string]*domain.User)}
}

func (r *MemoryRepository) GetOrCreateUser(ctx context.Context, accountID, displayName string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byAcc[accountID]; ok {
		return copyUser(u), nil
	}
	u := &domain.User{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		DisplayName: displayName,
		CreatedAt:   timeNow(),
	}
	r.users = append(r.users, u)
	r.byAcc[accountID] = u
	return copyUser(u), nil
}

func (r *MemoryRepository) AllUsers(ctx context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *copyUser(u))
	}
	return out, nil
}

func (r *MemoryRepository) AddWallet(ctx context.Context, userID string, w domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.findLocked(userID)
	if err != nil {
		return err
	}
	u.Wallets = append(u.Wallets, w)
	return nil
}

func (r *MemoryRepository) AddContract(ctx context.Context, userID string, c domain.ContractAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.findLocked(userID)
	if err != nil {
		return err
	}
	for _, existing := range u.Contracts {
		if existing.Address == c.Address {
			return domain.ErrDuplicateContract
		}
	}
	u.Contracts = append(u.Contracts, c)
	return nil
}

func (r *MemoryRepository) FindDuplicateContract(ctx context.Context, userID, address string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, err := r.findLocked(userID)
	if err != nil {
		return false, err
	}
	for _, c := range u.Contracts {
		if c.Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) LogCall(ctx context.Context, call domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return nil
}

func (r *MemoryRepository) CallsByUser(ctx context.Context, userID string) ([]domain.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Call
	for _, c := range r.calls {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) AllCalls(ctx context.Context) ([]domain.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Call, len(r.calls))
	copy(out, r.calls)
	return out, nil
}

func (r *MemoryRepository) UpdateWalletBalance(ctx context.Context, userID, walletID string, balance float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.findLocked(userID)
	if err != nil {
		return err
	}
	for i := range u.Wallets {
		if u.Wallets[i].WalletID == walletID {
			u.Wallets[i].Balance = balance
			return nil
		}
	}
	return domain.ErrUnknownWallet
}

func (r *MemoryRepository) findLocked(userID string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func copyUser(u *domain.User) *domain.User {
	out := *u
	out.Wallets = append([]domain.Wallet(nil), u.Wallets...)
	out.Contracts = append([]domain.ContractAddress(nil), u.Contracts...)
	return &out
}
