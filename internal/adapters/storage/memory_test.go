package storage

import (
	"context"
	"testing"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first, err := repo.GetOrCreateUser(ctx, "acct-1", "alice")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	second, err := repo.GetOrCreateUser(ctx, "acct-1", "renamed")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("IDs differ: %s vs %s", first.ID, second.ID)
	}
	if second.DisplayName != "alice" {
		t.Errorf("display name = %s, want the original", second.DisplayName)
	}

	users, _ := repo.AllUsers(ctx)
	if len(users) != 1 {
		t.Errorf("users = %d, want 1", len(users))
	}
}

func TestAllUsersFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := repo.GetOrCreateUser(ctx, "acct-"+name, name); err != nil {
			t.Fatalf("GetOrCreateUser: %v", err)
		}
	}

	users, err := repo.AllUsers(ctx)
	if err != nil {
		t.Fatalf("AllUsers: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if users[i].DisplayName != want {
			t.Errorf("users[%d] = %s, want %s", i, users[i].DisplayName, want)
		}
	}
}

func TestAddContractRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, _ := repo.GetOrCreateUser(ctx, "acct-1", "alice")

	c := domain.ContractAddress{ContractID: "c1", Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"}
	if err := repo.AddContract(ctx, user.ID, c); err != nil {
		t.Fatalf("first AddContract: %v", err)
	}
	if err := repo.AddContract(ctx, user.ID, c); err != domain.ErrDuplicateContract {
		t.Errorf("second AddContract err = %v, want ErrDuplicateContract", err)
	}

	dup, err := repo.FindDuplicateContract(ctx, user.ID, c.Address)
	if err != nil || !dup {
		t.Errorf("FindDuplicateContract = %v, %v, want true, nil", dup, err)
	}
}

func TestUpdateWalletBalance(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, _ := repo.GetOrCreateUser(ctx, "acct-1", "alice")

	if err := repo.UpdateWalletBalance(ctx, user.ID, "nope", 1); err != domain.ErrUnknownWallet {
		t.Errorf("unknown wallet err = %v, want ErrUnknownWallet", err)
	}

	w := domain.Wallet{WalletID: "w1", Address: "7Np41oeYqPefeNQEHSv1UDhYrehxin3NStELsSKCT4K2"}
	if err := repo.AddWallet(ctx, user.ID, w); err != nil {
		t.Fatalf("AddWallet: %v", err)
	}
	if err := repo.UpdateWalletBalance(ctx, user.ID, "w1", 4.2); err != nil {
		t.Fatalf("UpdateWalletBalance: %v", err)
	}

	refreshed, _ := repo.GetOrCreateUser(ctx, "acct-1", "alice")
	if refreshed.Wallets[0].Balance != 4.2 {
		t.Errorf("balance = %v, want 4.2", refreshed.Wallets[0].Balance)
	}
}

func TestCallsByUserFiltersOtherUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	a, _ := repo.GetOrCreateUser(ctx, "acct-a", "a")
	b, _ := repo.GetOrCreateUser(ctx, "acct-b", "b")

	repo.LogCall(ctx, domain.Call{ID: "1", UserID: a.ID, Symbol: "SOL"})
	repo.LogCall(ctx, domain.Call{ID: "2", UserID: b.ID, Symbol: "WIF"})
	repo.LogCall(ctx, domain.Call{ID: "3", UserID: a.ID, Symbol: "BONK"})

	calls, err := repo.CallsByUser(ctx, a.ID)
	if err != nil {
		t.Fatalf("CallsByUser: %v", err)
	}
	if len(calls) != 2 || calls[0].Symbol != "SOL" || calls[1].Symbol != "BONK" {
		t.Errorf("calls = %+v, want SOL then BONK", calls)
	}
}

func TestMutatingReturnedUserDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user, _ := repo.GetOrCreateUser(ctx, "acct-1", "alice")
	repo.AddWallet(ctx, user.ID, domain.Wallet{WalletID: "w1"})

	got, _ := repo.GetOrCreateUser(ctx, "acct-1", "alice")
	got.Wallets[0].WalletID = "tampered"

	again, _ := repo.GetOrCreateUser(ctx, "acct-1", "alice")
	if again.Wallets[0].WalletID != "w1" {
		t.Errorf("wallet id = %s, stored state was mutated through a returned copy", again.Wallets[0].WalletID)
	}
}
