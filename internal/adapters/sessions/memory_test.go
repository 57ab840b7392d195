package sessions

import (
	"context"
	"testing"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, "acct-1")
	if err != nil || got != nil {
		t.Fatalf("Get on empty store = %v, %v, want nil, nil", got, err)
	}

	sess := &domain.Session{
		UserKey: "acct-1",
		State:   domain.StateAwaitingUnits,
		Draft:   domain.CallDraft{Action: domain.ActionBuy, Symbol: "SOL"},
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err = store.Get(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != domain.StateAwaitingUnits || got.Draft.Symbol != "SOL" {
		t.Errorf("got = %+v, want stored session back", got)
	}

	// The store hands out copies, not aliases.
	got.Draft.Symbol = "WIF"
	again, _ := store.Get(ctx, "acct-1")
	if again.Draft.Symbol != "SOL" {
		t.Errorf("stored session mutated through a returned copy")
	}

	if err := store.Delete(ctx, "acct-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = store.Get(ctx, "acct-1")
	if err != nil || got != nil {
		t.Errorf("Get after delete = %v, %v, want nil, nil", got, err)
	}
}
