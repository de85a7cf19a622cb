package notify

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"messbook/internal/models"
	"messbook/internal/storage/sqlite"
)

// fakePusher records the tokens it was asked to deliver to and answers with
// canned per-token results.
type fakePusher struct {
	mu      sync.Mutex
	results map[string]string // token -> failure code, "" for success
	sent    [][]string
	err     error
}

func (p *fakePusher) Send(ctx context.Context, tokens []string, payload Payload) ([]Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.sent = append(p.sent, tokens)
	results := make([]Result, len(tokens))
	for i, tok := range tokens {
		results[i] = Result{Token: tok, Code: p.results[tok]}
	}
	return results, nil
}

func (p *fakePusher) batches() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

func setup(t *testing.T) (*sqlite.SQLiteStore, string) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	mess := &models.Mess{Name: "Hillside Mess", ManagerID: "alice", InviteCode: "CODE0005"}
	if err := store.CreateMess(ctx, mess); err != nil {
		t.Fatalf("CreateMess failed: %v", err)
	}
	// Two managers and one plain member.
	members := []*models.Member{
		{ID: "alice", MessID: mess.ID, DisplayName: "alice", Role: models.RoleManager},
		{ID: "dana", MessID: mess.ID, DisplayName: "dana", Role: models.RoleManager},
		{ID: "bob", MessID: mess.ID, DisplayName: "bob", Role: models.RoleMember},
	}
	for _, m := range members {
		if err := store.CreateMember(ctx, m); err != nil {
			t.Fatalf("CreateMember failed: %v", err)
		}
	}
	return store, mess.ID
}

func addToken(t *testing.T, store *sqlite.SQLiteStore, userID, token string) {
	t.Helper()
	if err := store.AddDeviceToken(context.Background(), userID, token); err != nil {
		t.Fatalf("AddDeviceToken failed: %v", err)
	}
}

func remainingTokens(t *testing.T, store *sqlite.SQLiteStore, userIDs ...string) []string {
	t.Helper()
	tokens, err := store.ListDeviceTokens(context.Background(), userIDs)
	if err != nil {
		t.Fatalf("ListDeviceTokens failed: %v", err)
	}
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Token
	}
	sort.Strings(out)
	return out
}

func TestDeliverToManagers(t *testing.T) {
	store, messID := setup(t)
	ctx := context.Background()

	// Three tokens across the two managers: one delivers, one is dead, one
	// hits a transient failure.
	addToken(t, store, "alice", "tok-ok")
	addToken(t, store, "alice", "tok-dead")
	addToken(t, store, "dana", "tok-flaky")

	pusher := &fakePusher{results: map[string]string{
		"tok-ok":    "",
		"tok-dead":  CodeUnregistered,
		"tok-flaky": "UNAVAILABLE",
	}}
	fanout := New(store, pusher)

	if err := fanout.Deliver(ctx, messID, models.TargetManager, "bob submitted a deposit", "/transactions/1"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	t.Run("push goes to the union of manager tokens", func(t *testing.T) {
		batches := pusher.batches()
		if len(batches) != 1 {
			t.Fatalf("expected one batch, got %d", len(batches))
		}
		got := append([]string(nil), batches[0]...)
		sort.Strings(got)
		want := []string{"tok-dead", "tok-flaky", "tok-ok"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("wrong token batch: %v", got)
			}
		}
	})

	t.Run("only the permanently invalid token is pruned", func(t *testing.T) {
		left := remainingTokens(t, store, "alice", "dana")
		if len(left) != 2 || left[0] != "tok-flaky" || left[1] != "tok-ok" {
			t.Errorf("expected tok-flaky and tok-ok to survive, got %v", left)
		}
	})

	t.Run("every manager gets a feed entry", func(t *testing.T) {
		for _, userID := range []string{"alice", "dana"} {
			list, err := store.ListNotifications(ctx, userID, 10)
			if err != nil {
				t.Fatalf("ListNotifications failed: %v", err)
			}
			if len(list) != 1 || list[0].Message != "bob submitted a deposit" {
				t.Errorf("%s feed: %+v", userID, list)
			}
		}
		list, _ := store.ListNotifications(ctx, "bob", 10)
		if len(list) != 0 {
			t.Errorf("bob should not be notified, got %+v", list)
		}
	})
}

func TestDeliverToSingleUser(t *testing.T) {
	store, messID := setup(t)
	ctx := context.Background()

	addToken(t, store, "bob", "tok-bob")
	pusher := &fakePusher{results: map[string]string{"tok-bob": ""}}
	fanout := New(store, pusher)

	if err := fanout.Deliver(ctx, messID, "bob", "Your deposit was approved", "/transactions/2"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	list, err := store.ListNotifications(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one feed entry, got %d", len(list))
	}
	batches := pusher.batches()
	if len(batches) != 1 || len(batches[0]) != 1 || batches[0][0] != "tok-bob" {
		t.Errorf("unexpected push batches: %v", batches)
	}
}

func TestDeliverNoManagers(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	// A mess whose members hold no manager role: manager-target delivery is
	// silently a no-op.
	orphan := &models.Mess{Name: "Orphan Mess", ManagerID: "ghost", InviteCode: "CODE0006"}
	if err := store.CreateMess(ctx, orphan); err != nil {
		t.Fatalf("CreateMess failed: %v", err)
	}
	m := &models.Member{ID: "carol", MessID: orphan.ID, DisplayName: "carol", Role: models.RoleMember}
	if err := store.CreateMember(ctx, m); err != nil {
		t.Fatalf("CreateMember failed: %v", err)
	}

	pusher := &fakePusher{results: map[string]string{}}
	fanout := New(store, pusher)

	if err := fanout.Deliver(ctx, orphan.ID, models.TargetManager, "nobody is listening", ""); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if len(pusher.batches()) != 0 {
		t.Errorf("no push should go out without managers")
	}
	list, _ := store.ListNotifications(ctx, "carol", 10)
	if len(list) != 0 {
		t.Errorf("no feed entries expected, got %+v", list)
	}
}

func TestDeliverWithoutPusher(t *testing.T) {
	store, messID := setup(t)
	ctx := context.Background()
	addToken(t, store, "alice", "tok-1")

	fanout := New(store, nil)
	if err := fanout.Deliver(ctx, messID, "alice", "feed only", ""); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	list, err := store.ListNotifications(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("feed entry should persist without a pusher, got %d", len(list))
	}
}

func TestDeliverBatchFailure(t *testing.T) {
	store, messID := setup(t)
	ctx := context.Background()
	addToken(t, store, "alice", "tok-1")

	pusher := &fakePusher{err: errors.New("push service down")}
	fanout := New(store, pusher)

	err := fanout.Deliver(ctx, messID, "alice", "hello", "")
	if err == nil {
		t.Fatal("expected batch failure to propagate")
	}

	// Feed entries were written before the push attempt and tokens are intact.
	list, _ := store.ListNotifications(ctx, "alice", 10)
	if len(list) != 1 {
		t.Errorf("feed entry should survive push failure, got %d", len(list))
	}
	if left := remainingTokens(t, store, "alice"); len(left) != 1 {
		t.Errorf("batch failure must not prune tokens, got %v", left)
	}
}
