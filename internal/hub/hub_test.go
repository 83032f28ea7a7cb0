package hub

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Fuzzydust/bb-CBA/internal/session"
	"github.com/Fuzzydust/bb-CBA/internal/store"
)

// seededStore holds a waiting battle so sessions created for it stay
// alive for the duration of a test.
func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	if err := st.CreateBattle(context.Background(), &store.Battle{ID: "b1", Status: "waiting"}); err != nil {
		t.Fatalf("seed battle: %v", err)
	}
	return st
}

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, seededStore(t), zap.NewNop(), time.Second)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- EnsureSession{BattleID: "b1", UserID: "u1", Reply: reply}
	s1 := <-reply

	h.Inbox() <- GetSession{BattleID: "b1", UserID: "u1", Reply: reply}
	s2 := <-reply

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}
}

func TestHub_SessionPerUser(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, seededStore(t), zap.NewNop(), time.Second)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- EnsureSession{BattleID: "b1", UserID: "u1", Reply: reply}
	s1 := <-reply

	// The opponent synchronizes through their own session, never the
	// other client's.
	h.Inbox() <- EnsureSession{BattleID: "b1", UserID: "u2", Reply: reply}
	s2 := <-reply

	if s1 == s2 {
		t.Fatalf("expected distinct sessions per user")
	}
}

func TestHub_Remove(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, seededStore(t), zap.NewNop(), time.Second)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- EnsureSession{BattleID: "b1", UserID: "u1", Reply: reply}
	<-reply

	h.Inbox() <- RemoveSession{BattleID: "b1", UserID: "u1"}

	h.Inbox() <- GetSession{BattleID: "b1", UserID: "u1", Reply: reply}
	if s := <-reply; s != nil {
		t.Fatalf("expected session to be removed")
	}
}

func TestHub_ReapsAndReplacesDeadSession(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t)
	h := NewHub(ctx, st, zap.NewNop(), 20*time.Millisecond)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- EnsureSession{BattleID: "b1", UserID: "u1", Reply: reply}
	s1 := <-reply

	// Withdrawing the battle makes the session shut itself down.
	ok, err := st.DeleteIfWaiting(ctx, "b1")
	if err != nil || !ok {
		t.Fatalf("withdraw battle: ok=%v err=%v", ok, err)
	}
	select {
	case <-s1.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not shut down after its battle vanished")
	}

	// The watcher drops the dead entry on its own; no Ensure needed.
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.Inbox() <- GetSession{BattleID: "b1", UserID: "u1", Reply: reply}
		if got := <-reply; got == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds the dead session")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A reconnecting client gets a fresh, live actor.
	if err := st.CreateBattle(ctx, &store.Battle{ID: "b1", Status: "waiting"}); err != nil {
		t.Fatalf("recreate battle: %v", err)
	}
	h.Inbox() <- EnsureSession{BattleID: "b1", UserID: "u1", Reply: reply}
	s2 := <-reply
	if s2 == nil || s2 == s1 {
		t.Fatalf("expected a fresh session after the old one died")
	}
	select {
	case <-s2.Done():
		t.Fatalf("replacement session is already dead")
	default:
	}
}
