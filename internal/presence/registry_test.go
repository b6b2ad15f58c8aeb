package presence_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sina1864/EChat/internal/presence"
)

func TestRegistryAddEnforcesSingleSession(t *testing.T) {
	reg := presence.NewRegistry()

	first := presence.Session{Identity: "alice", Handle: "c1"}
	if !reg.Add(first) {
		t.Fatalf("Add: expected first insert to succeed")
	}
	if reg.Add(presence.Session{Identity: "alice", Handle: "c2"}) {
		t.Fatalf("Add: expected duplicate identity to be rejected")
	}

	got, ok := reg.Get("alice")
	if !ok {
		t.Fatalf("Get: expected session for alice")
	}
	if got.Handle != "c1" {
		t.Fatalf("Get: duplicate Add must not replace handle, got %q", got.Handle)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Add(presence.Session{Identity: "bob", Handle: "c1", CurrentRoom: "lobby"})

	s, ok := reg.Remove("bob")
	if !ok {
		t.Fatalf("Remove: expected session")
	}
	if s.CurrentRoom != "lobby" {
		t.Fatalf("Remove: expected returned session state, got room %q", s.CurrentRoom)
	}
	if _, ok := reg.Remove("bob"); ok {
		t.Fatalf("Remove: second removal must report absence")
	}
	if _, ok := reg.Get("bob"); ok {
		t.Fatalf("Get: session should be gone after Remove")
	}
}

func TestRegistryUpdateRoom(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Add(presence.Session{Identity: "carol", Handle: "c1"})

	if err := reg.UpdateRoom("carol", "r1"); err != nil {
		t.Fatalf("UpdateRoom: unexpected error: %v", err)
	}
	got, _ := reg.Get("carol")
	if got.CurrentRoom != "r1" {
		t.Fatalf("UpdateRoom: room not applied, got %q", got.CurrentRoom)
	}

	err := reg.UpdateRoom("nobody", "r1")
	if !errors.Is(err, presence.ErrNotFound) {
		t.Fatalf("UpdateRoom: expected ErrNotFound for missing identity, got %v", err)
	}
}

func TestRegistryListByRoomIsSnapshot(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Add(presence.Session{Identity: "a", Handle: "c1", CurrentRoom: "r1"})
	reg.Add(presence.Session{Identity: "b", Handle: "c2", CurrentRoom: "r1"})
	reg.Add(presence.Session{Identity: "c", Handle: "c3", CurrentRoom: "r2"})

	snap := reg.ListByRoom("r1")
	if len(snap) != 2 {
		t.Fatalf("ListByRoom: want 2 sessions, got %d", len(snap))
	}

	// Mutating the registry after the fact must not affect the snapshot
	_ = reg.UpdateRoom("a", "r2")
	for _, s := range snap {
		if s.CurrentRoom != "r1" {
			t.Fatalf("ListByRoom: snapshot mutated by later UpdateRoom")
		}
	}

	if got := reg.ListByRoom("r1"); len(got) != 1 {
		t.Fatalf("ListByRoom: want 1 session after move, got %d", len(got))
	}
}

// Concurrent connect/disconnect churn must settle with at most one session
// per identity and must not trip the race detector.
func TestRegistryConcurrentChurn(t *testing.T) {
	reg := presence.NewRegistry()

	const workers = 16
	const identities = 4
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("user-%d", i%identities)
				switch i % 4 {
				case 0:
					reg.Add(presence.Session{Identity: id, Handle: presence.ConnID(fmt.Sprintf("c-%d-%d", w, i))})
				case 1:
					reg.Remove(id)
				case 2:
					_ = reg.UpdateRoom(id, "lobby")
				case 3:
					reg.ListByRoom("lobby")
				}
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < identities; i++ {
		id := fmt.Sprintf("user-%d", i)
		if _, ok := reg.Get(id); ok {
			// Present is fine; present twice is impossible by construction,
			// but removing must fully clear it.
			reg.Remove(id)
			if _, ok := reg.Get(id); ok {
				t.Fatalf("registry retained %s after removal", id)
			}
		}
	}
	if n := reg.Len(); n != 0 {
		t.Fatalf("registry not empty after cleanup: %d sessions", n)
	}
}
