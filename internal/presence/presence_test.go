package presence_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sina1864/EChat/internal/presence"
)

// fakeTransport records every send and maintains real group membership so
// tests can assert on per-connection deliveries.
type fakeTransport struct {
	mu     sync.Mutex
	groups map[string]map[presence.ConnID]bool
	sent   []delivery

	failHandle presence.ConnID // sends to this handle return an error
}

type delivery struct {
	handle  presence.ConnID
	event   string
	payload any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{groups: map[string]map[presence.ConnID]bool{}}
}

func (t *fakeTransport) SendToConnection(_ context.Context, handle presence.ConnID, event string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if handle == t.failHandle && t.failHandle != "" {
		return fmt.Errorf("send to %s failed", handle)
	}
	t.sent = append(t.sent, delivery{handle: handle, event: event, payload: payload})
	return nil
}

func (t *fakeTransport) SendToGroup(_ context.Context, room, event string, payload any, exclude presence.ConnID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for handle := range t.groups[room] {
		if handle == exclude {
			continue
		}
		t.sent = append(t.sent, delivery{handle: handle, event: event, payload: payload})
	}
	return nil
}

func (t *fakeTransport) AddToGroup(_ context.Context, handle presence.ConnID, room string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.groups[room] == nil {
		t.groups[room] = map[presence.ConnID]bool{}
	}
	t.groups[room][handle] = true
	return nil
}

func (t *fakeTransport) RemoveFromGroup(_ context.Context, handle presence.ConnID, room string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.groups[room], handle)
	return nil
}

// received returns the deliveries a connection got, optionally filtered by event.
func (t *fakeTransport) received(handle presence.ConnID, event string) []delivery {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []delivery
	for _, d := range t.sent {
		if d.handle == handle && (event == "" || d.event == event) {
			out = append(out, d)
		}
	}
	return out
}

// memberOf returns the rooms the handle currently belongs to.
func (t *fakeTransport) memberOf(handle presence.ConnID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var rooms []string
	for room, members := range t.groups {
		if members[handle] {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]presence.ProfileSnapshot
	err      error
}

func (p *fakeProfiles) GetByIdentity(_ context.Context, identity string) (presence.ProfileSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return presence.ProfileSnapshot{}, p.err
	}
	prof, ok := p.profiles[identity]
	if !ok {
		return presence.ProfileSnapshot{}, presence.ErrNotFound
	}
	return prof, nil
}

// core bundles a fully wired presence stack over fakes.
type core struct {
	reg       *presence.Registry
	tr        *fakeTransport
	relay     *presence.Relay
	router    *presence.Router
	lifecycle *presence.Lifecycle
	profiles  *fakeProfiles
	now       time.Time
}

func newCore() *core {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := presence.NewRegistry()
	tr := newFakeTransport()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	relay := presence.NewRelayWithClock(reg, tr, log, func() time.Time { return now })
	router := presence.NewRouter(reg, tr, relay, log)
	profiles := &fakeProfiles{profiles: map[string]presence.ProfileSnapshot{}}
	lc := presence.NewLifecycle(reg, router, relay, profiles, tr, log)
	return &core{reg: reg, tr: tr, relay: relay, router: router, lifecycle: lc, profiles: profiles, now: now}
}

// addUser registers a profile and connects it, returning the handle.
func (c *core) addUser(identity string, handle presence.ConnID) presence.ConnID {
	c.profiles.mu.Lock()
	c.profiles.profiles[identity] = presence.ProfileSnapshot{
		Identity: identity,
		FullName: identity + " Example",
		Avatar:   "avatar-" + identity + ".png",
	}
	c.profiles.mu.Unlock()
	_ = c.lifecycle.OnConnect(context.Background(), identity, handle, "")
	return handle
}
