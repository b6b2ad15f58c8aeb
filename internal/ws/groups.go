package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sina1864/EChat/internal/presence"
)

// Groups is the connection-level fanout table: every live connection plus
// the room each connection is grouped under. It implements
// presence.Transport. Sends snapshot the recipients under the read lock and
// enqueue outside any registry lock; delivery is best-effort.
type Groups struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[presence.ConnID]*Conn
	rooms map[string]map[presence.ConnID]*Conn
}

// NewGroups creates an empty group table.
func NewGroups(log *slog.Logger) *Groups {
	return &Groups{
		log:   log,
		conns: map[presence.ConnID]*Conn{},
		rooms: map[string]map[presence.ConnID]*Conn{},
	}
}

// register makes a connection addressable by its handle.
func (g *Groups) register(c *Conn) {
	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()
}

// unregister drops a connection and any group memberships it held.
func (g *Groups) unregister(id presence.ConnID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, id)
	for room, members := range g.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(g.rooms, room)
		}
	}
	g.log.Debug("ws.group.unregister", "conn", string(id))
}

// SendToConnection delivers an event to one connection. An unknown handle
// is a benign no-op (the connection already went away).
func (g *Groups) SendToConnection(_ context.Context, handle presence.ConnID, event string, payload any) error {
	b, err := marshalEvent(event, payload)
	if err != nil {
		return err
	}
	g.mu.RLock()
	c := g.conns[handle]
	g.mu.RUnlock()
	if c != nil {
		c.queue(b)
	}
	return nil
}

// SendToGroup delivers an event to every member of room, skipping exclude
// when non-empty.
func (g *Groups) SendToGroup(_ context.Context, room, event string, payload any, exclude presence.ConnID) error {
	b, err := marshalEvent(event, payload)
	if err != nil {
		return err
	}

	g.mu.RLock()
	members := make([]*Conn, 0, len(g.rooms[room]))
	for id, c := range g.rooms[room] {
		if id == exclude {
			continue
		}
		members = append(members, c)
	}
	g.mu.RUnlock()

	for _, c := range members {
		c.queue(b)
	}
	return nil
}

// AddToGroup puts a connection into a room's broadcast group.
func (g *Groups) AddToGroup(_ context.Context, handle presence.ConnID, room string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.conns[handle]
	if !ok {
		return nil
	}
	if g.rooms[room] == nil {
		g.rooms[room] = map[presence.ConnID]*Conn{}
	}
	g.rooms[room][handle] = c
	return nil
}

// RemoveFromGroup takes a connection out of a room's broadcast group.
func (g *Groups) RemoveFromGroup(_ context.Context, handle presence.ConnID, room string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	members := g.rooms[room]
	if members == nil {
		return nil
	}
	delete(members, handle)
	if len(members) == 0 {
		delete(g.rooms, room)
	}
	return nil
}
