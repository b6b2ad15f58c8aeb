package presence

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
)

const lockStripes = 64

// Router translates room-membership changes into transport group effects
// and occupant notifications. Transitions for a single identity are
// linearized through striped locks keyed on the identity, so no concurrent
// Join/Leave/Disconnect for the same user can observe a half-completed
// transition; different identities proceed in parallel.
type Router struct {
	reg   *Registry
	tr    Transport
	relay *Relay
	log   *slog.Logger
	locks [lockStripes]sync.Mutex
}

// NewRouter wires the router to the registry, transport, and relay.
func NewRouter(reg *Registry, tr Transport, relay *Relay, log *slog.Logger) *Router {
	return &Router{reg: reg, tr: tr, relay: relay, log: log}
}

// lockFor returns the stripe lock serializing transitions for identity.
func (r *Router) lockFor(identity string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return &r.locks[h.Sum32()%lockStripes]
}

// Join moves the identity's session into room. Already being in room is a
// no-op. A prior room is left first: its other occupants get a removeUser
// event and the connection's group membership is dropped. The new room's
// other occupants get an addUser event; the joiner itself receives nothing.
//
// A missing session (disconnect raced the join) is benign and returns nil.
// Delivery failures are returned so the caller can report them to the
// originating connection, but the registry change is never rolled back.
func (r *Router) Join(ctx context.Context, identity, room string) error {
	mu := r.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()

	sess, ok := r.reg.Get(identity)
	if !ok {
		return nil
	}
	if sess.CurrentRoom == room {
		return nil
	}

	var errs []error
	if prior := sess.CurrentRoom; prior != "" {
		// Departure view still carries the old room
		if err := r.relay.SendRoomNotification(ctx, prior, EventRemoveUser, sess.PublicView(), sess.Handle); err != nil {
			errs = append(errs, err)
		}
		if err := r.tr.RemoveFromGroup(ctx, sess.Handle, prior); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.tr.AddToGroup(ctx, sess.Handle, room); err != nil {
		errs = append(errs, err)
	}
	if err := r.reg.UpdateRoom(identity, room); err != nil {
		// Session vanished mid-transition; undo the group add and stop.
		_ = r.tr.RemoveFromGroup(ctx, sess.Handle, room)
		return errors.Join(errs...)
	}
	sess.CurrentRoom = room

	r.log.Debug("router.join", "user", identity, "room", room)
	if err := r.relay.SendRoomNotification(ctx, room, EventAddUser, sess.PublicView(), sess.Handle); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Leave drops the identity's transport-group membership of room. It does
// not clear the session's current room; callers needing that go through
// Join, LeaveRoom, or disconnect.
func (r *Router) Leave(ctx context.Context, identity, room string) error {
	mu := r.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()

	sess, ok := r.reg.Get(identity)
	if !ok {
		return nil
	}
	return r.tr.RemoveFromGroup(ctx, sess.Handle, room)
}

// LeaveRoom takes the identity out of its current room entirely: group
// membership is dropped, other occupants are notified, and the session's
// current room is cleared. No-op when the session is absent or roomless.
func (r *Router) LeaveRoom(ctx context.Context, identity string) error {
	mu := r.lockFor(identity)
	mu.Lock()
	defer mu.Unlock()

	sess, ok := r.reg.Get(identity)
	if !ok || sess.CurrentRoom == "" {
		return nil
	}
	room := sess.CurrentRoom

	var errs []error
	if err := r.relay.SendRoomNotification(ctx, room, EventRemoveUser, sess.PublicView(), sess.Handle); err != nil {
		errs = append(errs, err)
	}
	if err := r.tr.RemoveFromGroup(ctx, sess.Handle, room); err != nil {
		errs = append(errs, err)
	}
	if err := r.reg.UpdateRoom(identity, ""); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, err)
	}
	r.log.Debug("router.leave", "user", identity, "room", room)
	return errors.Join(errs...)
}

// Session returns a copy of the identity's live session, if any.
func (r *Router) Session(identity string) (Session, bool) {
	return r.reg.Get(identity)
}

// ListOccupants returns the public views of every session currently in room.
func (r *Router) ListOccupants(room string) []UserView {
	sessions := r.reg.ListByRoom(room)
	views := make([]UserView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, s.PublicView())
	}
	return views
}
