package presence

import (
	"context"
	"log/slog"
)

// Lifecycle orchestrates the connect/disconnect sequence: profile lookup,
// device classification, registry insertion/removal, and the presence
// events those changes imply.
type Lifecycle struct {
	reg      *Registry
	router   *Router
	relay    *Relay
	profiles ProfileLookup
	tr       Transport
	log      *slog.Logger
}

// NewLifecycle wires the lifecycle to its collaborators.
func NewLifecycle(reg *Registry, router *Router, relay *Relay, profiles ProfileLookup, tr Transport, log *slog.Logger) *Lifecycle {
	return &Lifecycle{reg: reg, router: router, relay: relay, profiles: profiles, tr: tr, log: log}
}

// OnConnect establishes a session for identity on handle. The profile is
// fetched once from the data collaborator; a lookup failure is reported to
// the caller as an onError event and leaves the connection without a
// session. A duplicate connect (second tab) is suppressed silently: no new
// session, no profile update, but the profile info push still happens so
// the new tab can render.
func (l *Lifecycle) OnConnect(ctx context.Context, identity string, handle ConnID, deviceHeader string) error {
	prof, err := l.profiles.GetByIdentity(ctx, identity)
	if err != nil {
		l.log.Warn("presence.connect.profile", "user", identity, "err", err)
		_ = l.tr.SendToConnection(ctx, handle, EventError, "OnConnected: "+err.Error())
		return err
	}

	sess := Session{
		Identity: identity,
		Handle:   handle,
		Profile:  prof,
		Device:   ClassifyDevice(deviceHeader),
	}

	mu := l.router.lockFor(identity)
	mu.Lock()
	added := l.reg.Add(sess)
	mu.Unlock()
	if !added {
		l.log.Debug("presence.connect.duplicate", "user", identity)
	} else {
		l.log.Info("presence.connect", "user", identity, "device", sess.Device)
	}

	if err := l.tr.SendToConnection(ctx, handle, EventProfileInfo, sess.PublicView()); err != nil {
		l.log.Warn("presence.connect.push", "user", identity, "err", err)
	}
	return nil
}

// OnDisconnect tears down the session for identity, provided the
// disconnecting handle is the one the session is bound to — a suppressed
// duplicate tab closing must not remove the live session. If the session
// occupied a room, its other occupants are told it left. Safe to call any
// number of times for the same identity.
func (l *Lifecycle) OnDisconnect(ctx context.Context, handle ConnID, identity string) {
	mu := l.router.lockFor(identity)
	mu.Lock()
	sess, ok := l.reg.Get(identity)
	if !ok || sess.Handle != handle {
		mu.Unlock()
		return
	}
	l.reg.Remove(identity)

	if sess.CurrentRoom != "" {
		_ = l.tr.RemoveFromGroup(ctx, handle, sess.CurrentRoom)
		if err := l.relay.SendRoomNotification(ctx, sess.CurrentRoom, EventRemoveUser, sess.PublicView(), handle); err != nil {
			l.log.Warn("presence.disconnect.notify", "user", identity, "err", err)
		}
	}
	mu.Unlock()

	l.log.Info("presence.disconnect", "user", identity)
}
