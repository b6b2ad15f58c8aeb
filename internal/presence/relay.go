package presence

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// tagPattern matches HTML-tag-like fragments. Stripping it is a defense
// against markup injection in chat content, not a full sanitizer.
var tagPattern = regexp.MustCompile(`<.*?>`)

func sanitize(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// Relay formats and routes point-to-point and room-scoped chat payloads.
// Delivery is fire-and-forget: a failure toward one recipient does not
// prevent delivery to another, and nothing is queued for offline receivers.
type Relay struct {
	reg *Registry
	tr  Transport
	log *slog.Logger
	now func() time.Time
}

// NewRelay wires the relay to the registry and transport, stamping
// messages with time.Now.
func NewRelay(reg *Registry, tr Transport, log *slog.Logger) *Relay {
	return NewRelayWithClock(reg, tr, log, time.Now)
}

// NewRelayWithClock is NewRelay with a custom clock, for tests.
func NewRelayWithClock(reg *Registry, tr Transport, log *slog.Logger, now func() time.Time) *Relay {
	if now == nil {
		now = time.Now
	}
	return &Relay{reg: reg, tr: tr, log: log, now: now}
}

// SendPrivate delivers a direct message from sender to receiver, and echoes
// it back to the sender so their client renders the sent message. A missing
// receiver (offline) or sender (disconnect race), or blank text after
// trimming, makes the call a silent no-op.
func (r *Relay) SendPrivate(ctx context.Context, sender, receiver, text string) error {
	recv, ok := r.reg.Get(receiver)
	if !ok {
		return nil
	}
	snd, ok := r.reg.Get(sender)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	msg := Message{
		Content:      sanitize(trimmed),
		FromUserName: snd.Identity,
		FromFullName: snd.Profile.FullName,
		Avatar:       snd.Profile.Avatar,
		Room:         "",
		Timestamp:    r.now(),
	}

	var errs []error
	if err := r.tr.SendToConnection(ctx, recv.Handle, EventNewMessage, msg); err != nil {
		r.log.Warn("relay.private.deliver", "to", receiver, "err", err)
		errs = append(errs, err)
	}
	if err := r.tr.SendToConnection(ctx, snd.Handle, EventNewMessage, msg); err != nil {
		r.log.Warn("relay.private.echo", "to", sender, "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SendRoomMessage broadcasts a chat message from sender to every occupant of
// their current room, sender included. No-op when the sender has no session,
// no current room, or the text is blank after trimming.
func (r *Relay) SendRoomMessage(ctx context.Context, sender, text string) error {
	snd, ok := r.reg.Get(sender)
	if !ok || snd.CurrentRoom == "" {
		return nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	msg := Message{
		Content:      sanitize(trimmed),
		FromUserName: snd.Identity,
		FromFullName: snd.Profile.FullName,
		Avatar:       snd.Profile.Avatar,
		Room:         snd.CurrentRoom,
		Timestamp:    r.now(),
	}
	return r.tr.SendToGroup(ctx, snd.CurrentRoom, EventNewMessage, msg, "")
}

// SendRoomNotification delivers payload under a named event to every
// occupant of room except the excluded connection, when one is given.
func (r *Relay) SendRoomNotification(ctx context.Context, room, event string, payload any, exclude ConnID) error {
	return r.tr.SendToGroup(ctx, room, event, payload, exclude)
}
