package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/sina1864/EChat/internal/presence"
	"github.com/sina1864/EChat/pkg/auth"
	"github.com/sina1864/EChat/pkg/metrics"
)

// Hub is the websocket endpoint: it authenticates the upgrade, binds the
// connection to an identity, and dispatches client operations into the
// presence core.
type Hub struct {
	log    *slog.Logger
	jwt    *auth.JWT
	groups *Groups

	router    *presence.Router
	relay     *presence.Relay
	lifecycle *presence.Lifecycle

	pingInterval time.Duration
}

// NewHub wires the endpoint to the presence core and group transport.
func NewHub(log *slog.Logger, jwt *auth.JWT, groups *Groups, router *presence.Router, relay *presence.Relay, lifecycle *presence.Lifecycle, ping time.Duration) *Hub {
	if ping <= 0 {
		ping = 20 * time.Second
	}
	return &Hub{
		log:          log,
		jwt:          jwt,
		groups:       groups,
		router:       router,
		relay:        relay,
		lifecycle:    lifecycle,
		pingInterval: ping,
	}
}

// ServeWS handles a new /ws connection. The JWT rides in the token query
// parameter and the device class in the Device header.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	identity, err := h.jwt.Verify(token)
	if err != nil {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}

	sock, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}

	ctx := r.Context()
	handle := presence.ConnID(uuid.NewString())
	c := newConn(handle, sock)
	h.groups.register(c)

	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	// Outbound writer
	go c.writeLoop(ctx, h.pingInterval)

	if err := h.lifecycle.OnConnect(ctx, identity, handle, r.Header.Get("Device")); err != nil {
		// Failed connect: the onError event is already queued; give the
		// writer a moment to flush before tearing down.
		time.Sleep(100 * time.Millisecond)
		h.groups.unregister(handle)
		_ = c.close()
		return
	}

	// Inbound reader
	for {
		b, ok := c.read(ctx)
		if !ok {
			break
		}
		h.dispatch(ctx, handle, identity, b)
	}

	h.lifecycle.OnDisconnect(ctx, handle, identity)
	h.groups.unregister(handle)
	_ = c.close()
}

func (h *Hub) dispatch(ctx context.Context, handle presence.ConnID, identity string, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		h.sendError(ctx, handle, "malformed frame")
		return
	}

	switch env.Event {
	case opJoin:
		var req joinReq
		if err := json.Unmarshal(env.Data, &req); err != nil || req.Room == "" {
			h.sendError(ctx, handle, "invalid join payload")
			return
		}
		if err := h.router.Join(ctx, identity, req.Room); err != nil {
			h.sendError(ctx, handle, "You failed to join the chat room! "+err.Error())
		}

	case opLeave:
		var req joinReq
		if err := json.Unmarshal(env.Data, &req); err != nil || req.Room == "" {
			h.sendError(ctx, handle, "invalid leave payload")
			return
		}
		h.leave(ctx, handle, identity, req.Room)

	case opSendPrivate:
		var req privateReq
		if err := json.Unmarshal(env.Data, &req); err != nil || req.To == "" {
			h.sendError(ctx, handle, "invalid message payload")
			return
		}
		if err := h.relay.SendPrivate(ctx, identity, req.To, req.Content); err != nil {
			h.sendError(ctx, handle, "message delivery failed")
			return
		}
		metrics.MessagesRelayed.Inc()

	case opSendRoom:
		var req roomMsgReq
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.sendError(ctx, handle, "invalid message payload")
			return
		}
		if err := h.relay.SendRoomMessage(ctx, identity, req.Content); err != nil {
			h.sendError(ctx, handle, "message delivery failed")
			return
		}
		metrics.MessagesRelayed.Inc()

	case opGetUsers:
		var req joinReq
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.sendError(ctx, handle, "invalid getUsers payload")
			return
		}
		views := h.router.ListOccupants(req.Room)
		if err := h.groups.SendToConnection(ctx, handle, eventUsers, views); err != nil {
			h.log.Warn("ws.getUsers", "user", identity, "err", err)
		}

	default:
		h.sendError(ctx, handle, "unknown event")
	}
}

// leave drops the caller out of room. Leaving the current room clears it
// and notifies the occupants; leaving any other room only drops the stray
// group membership.
func (h *Hub) leave(ctx context.Context, handle presence.ConnID, identity, room string) {
	sess, ok := h.router.Session(identity)
	if ok && sess.CurrentRoom == room {
		if err := h.router.LeaveRoom(ctx, identity); err != nil {
			h.sendError(ctx, handle, "leave failed")
		}
		return
	}
	if err := h.router.Leave(ctx, identity, room); err != nil {
		h.sendError(ctx, handle, "leave failed")
	}
}

func (h *Hub) sendError(ctx context.Context, handle presence.ConnID, msg string) {
	_ = h.groups.SendToConnection(ctx, handle, presence.EventError, msg)
}
