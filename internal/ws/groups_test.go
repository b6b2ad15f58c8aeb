package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/sina1864/EChat/internal/presence"
)

func testGroups() *Groups {
	return NewGroups(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConn(id presence.ConnID, buf int) *Conn {
	return &Conn{id: id, out: make(chan []byte, buf)}
}

func drain(c *Conn) []Envelope {
	var out []Envelope
	for {
		select {
		case b := <-c.out:
			var env Envelope
			if err := json.Unmarshal(b, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func TestSendToGroupExcludesCaller(t *testing.T) {
	g := testGroups()
	ctx := context.Background()

	a := testConn("ca", 4)
	b := testConn("cb", 4)
	g.register(a)
	g.register(b)
	_ = g.AddToGroup(ctx, "ca", "r1")
	_ = g.AddToGroup(ctx, "cb", "r1")

	if err := g.SendToGroup(ctx, "r1", "addUser", map[string]string{"username": "alice"}, "ca"); err != nil {
		t.Fatalf("SendToGroup: %v", err)
	}

	if got := drain(a); len(got) != 0 {
		t.Fatalf("excluded connection received %d frames", len(got))
	}
	got := drain(b)
	if len(got) != 1 || got[0].Event != "addUser" {
		t.Fatalf("member frames = %+v", got)
	}
}

func TestSendToConnectionUnknownHandleIsBenign(t *testing.T) {
	g := testGroups()
	if err := g.SendToConnection(context.Background(), "nope", "onError", "x"); err != nil {
		t.Fatalf("unknown handle must be a no-op, got %v", err)
	}
}

func TestUnregisterDropsGroupMembership(t *testing.T) {
	g := testGroups()
	ctx := context.Background()

	a := testConn("ca", 4)
	g.register(a)
	_ = g.AddToGroup(ctx, "ca", "r1")

	g.unregister("ca")
	if err := g.SendToGroup(ctx, "r1", "newMessage", "hi", ""); err != nil {
		t.Fatalf("SendToGroup: %v", err)
	}
	if got := drain(a); len(got) != 0 {
		t.Fatalf("unregistered connection still received %d frames", len(got))
	}
}

func TestAddToGroupUnknownConnIsBenign(t *testing.T) {
	g := testGroups()
	if err := g.AddToGroup(context.Background(), "ghost", "r1"); err != nil {
		t.Fatalf("AddToGroup for unknown conn must be a no-op, got %v", err)
	}
}

// A slow client with a full buffer gets the frame dropped rather than
// stalling the broadcast.
func TestFullBufferDropsFrame(t *testing.T) {
	g := testGroups()
	ctx := context.Background()

	slow := testConn("cs", 1)
	g.register(slow)
	_ = g.AddToGroup(ctx, "cs", "r1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = g.SendToGroup(ctx, "r1", "newMessage", i, "")
		}
	}()
	<-done

	if got := drain(slow); len(got) != 1 {
		t.Fatalf("want exactly the 1 buffered frame, got %d", len(got))
	}
}

func TestMarshalEvent(t *testing.T) {
	b, err := marshalEvent("newMessage", map[string]string{"content": "hi"})
	if err != nil {
		t.Fatalf("marshalEvent: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Event != "newMessage" {
		t.Fatalf("event = %q", env.Event)
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil || data["content"] != "hi" {
		t.Fatalf("data = %s", env.Data)
	}

	// nil payload omits data entirely
	b, err = marshalEvent("onError", nil)
	if err != nil {
		t.Fatalf("marshalEvent nil: %v", err)
	}
	if string(b) != `{"event":"onError"}` {
		t.Fatalf("frame = %s", b)
	}
}
