package ws

import "encoding/json"

// Envelope is the JSON frame exchanged with clients: a named event plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client-invoked operations
const (
	opJoin        = "join"
	opLeave       = "leave"
	opSendPrivate = "sendPrivate"
	opSendRoom    = "sendRoom"
	opGetUsers    = "getUsers"
)

// eventUsers answers a getUsers request with the room's occupant views.
const eventUsers = "users"

type joinReq struct {
	Room string `json:"room"`
}

type privateReq struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type roomMsgReq struct {
	Content string `json:"content"`
}

// marshalEvent builds the wire bytes for an outbound event.
func marshalEvent(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
