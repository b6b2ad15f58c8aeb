package presence

import (
	"context"
	"errors"
	"time"
)

// Outbound event names pushed to clients
const (
	EventProfileInfo = "getProfileInfo"
	EventNewMessage  = "newMessage"
	EventAddUser     = "addUser"
	EventRemoveUser  = "removeUser"
	EventError       = "onError"
)

// ErrNotFound marks an identity/session that is absent at the moment of an
// operation. Disconnect races make this an expected outcome, so callers treat
// it as benign rather than a hard failure.
var ErrNotFound = errors.New("presence: not found")

// DeviceClass is the coarse client category reported at connect time.
type DeviceClass string

const (
	DeviceWeb     DeviceClass = "Web"
	DeviceDesktop DeviceClass = "Desktop"
	DeviceMobile  DeviceClass = "Mobile"
)

// ClassifyDevice maps the Device request header to a DeviceClass.
// Only the exact values "Desktop" and "Mobile" are recognized; anything
// else (including empty) is Web.
func ClassifyDevice(header string) DeviceClass {
	switch header {
	case "Desktop":
		return DeviceDesktop
	case "Mobile":
		return DeviceMobile
	}
	return DeviceWeb
}

// ConnID identifies one transport-level connection. It is opaque to this
// package; uniqueness per identity is enforced by the registry, not assumed.
type ConnID string

// ProfileSnapshot is the read-only view of a user's display attributes,
// captured once at connect time. A later profile edit does not update a
// live session.
type ProfileSnapshot struct {
	Identity string
	FullName string
	Avatar   string
}

// Session is the live presence record for one connected identity.
type Session struct {
	Identity    string
	Handle      ConnID
	Profile     ProfileSnapshot
	CurrentRoom string
	Device      DeviceClass
}

// UserView is the subset of a session safe to expose to other users.
// Field names match the client-facing event payloads.
type UserView struct {
	Username    string `json:"username"`
	FullName    string `json:"fullName"`
	Avatar      string `json:"avatar"`
	CurrentRoom string `json:"currentRoom"`
	Device      string `json:"device"`
}

// PublicView extracts the externally visible fields of a session.
func (s Session) PublicView() UserView {
	return UserView{
		Username:    s.Identity,
		FullName:    s.Profile.FullName,
		Avatar:      s.Profile.Avatar,
		CurrentRoom: s.CurrentRoom,
		Device:      string(s.Device),
	}
}

// Message is the chat payload delivered under the newMessage event.
// Timestamp is assigned server-side at send time.
type Message struct {
	Content      string    `json:"content"`
	FromUserName string    `json:"fromUserName"`
	FromFullName string    `json:"fromFullName"`
	Avatar       string    `json:"avatar"`
	Room         string    `json:"room"`
	Timestamp    time.Time `json:"timestamp"`
}

// Transport is the abstract send capability supplied by the connection
// layer. Sends are best-effort: one attempt, no retry, no queueing for
// offline receivers. Implementations must not block on slow clients.
type Transport interface {
	// SendToConnection delivers an event to a single connection.
	SendToConnection(ctx context.Context, handle ConnID, event string, payload any) error
	// SendToGroup delivers an event to every member of a room, skipping
	// exclude when non-empty.
	SendToGroup(ctx context.Context, room, event string, payload any, exclude ConnID) error
	// AddToGroup registers a connection as a member of a room.
	AddToGroup(ctx context.Context, handle ConnID, room string) error
	// RemoveFromGroup drops a connection's membership of a room.
	RemoveFromGroup(ctx context.Context, handle ConnID, room string) error
}

// ProfileLookup supplies profile snapshots from the data-access collaborator.
type ProfileLookup interface {
	GetByIdentity(ctx context.Context, identity string) (ProfileSnapshot, error)
}
