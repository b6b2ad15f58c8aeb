package store

import "time"

// User is an account row. FullName and Avatar feed the presence profile
// snapshot taken at connect time.
type User struct {
	ID        string
	Username  string
	FullName  string
	Avatar    string
	CreatedAt time.Time
}

// RoomRecord is a persisted named room with an owning user. Distinct from
// the ephemeral presence notion of a room, which exists only while
// occupied.
type RoomRecord struct {
	ID        string
	Name      string
	AdminID   string
	CreatedAt time.Time
}
