package domain

import "strings"

// RoomID identifies a live conversation. Any non-empty string is valid.
type RoomID string

func (r RoomID) String() string {
	return string(r)
}

// IsZero reports whether the room id is missing or blank.
func (r RoomID) IsZero() bool {
	return strings.TrimSpace(string(r)) == ""
}
