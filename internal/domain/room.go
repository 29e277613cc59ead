package domain

import (
	"errors"
	"fmt"
	"strings"
)

const MaxRoomNameLen = 64

// PrivateRoomPrefix marks the rooms created by /call.
const PrivateRoomPrefix = "private_"

var (
	ErrRoomNameInvalid = errors.New("invalid room name")
	ErrPrivateRoom     = errors.New("room is private")
)

type RoomName string

// ParseRoomName validates a room name given to /join.
func ParseRoomName(raw string) (RoomName, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > MaxRoomNameLen || strings.ContainsAny(name, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrRoomNameInvalid, raw)
	}
	return RoomName(name), nil
}

// PrivateRoom names the two-member room created by /call.
func PrivateRoom(caller, callee Username) RoomName {
	return RoomName(fmt.Sprintf("%s%s_%s", PrivateRoomPrefix, caller, callee))
}

func IsPrivateRoom(room RoomName) bool {
	return strings.HasPrefix(string(room), PrivateRoomPrefix)
}
