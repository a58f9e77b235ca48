package domain

import (
	"fmt"
	"strings"
)

// Room is a subscription topic. The zero value is not a valid room; the only
// valid values are the package-level variants below, so code holding a Room
// never has to re-validate its name.
type Room struct {
	name string
}

var (
	RoomNews    = Room{name: "news"}
	RoomFinance = Room{name: "finance"}
	RoomSport   = Room{name: "sport"}
)

// AllRooms lists every variant in a stable order.
func AllRooms() []Room {
	return []Room{RoomNews, RoomFinance, RoomSport}
}

// ParseRoom maps a client-supplied name onto a variant.
func ParseRoom(name string) (Room, error) {
	for _, r := range AllRooms() {
		if r.name == name {
			return r, nil
		}
	}
	return Room{}, fmt.Errorf("%w: %q, supported rooms: %s", ErrUnknownRoom, name, strings.Join(RoomNames(), ", "))
}

func RoomNames() []string {
	rooms := AllRooms()
	names := make([]string, len(rooms))
	for i, r := range rooms {
		names[i] = r.name
	}
	return names
}

func (r Room) String() string { return r.name }

func (r Room) IsZero() bool { return r.name == "" }

// Label is the human-readable topic name shown in confirmations.
func (r Room) Label() string {
	switch r {
	case RoomNews:
		return "News"
	case RoomFinance:
		return "Finance"
	case RoomSport:
		return "Sport"
	default:
		return ""
	}
}

// PushEvent is the outbound event name used for topic pushes into this room.
func (r Room) PushEvent() string {
	switch r {
	case RoomNews:
		return "newsPush"
	case RoomFinance:
		return "financePush"
	case RoomSport:
		return "sportPush"
	default:
		return ""
	}
}

func (r Room) MarshalText() ([]byte, error) {
	return []byte(r.name), nil
}

func (r *Room) UnmarshalText(text []byte) error {
	parsed, err := ParseRoom(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
