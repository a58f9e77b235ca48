package realtime

import (
	"sync"

	"news_relay/internal/domain"
	"news_relay/internal/metrics"
)

// Rooms maps every enumerated room to its member connection ids. Rooms exist
// for the lifetime of the process and may be empty.
type Rooms struct {
	mu      sync.RWMutex
	members map[domain.Room]map[string]struct{}
}

func NewRooms() *Rooms {
	members := make(map[domain.Room]map[string]struct{})
	for _, room := range domain.AllRooms() {
		members[room] = make(map[string]struct{})
	}
	return &Rooms{members: members}
}

// Join reports whether the membership was newly added.
func (r *Rooms) Join(room domain.Room, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[room]
	if !ok {
		return false
	}
	if _, exists := set[id]; exists {
		return false
	}
	set[id] = struct{}{}
	metrics.RoomMembers.WithLabelValues(room.String()).Set(float64(len(set)))
	return true
}

// Leave reports whether a membership was removed.
func (r *Rooms) Leave(room domain.Room, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[room]
	if !ok {
		return false
	}
	if _, exists := set[id]; !exists {
		return false
	}
	delete(set, id)
	metrics.RoomMembers.WithLabelValues(room.String()).Set(float64(len(set)))
	return true
}

// LeaveAll drops id from every room and returns the rooms it had joined.
func (r *Rooms) LeaveAll(id string) []domain.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	var left []domain.Room
	for room, set := range r.members {
		if _, exists := set[id]; exists {
			delete(set, id)
			left = append(left, room)
			metrics.RoomMembers.WithLabelValues(room.String()).Set(float64(len(set)))
		}
	}
	return left
}

func (r *Rooms) Members(room domain.Room) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.members[room]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func (r *Rooms) IsMember(room domain.Room, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][id]
	return ok
}

func (r *Rooms) Count(room domain.Room) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}
