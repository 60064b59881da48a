package room

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Registry owns every live room, keyed by game code. The map is the only
// state shared between rooms; room contents are guarded by each room's lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Create registers a new waiting room.
func (r *Registry) Create(code, adminID string, maxPlayers, totalQuestions int) (*Room, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[code]; exists {
		return nil, ErrAlreadyExists
	}
	rm := newRoom(code, adminID, maxPlayers, totalQuestions)
	r.rooms[code] = rm
	return rm, nil
}

// Get looks up a room by code.
func (r *Registry) Get(code string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

// Delete removes a room and stops its timers. Unknown codes are a no-op.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	rm, ok := r.rooms[code]
	delete(r.rooms, code)
	r.mu.Unlock()

	if !ok {
		return
	}
	rm.Lock()
	rm.ClearTimers()
	rm.ClearStartTimer()
	rm.Unlock()
}

// List returns all rooms ordered by code.
func (r *Registry) List() []*Room {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Code < rooms[j].Code })
	return rooms
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// NewCode returns a short code that no live room uses.
func (r *Registry) NewCode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for {
		var b strings.Builder
		for i := 0; i < codeLength; i++ {
			b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
		}
		if _, taken := r.rooms[b.String()]; !taken {
			return b.String()
		}
	}
}
