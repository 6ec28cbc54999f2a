package room

import (
	"fmt"
	"sync"

	"nvivas/backend/tictactoe-rooms/internal/errors"
	"nvivas/backend/tictactoe-rooms/internal/game"
)

// Room representa una sala de juego
type Room struct {
	ID      string
	members []string // connection IDs in join order, at most game.Capacity
}

// Directory maps room IDs to their members. It enforces the two-seat
// capacity and never retains an empty room. All methods are safe for
// concurrent use; the directory performs no I/O.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*Room
	locks *keyedMutex
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]*Room),
		locks: newKeyedMutex(),
	}
}

// Lock acquires the critical section for roomID and returns its release
// function. Callers hold it across a mutation and the broadcasts announcing
// it so observers see events for a room in mutation order.
func (d *Directory) Lock(roomID string) (unlock func()) {
	return d.locks.lock(roomID)
}

// Exists reports whether roomID has at least one member.
func (d *Directory) Exists(roomID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.rooms[roomID]
	return ok
}

// CreateAndJoin creates roomID with connID as its first member.
//
// Postcondition: returns game.SeatX, or ErrAlreadyExists if the room has members.
func (d *Directory) CreateAndJoin(roomID, connID string) (game.Seat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rooms[roomID]; ok {
		return "", fmt.Errorf("creating room %q: %w", roomID, errors.ErrAlreadyExists)
	}
	d.rooms[roomID] = &Room{ID: roomID, members: []string{connID}}
	return game.SeatFor(0), nil
}

// Join admits connID into an existing room. The capacity check and the
// admission happen under one lock, so concurrent joins cannot both pass.
//
// Postcondition: returns game.SeatO, or ErrNotFound, ErrAlreadyMember or ErrRoomFull.
func (d *Directory) Join(roomID, connID string) (game.Seat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return "", fmt.Errorf("joining room %q: %w", roomID, errors.ErrNotFound)
	}
	for _, m := range r.members {
		if m == connID {
			return "", fmt.Errorf("joining room %q: %w", roomID, errors.ErrAlreadyMember)
		}
	}
	if len(r.members) >= game.Capacity {
		return "", fmt.Errorf("joining room %q: %w", roomID, errors.ErrRoomFull)
	}
	seat := game.SeatFor(len(r.members))
	r.members = append(r.members, connID)
	return seat, nil
}

// Delete removes roomID entirely.
func (d *Directory) Delete(roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rooms[roomID]; !ok {
		return fmt.Errorf("deleting room %q: %w", roomID, errors.ErrNotFound)
	}
	delete(d.rooms, roomID)
	return nil
}

// Leave removes connID from roomID and drops the room once it is empty.
// It returns how many members remain and whether connID was a member.
func (d *Directory) Leave(roomID, connID string) (remaining int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, exists := d.rooms[roomID]
	if !exists {
		return 0, false
	}
	for i, m := range r.members {
		if m == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			ok = true
			break
		}
	}
	if len(r.members) == 0 {
		delete(d.rooms, roomID)
	}
	return len(r.members), ok
}

// Members returns the connection IDs in roomID in join order.
//
// Postcondition: Returns a copy (may be empty).
func (d *Directory) Members(roomID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return []string{}
	}
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Count returns the number of live rooms.
func (d *Directory) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.Unlock()
			k.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}
