// Package registry tracks live connections and the rooms each belongs to,
// and delivers encoded events to them.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"nvivas/backend/tictactoe-rooms/internal/errors"
	"nvivas/backend/tictactoe-rooms/internal/interfaces"
	"nvivas/backend/tictactoe-rooms/internal/logger"
	"nvivas/backend/tictactoe-rooms/pkg/models"
)

type entry struct {
	conn  interfaces.Conn
	rooms map[string]bool
}

// Registry is the connection side of room membership: conn → rooms, plus
// the room → conns index used for fan-out. All methods are safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*entry
	groups map[string]map[string]bool // roomID → set of connIDs
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns:  make(map[string]*entry),
		groups: make(map[string]map[string]bool),
	}
}

// Add registers conn. Re-adding an ID replaces the previous connection.
func (r *Registry) Add(conn interfaces.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = &entry{conn: conn, rooms: make(map[string]bool)}
}

// Has reports whether connID is registered.
func (r *Registry) Has(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

// Conn returns the transport endpoint for connID.
func (r *Registry) Conn(connID string) (interfaces.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Connections returns the IDs of all live connections, sorted.
func (r *Registry) Connections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Join adds connID to roomID's delivery group.
func (r *Registry) Join(connID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return fmt.Errorf("connection %q not registered", connID)
	}
	e.rooms[roomID] = true
	if r.groups[roomID] == nil {
		r.groups[roomID] = make(map[string]bool)
	}
	r.groups[roomID][connID] = true
	return nil
}

// Leave removes connID from roomID's delivery group.
func (r *Registry) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, roomID)
}

func (r *Registry) leaveLocked(connID, roomID string) {
	if e, ok := r.conns[connID]; ok {
		delete(e.rooms, roomID)
	}
	if g, ok := r.groups[roomID]; ok {
		delete(g, connID)
		if len(g) == 0 {
			delete(r.groups, roomID)
		}
	}
}

// DropRoom removes roomID from every member's room set.
func (r *Registry) DropRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID := range r.groups[roomID] {
		if e, ok := r.conns[connID]; ok {
			delete(e.rooms, roomID)
		}
	}
	delete(r.groups, roomID)
}

// IsMember reports whether connID is in roomID's delivery group.
func (r *Registry) IsMember(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	return ok && e.rooms[roomID]
}

// Rooms returns the rooms connID belongs to, sorted.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return sortedKeys(e.rooms)
}

// RemoveConnection forgets connID and returns the rooms it belonged to.
// ok is false when connID was not registered.
func (r *Registry) RemoveConnection(connID string) (rooms []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	rooms = sortedKeys(e.rooms)
	for _, roomID := range rooms {
		r.leaveLocked(connID, roomID)
	}
	delete(r.conns, connID)
	return rooms, true
}

// Unicast delivers ev to a single connection.
func (r *Registry) Unicast(connID string, ev models.Outbound) error {
	frame, err := models.Encode(ev)
	if err != nil {
		return err
	}

	r.mu.RLock()
	e, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unicast %s to %q: %w", ev.Name(), connID, errors.ErrDeliveryFailure)
	}
	if err := e.conn.Push(frame); err != nil {
		logger.Warn("No se pudo enviar mensaje, canal posiblemente cerrado", logger.Fields{
			"clientID": connID,
			"event":    ev.Name(),
			"error":    err.Error(),
		})
		return fmt.Errorf("unicast %s to %q: %w", ev.Name(), connID, errors.ErrDeliveryFailure)
	}
	return nil
}

// Broadcast delivers ev to every connection in roomID except excludeID
// (pass "" to include everyone). It returns how many connections accepted
// the frame and ErrDeliveryFailure when none did.
func (r *Registry) Broadcast(roomID string, ev models.Outbound, excludeID string) (int, error) {
	r.mu.RLock()
	targets := make([]*entry, 0, len(r.groups[roomID]))
	for connID := range r.groups[roomID] {
		if connID == excludeID {
			continue
		}
		if e, ok := r.conns[connID]; ok {
			targets = append(targets, e)
		}
	}
	r.mu.RUnlock()

	delivered, err := r.deliver(targets, ev)
	if err != nil {
		return delivered, fmt.Errorf("broadcast %s to room %q: %w", ev.Name(), roomID, err)
	}
	return delivered, nil
}

// BroadcastAll delivers ev to every live connection except excludeID.
func (r *Registry) BroadcastAll(ev models.Outbound, excludeID string) (int, error) {
	r.mu.RLock()
	targets := make([]*entry, 0, len(r.conns))
	for connID, e := range r.conns {
		if connID != excludeID {
			targets = append(targets, e)
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return 0, nil
	}
	return r.deliver(targets, ev)
}

func (r *Registry) deliver(targets []*entry, ev models.Outbound) (int, error) {
	frame, err := models.Encode(ev)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range targets {
		if err := e.conn.Push(frame); err != nil {
			logger.Warn("No se pudo enviar mensaje broadcast, canal posiblemente cerrado", logger.Fields{
				"clientID": e.conn.ID(),
				"event":    ev.Name(),
				"error":    err.Error(),
			})
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return 0, errors.ErrDeliveryFailure
	}
	return delivered, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
