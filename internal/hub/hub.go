package hub

import (
	"context"
	"sync"
	"time"

	"nvivas/backend/tictactoe-rooms/internal/errors"
	"nvivas/backend/tictactoe-rooms/internal/game"
	"nvivas/backend/tictactoe-rooms/internal/interfaces"
	"nvivas/backend/tictactoe-rooms/internal/logger"
	"nvivas/backend/tictactoe-rooms/internal/registry"
	"nvivas/backend/tictactoe-rooms/internal/room"
	"nvivas/backend/tictactoe-rooms/pkg/models"
)

// RoomDeletedMessage is the text carried by roomDeleted.
const RoomDeletedMessage = "The room has been deleted"

const publishTimeout = 2 * time.Second

// Publisher relays process-wide events to other server instances.
type Publisher interface {
	Publish(ctx context.Context, ev models.Outbound) error
}

// Option configures a Hub.
type Option func(*Hub)

// WithPublisher makes the hub forward process-wide events to p.
func WithPublisher(p Publisher) Option {
	return func(h *Hub) { h.publisher = p }
}

// Hub is the session coordinator: it validates inbound events, mutates the
// room directory and announces the results through the connection registry.
type Hub struct {
	rooms     *room.Directory
	conns     *registry.Registry
	publisher Publisher

	mu     sync.RWMutex
	closed bool
}

// New crea una nueva instancia de Hub
func New(rooms *room.Directory, conns *registry.Registry, opts ...Option) *Hub {
	h := &Hub{rooms: rooms, conns: conns}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers a new connection. It fails once the hub is closed.
func (h *Hub) Connect(conn interfaces.Conn) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return errors.ErrClosed
	}
	h.conns.Add(conn)
	logger.Info("Cliente registrado", logger.Fields{"clientID": conn.ID()})
	return nil
}

// HandleFrame decodes a raw frame from connID and dispatches it. Frames that
// fail to decode are answered with an error event, except malformed moves and
// chat messages, which are dropped.
func (h *Hub) HandleFrame(connID string, frame []byte) {
	ev, err := models.Decode(frame)
	if err == nil {
		h.Handle(connID, ev)
		return
	}

	var de *models.DecodeError
	if errors.Is(err, errors.ErrInvalidMove) ||
		(errors.As(err, &de) && de.Type == models.EventNewMessage) {
		logger.Debug("Dropping malformed relay event", logger.Fields{
			"clientID": connID,
			"error":    err.Error(),
		})
		return
	}
	h.reject(connID, err)
}

// Handle dispatches a typed inbound event from connID.
func (h *Hub) Handle(connID string, ev models.Inbound) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed || !h.conns.Has(connID) {
		logger.Debug("Ignoring event from unknown connection", logger.Fields{"clientID": connID})
		return
	}

	switch e := ev.(type) {
	case models.CreateRoom:
		h.createRoom(connID, e.RoomID)
	case models.JoinRoom:
		h.joinRoom(connID, e.RoomID)
	case models.MakeMove:
		h.makeMove(connID, e.Move)
	case models.SendMessage:
		h.sendMessage(connID, e)
	case models.DeleteRoom:
		h.deleteRoom(connID, e.RoomID)
	default:
		logger.Error("Unhandled inbound event", logger.Fields{"clientID": connID})
	}
}

func (h *Hub) createRoom(connID, roomID string) {
	unlock := h.rooms.Lock(roomID)
	defer unlock()

	seat, err := h.rooms.CreateAndJoin(roomID, connID)
	if err != nil {
		h.reject(connID, err)
		return
	}
	if !h.admit(connID, roomID) {
		return
	}

	logger.Info("Sala creada", logger.Fields{"roomID": roomID, "clientID": connID, "symbol": seat})
	h.announce(roomID, models.RoomJoinedResponse{ConnectionID: connID, Seat: seat})
}

func (h *Hub) joinRoom(connID, roomID string) {
	unlock := h.rooms.Lock(roomID)
	defer unlock()

	seat, err := h.rooms.Join(roomID, connID)
	if err != nil {
		h.reject(connID, err)
		return
	}
	if !h.admit(connID, roomID) {
		return
	}

	logger.Info("Cliente se unió a sala", logger.Fields{"roomID": roomID, "clientID": connID, "symbol": seat})
	h.announce(roomID, models.RoomJoinedResponse{ConnectionID: connID, Seat: seat})

	if members := h.rooms.Members(roomID); len(members) == game.Capacity {
		logger.Info("Sala llena", logger.Fields{"roomID": roomID, "players": members})
		h.announce(roomID, models.RoomFullResponse{Members: members})
	}
}

// admit mirrors a directory admission into the registry. If the connection
// vanished in between, the directory admission is rolled back.
func (h *Hub) admit(connID, roomID string) bool {
	if err := h.conns.Join(connID, roomID); err != nil {
		h.rooms.Leave(roomID, connID)
		logger.Warn("Connection dropped during admission", logger.Fields{
			"roomID":   roomID,
			"clientID": connID,
			"error":    err.Error(),
		})
		return false
	}
	return true
}

func (h *Hub) makeMove(connID string, move models.Move) {
	if !game.ValidPosition(move.Position) {
		logger.Debug("Dropping out-of-range move", logger.Fields{
			"clientID": connID, "roomID": move.RoomID, "position": move.Position,
		})
		return
	}

	unlock := h.rooms.Lock(move.RoomID)
	defer unlock()

	if !h.conns.IsMember(connID, move.RoomID) {
		logger.Debug("Dropping move from non-member", logger.Fields{"clientID": connID, "roomID": move.RoomID})
		return
	}

	if _, err := h.conns.Broadcast(move.RoomID, models.MoveMadeResponse{Move: move, SenderID: connID}, ""); err != nil {
		logger.Error("Failed to share move", logger.Fields{"clientID": connID, "roomID": move.RoomID, "error": err.Error()})
		_ = h.conns.Unicast(connID, models.ErrorResponse{Message: errors.MsgMoveNotShared})
		return
	}

	row, col := game.Cell(move.Position)
	logger.Debug("Movimiento realizado", logger.Fields{
		"roomID": move.RoomID, "clientID": connID, "row": row, "col": col,
	})
}

func (h *Hub) sendMessage(connID string, m models.SendMessage) {
	unlock := h.rooms.Lock(m.RoomID)
	defer unlock()

	if !h.conns.IsMember(connID, m.RoomID) {
		logger.Debug("Dropping message from non-member", logger.Fields{"clientID": connID, "roomID": m.RoomID})
		return
	}

	if _, err := h.conns.Broadcast(m.RoomID, models.NewMessageResponse{Msg: m.Msg, SenderID: connID}, ""); err != nil {
		logger.Error("Failed to relay message", logger.Fields{"clientID": connID, "roomID": m.RoomID, "error": err.Error()})
		_ = h.conns.Unicast(connID, models.MessageErrorResponse{Message: errors.MsgMessageNotSent})
	}
}

func (h *Hub) deleteRoom(connID, roomID string) {
	unlock := h.rooms.Lock(roomID)
	defer unlock()

	if !h.rooms.Exists(roomID) {
		h.reject(connID, errors.ErrNotFound)
		return
	}

	h.announce(roomID, models.RoomDeletedResponse{Message: RoomDeletedMessage})
	if err := h.rooms.Delete(roomID); err != nil {
		h.reject(connID, err)
		return
	}
	h.conns.DropRoom(roomID)
	logger.Info("Sala eliminada", logger.Fields{"roomID": roomID, "clientID": connID})
}

// Disconnect removes connID from the registry and from every room it held,
// then tells every remaining connection. Repeated calls are no-ops.
func (h *Hub) Disconnect(connID string) {
	if !h.drop(connID) {
		return
	}

	ev := models.DisconnectedResponse{ConnectionID: connID}
	if _, err := h.conns.BroadcastAll(ev, connID); err != nil {
		logger.Warn("Disconnect notice not delivered", logger.Fields{"clientID": connID, "error": err.Error()})
	}
	if h.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := h.publisher.Publish(ctx, ev); err != nil {
			logger.Warn("Failed to publish disconnect", logger.Fields{"clientID": connID, "error": err.Error()})
		}
	}
	logger.Info("Cliente desregistrado", logger.Fields{"clientID": connID})
}

// drop leaves every room connID belongs to, each under that room's lock, and
// only then forgets the connection. Until a room is left the departing
// connection is still a registered member of it, so a concurrent join sees
// a consistent roster. Reports false if connID was already gone.
func (h *Hub) drop(connID string) bool {
	if !h.conns.Has(connID) {
		return false
	}
	for _, roomID := range h.conns.Rooms(connID) {
		h.leave(connID, roomID)
	}

	// Rooms admitted after the snapshot above are left the same way.
	rooms, ok := h.conns.RemoveConnection(connID)
	for _, roomID := range rooms {
		h.leave(connID, roomID)
	}
	return ok
}

func (h *Hub) leave(connID, roomID string) {
	unlock := h.rooms.Lock(roomID)
	defer unlock()

	h.conns.Leave(connID, roomID)
	if remaining, ok := h.rooms.Leave(roomID, connID); ok && remaining == 0 {
		logger.Info("Sala vacía, eliminada", logger.Fields{"roomID": roomID})
	}
}

// Relay delivers an event published by another instance to every local
// connection.
func (h *Hub) Relay(ev models.Outbound) {
	if _, err := h.conns.BroadcastAll(ev, ""); err != nil {
		logger.Debug("Relayed event had no recipients", logger.Fields{"event": ev.Name()})
	}
}

// Close disconnects every connection and rejects new ones. Rooms are
// dropped without broadcasting.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	for _, connID := range h.conns.Connections() {
		conn, ok := h.conns.Conn(connID)
		h.drop(connID)
		if ok {
			_ = conn.Close()
		}
	}
	logger.Info("Hub cerrado", nil)
}

// Stats is a point-in-time snapshot for logging.
type Stats struct {
	Connections int
	Rooms       int
}

// Stats returns current connection and room counts.
func (h *Hub) Stats() Stats {
	return Stats{Connections: h.conns.Len(), Rooms: h.rooms.Count()}
}

func (h *Hub) reject(connID string, err error) {
	logger.Warn(err.Error(), logger.Fields{"clientID": connID})
	if uerr := h.conns.Unicast(connID, models.ErrorResponse{Message: errors.Message(err)}); uerr != nil {
		logger.Debug("Error event not delivered", logger.Fields{"clientID": connID})
	}
}

func (h *Hub) announce(roomID string, ev models.Outbound) {
	if _, err := h.conns.Broadcast(roomID, ev, ""); err != nil {
		logger.Warn("Broadcast not delivered", logger.Fields{"roomID": roomID, "event": ev.Name(), "error": err.Error()})
	}
}
