package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"nvivas/backend/tictactoe-rooms/internal/errors"
	"nvivas/backend/tictactoe-rooms/internal/game"
)

// Event names on the wire.
const (
	EventCreateRoom   = "createRoom"
	EventJoinRoom     = "joinRoom"
	EventRoomJoined   = "roomJoined"
	EventRoomFull     = "roomFull"
	EventMakeMove     = "makeMove"
	EventMoveMade     = "moveMade"
	EventNewMessage   = "newMessage"
	EventDeleteRoom   = "deleteRoom"
	EventRoomDeleted  = "roomDeleted"
	EventDisconnected = "disconnected"
	EventError        = "error"
	EventMessageError = "messageError"
)

// MaxRoomIDLength bounds caller-supplied room identifiers.
const MaxRoomIDLength = 64

// Envelope is used for initial message deserialization
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Move is a board position within a room.
type Move struct {
	Position int    `json:"position"`
	RoomID   string `json:"roomId"`
}

// ChatMessage is relayed verbatim between room members.
type ChatMessage struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// Inbound is a client-to-server event. The set of implementations is closed.
type Inbound interface {
	inbound()
	// Room returns the room the event targets.
	Room() string
}

type CreateRoom struct{ RoomID string }

type JoinRoom struct{ RoomID string }

type DeleteRoom struct{ RoomID string }

type MakeMove struct{ Move Move }

type SendMessage struct {
	Msg    ChatMessage `json:"msg"`
	RoomID string      `json:"roomId"`
}

func (CreateRoom) inbound()  {}
func (JoinRoom) inbound()    {}
func (DeleteRoom) inbound()  {}
func (MakeMove) inbound()    {}
func (SendMessage) inbound() {}

func (e CreateRoom) Room() string  { return e.RoomID }
func (e JoinRoom) Room() string    { return e.RoomID }
func (e DeleteRoom) Room() string  { return e.RoomID }
func (e MakeMove) Room() string    { return e.Move.RoomID }
func (e SendMessage) Room() string { return e.RoomID }

// DecodeError describes a frame that could not be turned into an Inbound.
// Type is the envelope type when it could be read.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a raw frame into a typed inbound event.
func Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", errors.ErrMalformed, err)}
	}

	switch env.Type {
	case EventCreateRoom, EventJoinRoom, EventDeleteRoom:
		id, err := decodeRoomID(env.Payload)
		if err != nil {
			return nil, &DecodeError{Type: env.Type, Err: err}
		}
		switch env.Type {
		case EventCreateRoom:
			return CreateRoom{RoomID: id}, nil
		case EventJoinRoom:
			return JoinRoom{RoomID: id}, nil
		default:
			return DeleteRoom{RoomID: id}, nil
		}

	case EventMakeMove:
		var m struct {
			Position *float64 `json:"position"`
			RoomID   string   `json:"roomId"`
		}
		if err := unmarshalPayload(env.Payload, &m); err != nil || m.Position == nil {
			return nil, &DecodeError{Type: env.Type, Err: errors.ErrInvalidMove}
		}
		// Clients may send 4.0 for 4; fractional or huge positions never name a cell.
		p := *m.Position
		if p != math.Trunc(p) || math.Abs(p) > math.MaxInt32 {
			return nil, &DecodeError{Type: env.Type, Err: errors.ErrInvalidMove}
		}
		return MakeMove{Move: Move{Position: int(p), RoomID: m.RoomID}}, nil

	case EventNewMessage:
		var m SendMessage
		if err := unmarshalPayload(env.Payload, &m); err != nil {
			return nil, &DecodeError{Type: env.Type, Err: fmt.Errorf("%w: %v", errors.ErrMalformed, err)}
		}
		return m, nil

	default:
		return nil, &DecodeError{Type: env.Type, Err: errors.ErrUnknownEvent}
	}
}

// decodeRoomID accepts either a bare JSON string or {"roomId": "..."}.
func decodeRoomID(payload json.RawMessage) (string, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return "", errors.ErrInvalidRoomID
	}

	var id string
	if payload[0] == '"' {
		if err := json.Unmarshal(payload, &id); err != nil {
			return "", errors.ErrInvalidRoomID
		}
	} else {
		var obj struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(payload, &obj); err != nil {
			return "", errors.ErrInvalidRoomID
		}
		id = obj.RoomID
	}

	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxRoomIDLength {
		return "", errors.ErrInvalidRoomID
	}
	return id, nil
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(payload, v)
}

// Outbound is a server-to-client event. The set of implementations is closed.
type Outbound interface {
	outbound()
	// Name is the wire event name.
	Name() string
}

// RoomJoinedResponse is broadcast to a room after a successful admission.
type RoomJoinedResponse struct {
	ConnectionID string    `json:"connectionId"`
	Seat         game.Seat `json:"seat"`
}

// RoomFullResponse is broadcast once a room reaches capacity.
type RoomFullResponse struct {
	Members []string `json:"members"`
}

// MoveMadeResponse relays a move to the room.
type MoveMadeResponse struct {
	Move     Move   `json:"move"`
	SenderID string `json:"senderId"`
}

// NewMessageResponse relays a chat message to the room.
type NewMessageResponse struct {
	Msg      ChatMessage `json:"msg"`
	SenderID string      `json:"senderId"`
}

// RoomDeletedResponse is broadcast to a room right before it is removed.
type RoomDeletedResponse struct {
	Message string `json:"message"`
}

// DisconnectedResponse is sent to every connection when one drops.
type DisconnectedResponse struct {
	ConnectionID string `json:"connectionId"`
}

// ErrorResponse is sent when an error occurs
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageErrorResponse is sent when a chat message could not be relayed.
type MessageErrorResponse struct {
	Message string `json:"message"`
}

func (RoomJoinedResponse) outbound()   {}
func (RoomFullResponse) outbound()     {}
func (MoveMadeResponse) outbound()     {}
func (NewMessageResponse) outbound()   {}
func (RoomDeletedResponse) outbound()  {}
func (DisconnectedResponse) outbound() {}
func (ErrorResponse) outbound()        {}
func (MessageErrorResponse) outbound() {}

func (RoomJoinedResponse) Name() string   { return EventRoomJoined }
func (RoomFullResponse) Name() string     { return EventRoomFull }
func (MoveMadeResponse) Name() string     { return EventMoveMade }
func (NewMessageResponse) Name() string   { return EventNewMessage }
func (RoomDeletedResponse) Name() string  { return EventRoomDeleted }
func (DisconnectedResponse) Name() string { return EventDisconnected }
func (ErrorResponse) Name() string        { return EventError }
func (MessageErrorResponse) Name() string { return EventMessageError }

// Encode wraps an outbound event in an Envelope.
func Encode(ev Outbound) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", ev.Name(), err)
	}
	return json.Marshal(Envelope{Type: ev.Name(), Payload: payload})
}

// DecodeOutbound parses a frame produced by Encode. It is used by the
// cluster bus and by tests.
func DecodeOutbound(raw []byte) (Outbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformed, err)
	}

	var ev Outbound
	switch env.Type {
	case EventRoomJoined:
		var v RoomJoinedResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventRoomFull:
		var v RoomFullResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventMoveMade:
		var v MoveMadeResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventNewMessage:
		var v NewMessageResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventRoomDeleted:
		var v RoomDeletedResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventDisconnected:
		var v DisconnectedResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventError:
		var v ErrorResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	case EventMessageError:
		var v MessageErrorResponse
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		ev = v
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Type)
	}
	return ev, nil
}
