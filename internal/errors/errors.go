package errors

import (
	stderrors "errors"
)

// Error types
var (
	ErrAlreadyExists   = stderrors.New("room already exists")
	ErrNotFound        = stderrors.New("room does not exist")
	ErrRoomFull        = stderrors.New("room is full")
	ErrAlreadyMember   = stderrors.New("already a member of the room")
	ErrInvalidMove     = stderrors.New("invalid move")
	ErrInvalidRoomID   = stderrors.New("invalid room id")
	ErrDeliveryFailure = stderrors.New("event not delivered")
	ErrUnknownEvent    = stderrors.New("unknown event type")
	ErrMalformed       = stderrors.New("malformed message")
	ErrClosed          = stderrors.New("coordinator closed")
)

// Client-facing messages carried by error and messageError events.
const (
	MsgAlreadyExists  = "Room already exists"
	MsgNotFound       = "Room does not exist"
	MsgRoomFull       = "Room is full"
	MsgAlreadyMember  = "Already in this room"
	MsgInvalidRoomID  = "Invalid room id"
	MsgMoveNotShared  = "Move not shared"
	MsgMessageNotSent = "Unable to send message"
	MsgUnknownEvent   = "Unknown event type"
	MsgInvalidFormat  = "Invalid message format"
	MsgInternal       = "Internal server error"
)

// Message maps err to the text sent back to the originating connection.
// Errors outside the taxonomy map to MsgInternal.
func Message(err error) string {
	switch {
	case stderrors.Is(err, ErrAlreadyExists):
		return MsgAlreadyExists
	case stderrors.Is(err, ErrNotFound):
		return MsgNotFound
	case stderrors.Is(err, ErrRoomFull):
		return MsgRoomFull
	case stderrors.Is(err, ErrAlreadyMember):
		return MsgAlreadyMember
	case stderrors.Is(err, ErrInvalidRoomID):
		return MsgInvalidRoomID
	case stderrors.Is(err, ErrUnknownEvent):
		return MsgUnknownEvent
	case stderrors.Is(err, ErrMalformed):
		return MsgInvalidFormat
	default:
		return MsgInternal
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
