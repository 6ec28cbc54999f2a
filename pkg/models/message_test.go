package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvivas/backend/tictactoe-rooms/internal/errors"
	"nvivas/backend/tictactoe-rooms/internal/game"
)

func TestDecode_RoomEvents(t *testing.T) {
	t.Run("BareString", func(t *testing.T) {
		ev, err := Decode([]byte(`{"type":"createRoom","payload":"room-1"}`))
		require.NoError(t, err)
		assert.Equal(t, CreateRoom{RoomID: "room-1"}, ev)
	})

	t.Run("Object", func(t *testing.T) {
		ev, err := Decode([]byte(`{"type":"joinRoom","payload":{"roomId":"room-1"}}`))
		require.NoError(t, err)
		assert.Equal(t, JoinRoom{RoomID: "room-1"}, ev)
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		ev, err := Decode([]byte(`{"type":"deleteRoom","payload":"  room-1 "}`))
		require.NoError(t, err)
		assert.Equal(t, DeleteRoom{RoomID: "room-1"}, ev)
		assert.Equal(t, "room-1", ev.Room())
	})

	for name, payload := range map[string]string{
		"Missing":  `{"type":"createRoom"}`,
		"Empty":    `{"type":"createRoom","payload":""}`,
		"Number":   `{"type":"createRoom","payload":42}`,
		"TooLong":  `{"type":"createRoom","payload":"` + strings.Repeat("a", MaxRoomIDLength+1) + `"}`,
		"WrongKey": `{"type":"joinRoom","payload":{"id":"r"}}`,
	} {
		t.Run("Invalid"+name, func(t *testing.T) {
			_, err := Decode([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidRoomID))
		})
	}
}

func TestDecode_MakeMove(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"makeMove","payload":{"position":4,"roomId":"r"}}`))
	require.NoError(t, err)
	assert.Equal(t, MakeMove{Move: Move{Position: 4, RoomID: "r"}}, ev)

	ev, err = Decode([]byte(`{"type":"makeMove","payload":{"position":4.0,"roomId":"r"}}`))
	require.NoError(t, err)
	assert.Equal(t, MakeMove{Move: Move{Position: 4, RoomID: "r"}}, ev)

	// Negative integers decode; the coordinator drops them as off-board.
	ev, err = Decode([]byte(`{"type":"makeMove","payload":{"position":-1,"roomId":"r"}}`))
	require.NoError(t, err)
	assert.Equal(t, -1, ev.(MakeMove).Move.Position)

	for _, payload := range []string{
		`{"type":"makeMove","payload":{"position":1.5,"roomId":"r"}}`,
		`{"type":"makeMove","payload":{"position":1e300,"roomId":"r"}}`,
		`{"type":"makeMove","payload":{"position":"3","roomId":"r"}}`,
		`{"type":"makeMove","payload":{"roomId":"r"}}`,
		`{"type":"makeMove"}`,
	} {
		_, err := Decode([]byte(payload))
		require.Error(t, err, payload)
		assert.True(t, errors.Is(err, errors.ErrInvalidMove), payload)
	}
}

func TestDecode_NewMessage(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"newMessage","payload":{"msg":{"name":"ana","text":"hi","time":"12:00"},"roomId":"r"}}`))
	require.NoError(t, err)
	assert.Equal(t, SendMessage{Msg: ChatMessage{Name: "ana", Text: "hi", Time: "12:00"}, RoomID: "r"}, ev)

	_, err = Decode([]byte(`{"type":"newMessage","payload":{"msg":"hi","roomId":"r"}}`))
	assert.True(t, errors.Is(err, errors.ErrMalformed))
}

func TestDecode_Envelope(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.True(t, errors.Is(err, errors.ErrMalformed))

	_, err = Decode([]byte(`{"type":"surrender"}`))
	assert.True(t, errors.Is(err, errors.ErrUnknownEvent))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "surrender", de.Type)
}

func TestEncode(t *testing.T) {
	raw, err := Encode(RoomJoinedResponse{ConnectionID: "c1", Seat: game.SeatX})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"roomJoined","payload":{"connectionId":"c1","seat":"X"}}`, string(raw))

	raw, err = Encode(MoveMadeResponse{Move: Move{Position: 2, RoomID: "r"}, SenderID: "c2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"moveMade","payload":{"move":{"position":2,"roomId":"r"},"senderId":"c2"}}`, string(raw))

	raw, err = Encode(RoomFullResponse{Members: []string{"a", "b"}})
	require.NoError(t, err)
	ev, err := DecodeOutbound(raw)
	require.NoError(t, err)
	assert.Equal(t, RoomFullResponse{Members: []string{"a", "b"}}, ev)
}

func TestDecodeOutbound_Unknown(t *testing.T) {
	_, err := DecodeOutbound([]byte(`{"type":"createRoom","payload":"r"}`))
	assert.True(t, errors.Is(err, errors.ErrUnknownEvent))
}
