package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrAlreadyExists, MsgAlreadyExists},
		{ErrNotFound, MsgNotFound},
		{ErrRoomFull, MsgRoomFull},
		{ErrAlreadyMember, MsgAlreadyMember},
		{ErrInvalidRoomID, MsgInvalidRoomID},
		{ErrUnknownEvent, MsgUnknownEvent},
		{ErrMalformed, MsgInvalidFormat},
		{fmt.Errorf("joining room %q: %w", "r1", ErrRoomFull), MsgRoomFull},
		{fmt.Errorf("boom"), MsgInternal},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, Message(tc.err))
		})
	}
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", ErrAlreadyExists)
	assert.True(t, Is(wrapped, ErrAlreadyExists))
	assert.False(t, Is(wrapped, ErrNotFound))
}
