package voice

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCaller struct {
	phone string
	text  string
	err   error
}

func (c *mockCaller) MakeVoiceCall(ctx context.Context, phoneNumber, text string) error {
	c.phone = phoneNumber
	c.text = text
	return c.err
}

func TestConsoleChannel(t *testing.T) {
	var out bytes.Buffer
	channel := NewConsole(&out)

	require.NoError(t, channel.Send(context.Background(), "Hello everyone!"))
	assert.Equal(t, "Voice: Hello everyone!\n", out.String())
	assert.Equal(t, "Voice", channel.Type())
}

func TestModemChannel(t *testing.T) {
	caller := &mockCaller{}
	channel := NewModem(caller, "13800138000")

	require.NoError(t, channel.Send(context.Background(), "服务器告警"))
	assert.Equal(t, "13800138000", caller.phone)
	assert.Equal(t, "服务器告警", caller.text)
	assert.Equal(t, "Voice", channel.Type())
}

func TestModemChannel_Errors(t *testing.T) {
	assert.ErrorIs(t, NewModem(&mockCaller{}, "").Send(context.Background(), "x"), ErrNoTarget)

	callErr := errors.New("BUSY")
	err := NewModem(&mockCaller{err: callErr}, "13800138000").Send(context.Background(), "x")
	assert.ErrorIs(t, err, callErr)
}
