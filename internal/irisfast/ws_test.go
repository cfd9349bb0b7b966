package irisfast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateCallbacksFireInRegistrationOrder(t *testing.T) {
	ws := NewWebSocket("ws://unused", 1, 0)
	var got []string
	ws.OnStateChange(func(s WebSocketState) { got = append(got, "first:"+string(s)) })
	ws.OnStateChange(nil)
	ws.OnStateChange(func(s WebSocketState) { got = append(got, "second:"+string(s)) })

	ws.setState(WSStateConnected)

	assert.Equal(t, []string{"first:" + string(WSStateConnected), "second:" + string(WSStateConnected)}, got)
	assert.Equal(t, WSStateConnected, ws.State())
}
