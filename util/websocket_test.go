package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayURL(t *testing.T) {
	assert := assert.New(t)

	testCases := []struct {
		host     string
		expected string
	}{
		{"localhost:8080", "ws://localhost:8080/websocket/v1"},
		{"127.0.0.1", "ws://127.0.0.1/websocket/v1"},
		{"[::1]:9000", "ws://[::1]:9000/websocket/v1"},
		{"www.guilded.gg", "wss://www.guilded.gg/websocket/v1"},
		{"wss://www.guilded.gg/websocket/v1", "wss://www.guilded.gg/websocket/v1"},
		{"ws://gateway.internal/custom", "ws://gateway.internal/custom"},
		{"https://www.guilded.gg", "wss://www.guilded.gg/websocket/v1"},
		{"http://example.com:123/ws", "ws://example.com:123/ws"},
		{"ftp://example.com", "ftp://example.com"},
		{"", ""},
	}

	for _, c := range testCases {
		assert.Equal(c.expected, GatewayURL(c.host), c.host)
	}
}
