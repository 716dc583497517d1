package util

import (
	"strings"
)

// Path of the bot gateway, used when a host is configured without one
const DefaultGatewayPath = "/websocket/v1"

// Turns a configured gateway "host" string in to a dialable websocket URL.
//
// Defaults to wss://, except for loopback hosts. http(s) schemes are converted to ws(s); other schemes are returned untouched. A host with no path gets DefaultGatewayPath.
func GatewayURL(host string) string {
	if host == "" {
		return ""
	}
	var u string
	switch {
	case strings.HasPrefix(host, "wss://"), strings.HasPrefix(host, "ws://"):
		u = host
	case strings.HasPrefix(host, "https://"):
		u = "wss://" + strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		u = "ws://" + strings.TrimPrefix(host, "http://")
	case strings.Contains(host, "://"):
		// don't mess with unexpected methods
		return host
	case isLoopback(host):
		u = "ws://" + host
	default:
		u = "wss://" + host
	}

	rest := u[strings.Index(u, "://")+3:]
	if !strings.Contains(rest, "/") {
		u += DefaultGatewayPath
	}
	return u
}

func isLoopback(host string) bool {
	if strings.HasPrefix(host, "127.0.0.") || strings.HasPrefix(host, "[::1]") {
		return true
	}
	return strings.SplitN(host, ":", 2)[0] == "localhost"
}
