package cooldown

import (
	"context"
	"fmt"
	"time"
)

// Length of the fixed rate-limiting window for each bucket.
const DefaultWindow = 60 * time.Second

// Fixed-window message counters, scoped per server and keyed by (author, channel).
type CooldownStore interface {
	// Records one message from `author` in `channel`, and returns true if the author has now sent more than `limit` messages in the current window.
	//
	// The first message in a fresh (or expired) window resets the counter to one and never reports exceeded.
	Check(ctx context.Context, server, author, channel string, limit uint32) (bool, error)
	// Discards all buckets for the server. Calling for a server with no buckets is not an error.
	Teardown(ctx context.Context, server string) error
}

func bucketName(author, channel string) string {
	return fmt.Sprintf("%s/%s", author, channel)
}
