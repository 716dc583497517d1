package engine

import (
	"errors"
)

var (
	// Server policy or author permissions could not be resolved; the item is not evaluated
	ErrPolicyUnavailable = errors.New("automod policy unavailable")
	// A rule's detector is down or returned garbage; that rule is skipped
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// Delete, notify or log side effect failed after a rule triggered
	ErrActionFailed = errors.New("automod action failed")
	// Chat platform object does not exist (any more)
	ErrNotFound = errors.New("not found")
)
