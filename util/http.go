package util

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Adapts slog to the retryablehttp leveled logger interface.
type LeveledSlog struct {
	inner *slog.Logger
}

func NewLeveledSlog(logger *slog.Logger) LeveledSlog {
	return LeveledSlog{inner: logger.With("system", "http-client")}
}

// re-writes HTTP client ERROR to WARN level (because of retries)
func (l LeveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l LeveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l LeveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

// re-writes HTTP client DEBUG to INFO level (this is where retry is logged)
func (l LeveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

// Generates an HTTP client with decent general-purpose defaults around
// timeouts and retries. The returned client has the stdlib http.Client
// interface, but has Hashicorp retryablehttp logic internally.
//
// This client will retry on connection errors, 5xx status (except 501), and
// 429 Backoff requests (respecting 'Retry-After' header). It will log
// intermediate failures with WARN level.
//
// Used for the chat platform API, classifier services, and feed downloads.
func RobustHTTPClient() *http.Client {
	return RobustHTTPClientWithTransport(nil)
}

// Same as RobustHTTPClient, but with a custom underlying transport (eg, one which refuses to connect to private addresses). A nil transport uses the retryablehttp default.
func RobustHTTPClientWithTransport(transport http.RoundTripper) *http.Client {
	retryClient := retryablehttp.NewClient()
	if transport != nil {
		retryClient.HTTPClient = &http.Client{Transport: transport}
	}
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(NewLeveledSlog(slog.Default()))
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

// HTTP client for requests with side effects which must not be repeated, like posting a message. Same timeouts and logging as RobustHTTPClient, but a failed request is never retried, and error responses (including 5xx and 429) are passed through to the caller unchanged.
func SingleAttemptHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryablehttp.LeveledLogger(NewLeveledSlog(slog.Default()))
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}
