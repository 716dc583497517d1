// Automod component for per-server spam rate limiting.
//
// Counts messages per (author, channel) in fixed windows. Includes an interface and implementations using redis and in-process memory.
package cooldown
