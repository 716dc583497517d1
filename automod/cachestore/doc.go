// Automod component for caching records (as JSON strings) with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory, and Typed, which layers JSON encoding and cached absence on top of either.
//
// Used to cache per-server policy in front of the authoritative database, so that policy lookups on the message hot path are cheap.
package cachestore
