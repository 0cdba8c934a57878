// Package cache provides the key/value TTL cache used to memoize rendered
// exports and other lookups outside the transcription hot path.
//
// Backends: "none" (every lookup misses), "memory" (process-local map with
// lazy expiry) and "redis" (shared across daemons via go-redis). All keys
// are namespaced with the configured prefix.
package cache
