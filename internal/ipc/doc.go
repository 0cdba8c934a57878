// Package ipc is the client side of the daemon's HTTP API, used by the CLI.
//
// Requests carry the configured bearer token and a context deadline so CLI
// commands fail fast when the daemon is offline. Non-2xx responses decode into
// *Error, which preserves the error kind and hint reported by the daemon.
// WatchEvents follows a job over the websocket event stream.
package ipc
