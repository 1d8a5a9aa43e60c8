// Package sse implements the Server-Sent-Events connection registry and broadcaster.
//
// A Registry tracks every open stream and fans events out to all of them with
// best-effort semantics: writes are per-connection and in order, a failed or slow
// connection is silently evicted, and a periodic sweep reclaims streams whose
// disconnect was never observed by a write. Broadcast never returns an error.
package sse
