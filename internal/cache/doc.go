// Package cache implements the cache-aside client over Redis.
//
// The client degrades instead of failing: connect attempts are bounded (three attempts,
// one second apart), and after exhaustion every operation returns its empty value without
// touching the network. Callers never need error handling for cache unavailability.
package cache
