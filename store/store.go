// Package store contains the in-memory caches a Share coordinates: cookies,
// DNS lookup results, TLS session tickets and idle connections.
//
// Stores never perform I/O and never lock; the owning Share serializes all
// access behind its own lock, so every method here runs in bounded time.
package store
