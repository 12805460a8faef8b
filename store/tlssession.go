package store

import (
	"net"
	"time"
)

// TLSSession is an opaque serialized session ticket for one origin. The
// share treats both blobs as opaque; only the transfer engine's TLS layer
// interprets them.
type TLSSession struct {
	Ticket  []byte    `json:"ticket"`
	State   []byte    `json:"state,omitempty"`
	Created time.Time `json:"created"`
}

// SessionKey builds the canonical "proto:host:port" key used by the TLS
// session store, e.g. "h2:example.com:443".
func SessionKey(proto, host, port string) string {
	return proto + ":" + net.JoinHostPort(host, port)
}

// TLSSessionStore caches session tickets keyed by origin. Tickets are
// write-once per key and overwritten on renegotiation.
type TLSSessionStore struct {
	sessions map[string]TLSSession
}

// NewTLSSessionStore constructs an empty session store.
func NewTLSSessionStore() *TLSSessionStore {
	return &TLSSessionStore{sessions: make(map[string]TLSSession)}
}

// Get returns the ticket stored for key.
func (s *TLSSessionStore) Get(key string) (TLSSession, bool) {
	ts, ok := s.sessions[key]
	return ts, ok
}

// Put stores a ticket for key, replacing any previous one.
func (s *TLSSessionStore) Put(key string, ts TLSSession) {
	if ts.Created.IsZero() {
		ts.Created = time.Now()
	}
	s.sessions[key] = ts
}

// Remove deletes the ticket for key, if any.
func (s *TLSSessionStore) Remove(key string) {
	delete(s.sessions, key)
}

// Len returns the number of stored tickets.
func (s *TLSSessionStore) Len() int {
	return len(s.sessions)
}

// All returns a snapshot of every stored ticket.
func (s *TLSSessionStore) All() map[string]TLSSession {
	out := make(map[string]TLSSession, len(s.sessions))
	for k, v := range s.sessions {
		out[k] = v
	}
	return out
}
