// Package session captures and restores the persistable portion of a share's
// state: cookies, DNS entries and TLS session tickets. Idle connections are
// process-bound and never serialized.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StateVersion is the current snapshot schema version.
const StateVersion = 1

// State is the complete serializable snapshot of a share.
type State struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cookies []CookieState `json:"cookies,omitempty"`

	// DNS entries keyed by hostname (optionally host:port).
	DNS map[string]DNSState `json:"dns,omitempty"`

	// TLS sessions keyed by origin "proto:host:port",
	// e.g. "h2:example.com:443".
	TLSSessions map[string]TLSSessionState `json:"tls_sessions,omitempty"`
}

// CookieState is a serializable cookie record.
type CookieState struct {
	Domain            string     `json:"domain"`
	IncludeSubdomains bool       `json:"include_subdomains,omitempty"`
	Path              string     `json:"path"`
	Name              string     `json:"name"`
	Value             string     `json:"value"`
	Expires           *time.Time `json:"expires,omitempty"`
	Secure            bool       `json:"secure,omitempty"`
	HttpOnly          bool       `json:"http_only,omitempty"`
}

// DNSState is a serializable resolution result.
type DNSState struct {
	Addrs   []string  `json:"addrs"`
	Created time.Time `json:"created"`
}

// TLSSessionState is a serializable session ticket.
type TLSSessionState struct {
	Ticket  []byte    `json:"ticket"`
	State   []byte    `json:"state,omitempty"`
	Created time.Time `json:"created"`
}

// Encode writes the state as JSON.
func (s *State) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// DecodeState reads a JSON state and validates its version.
func DecodeState(r io.Reader) (*State, error) {
	var s State
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != StateVersion {
		return nil, fmt.Errorf("snapshot version %d not supported (want %d)", s.Version, StateVersion)
	}
	return &s, nil
}
