package store

import (
	"net/netip"
	"time"
)

// DefaultDNSTTL matches the transfer engine's own resolver cache timeout.
const DefaultDNSTTL = 60 * time.Second

// DNSEntry is one cached resolution result.
type DNSEntry struct {
	Addrs   []netip.Addr
	Created time.Time
}

// DNSStore caches resolved addresses keyed by hostname (optionally
// host:port). Entries expire after the store's TTL and are evicted lazily
// on read.
type DNSStore struct {
	ttl     time.Duration
	entries map[string]DNSEntry
}

// NewDNSStore constructs an empty DNS store. A non-positive ttl selects
// DefaultDNSTTL.
func NewDNSStore(ttl time.Duration) *DNSStore {
	if ttl <= 0 {
		ttl = DefaultDNSTTL
	}
	return &DNSStore{ttl: ttl, entries: make(map[string]DNSEntry)}
}

// TTL returns the store's entry lifetime.
func (s *DNSStore) TTL() time.Duration {
	return s.ttl
}

// Get returns the entry for host if present and not expired. An expired
// entry is removed and reported as a miss.
func (s *DNSStore) Get(host string, now time.Time) (DNSEntry, bool) {
	e, ok := s.entries[host]
	if !ok {
		return DNSEntry{}, false
	}
	if now.Sub(e.Created) > s.ttl {
		delete(s.entries, host)
		return DNSEntry{}, false
	}
	return e, true
}

// Put stores an entry for host, stamping Created if the caller left it zero.
func (s *DNSStore) Put(host string, e DNSEntry) {
	if e.Created.IsZero() {
		e.Created = time.Now()
	}
	s.entries[host] = e
}

// Remove deletes the entry for host, if any.
func (s *DNSStore) Remove(host string) {
	delete(s.entries, host)
}

// Len returns the number of entries, expired ones included.
func (s *DNSStore) Len() int {
	return len(s.entries)
}

// All returns a snapshot of the non-expired entries.
func (s *DNSStore) All(now time.Time) map[string]DNSEntry {
	out := make(map[string]DNSEntry, len(s.entries))
	for host, e := range s.entries {
		if now.Sub(e.Created) > s.ttl {
			continue
		}
		out[host] = e
	}
	return out
}
