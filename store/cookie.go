package store

import (
	"sort"
	"strings"
	"time"
)

// Cookie is a single stored cookie record.
type Cookie struct {
	Domain            string // canonical form, no leading dot
	IncludeSubdomains bool   // domain cookie: matches subdomains of Domain
	Path              string
	Name              string
	Value             string
	Secure            bool
	HttpOnly          bool
	Expires           time.Time // zero means session-only
	Created           time.Time
}

// CookieKey is the identity of a cookie record inside a CookieStore.
type CookieKey struct {
	Domain string
	Path   string
	Name   string
}

// Key returns the record's store identity.
func (c Cookie) Key() CookieKey {
	return CookieKey{Domain: c.Domain, Path: c.Path, Name: c.Name}
}

// Expired reports whether the cookie's expiry has passed. Session cookies
// never expire here; discarding them is the caller's policy.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && now.After(c.Expires)
}

// MatchesHost reports whether the cookie should be sent to host.
func (c Cookie) MatchesHost(host string) bool {
	host = CanonicalDomain(host)
	if host == c.Domain {
		return true
	}
	return c.IncludeSubdomains && strings.HasSuffix(host, "."+c.Domain)
}

// MatchesPath reports whether the cookie should be sent for a request path.
func (c Cookie) MatchesPath(path string) bool {
	if path == "" {
		path = "/"
	}
	if path == c.Path {
		return true
	}
	if !strings.HasPrefix(path, c.Path) {
		return false
	}
	return strings.HasSuffix(c.Path, "/") || path[len(c.Path)] == '/'
}

// CanonicalDomain lowercases a domain and strips the leading dot used by
// domain cookies in the Netscape file format.
func CanonicalDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(domain), ".")
}

// CookieStore holds cookies keyed by (domain, path, name).
type CookieStore struct {
	cookies map[CookieKey]Cookie
}

// NewCookieStore constructs an empty cookie store.
func NewCookieStore() *CookieStore {
	return &CookieStore{cookies: make(map[CookieKey]Cookie)}
}

// Get returns the record stored under key.
func (s *CookieStore) Get(key CookieKey) (Cookie, bool) {
	c, ok := s.cookies[key]
	return c, ok
}

// Put stores c, replacing any record with the same (domain, path, name).
func (s *CookieStore) Put(c Cookie) {
	c.Domain = CanonicalDomain(c.Domain)
	if c.Path == "" {
		c.Path = "/"
	}
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	s.cookies[c.Key()] = c
}

// Remove deletes the record stored under key, if any.
func (s *CookieStore) Remove(key CookieKey) {
	delete(s.cookies, key)
}

// Len returns the number of stored records.
func (s *CookieStore) Len() int {
	return len(s.cookies)
}

// All returns a snapshot of every record, ordered by domain, path and name.
func (s *CookieStore) All() []Cookie {
	out := make([]Cookie, 0, len(s.cookies))
	for _, c := range s.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Name < b.Name
	})
	return out
}

// Match returns the non-expired cookies to send for a request to host/path.
// Secure cookies are only returned when secure is true. Longer paths sort
// first so more specific cookies take precedence, matching usual jar order.
func (s *CookieStore) Match(host, path string, secure bool, now time.Time) []Cookie {
	var out []Cookie
	for _, c := range s.cookies {
		if c.Expired(now) {
			continue
		}
		if c.Secure && !secure {
			continue
		}
		if !c.MatchesHost(host) || !c.MatchesPath(path) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Path) != len(out[j].Path) {
			return len(out[i].Path) > len(out[j].Path)
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}
