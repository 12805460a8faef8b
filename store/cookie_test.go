package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieStoreBasics(t *testing.T) {
	s := NewCookieStore()

	s.Put(Cookie{Domain: "Example.COM", Path: "/", Name: "a", Value: "1"})
	require.Equal(t, 1, s.Len())

	c, ok := s.Get(CookieKey{Domain: "example.com", Path: "/", Name: "a"})
	require.True(t, ok)
	assert.Equal(t, "1", c.Value)
	assert.False(t, c.Created.IsZero())

	// Same identity overwrites.
	s.Put(Cookie{Domain: "example.com", Path: "/", Name: "a", Value: "2"})
	require.Equal(t, 1, s.Len())
	c, _ = s.Get(CookieKey{Domain: "example.com", Path: "/", Name: "a"})
	assert.Equal(t, "2", c.Value)

	s.Remove(CookieKey{Domain: "example.com", Path: "/", Name: "a"})
	assert.Equal(t, 0, s.Len())
}

func TestCookieMatch(t *testing.T) {
	now := time.Now()
	s := NewCookieStore()
	s.Put(Cookie{Domain: "example.com", Path: "/", Name: "host", Value: "h"})
	s.Put(Cookie{Domain: "example.com", IncludeSubdomains: true, Path: "/", Name: "dom", Value: "d"})
	s.Put(Cookie{Domain: "example.com", Path: "/api", Name: "api", Value: "a"})
	s.Put(Cookie{Domain: "example.com", Path: "/", Name: "sec", Value: "s", Secure: true})
	s.Put(Cookie{Domain: "example.com", Path: "/", Name: "old", Value: "o", Expires: now.Add(-time.Hour)})

	names := func(cookies []Cookie) []string {
		var out []string
		for _, c := range cookies {
			out = append(out, c.Name)
		}
		return out
	}

	t.Run("exact host, insecure", func(t *testing.T) {
		got := names(s.Match("example.com", "/", false, now))
		assert.ElementsMatch(t, []string{"host", "dom"}, got)
	})

	t.Run("subdomain only matches domain cookies", func(t *testing.T) {
		got := names(s.Match("www.example.com", "/", false, now))
		assert.Equal(t, []string{"dom"}, got)
	})

	t.Run("secure channel includes secure cookies", func(t *testing.T) {
		got := names(s.Match("example.com", "/", true, now))
		assert.ElementsMatch(t, []string{"host", "dom", "sec"}, got)
	})

	t.Run("path boundary", func(t *testing.T) {
		got := names(s.Match("example.com", "/api/v1", false, now))
		assert.ElementsMatch(t, []string{"host", "dom", "api"}, got)

		got = names(s.Match("example.com", "/apiary", false, now))
		assert.ElementsMatch(t, []string{"host", "dom"}, got)
	})

	t.Run("longer paths sort first", func(t *testing.T) {
		got := names(s.Match("example.com", "/api", false, now))
		require.NotEmpty(t, got)
		assert.Equal(t, "api", got[0])
	})
}

func TestCookieExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Cookie{}.Expired(now), "session cookies never expire")
	assert.True(t, Cookie{Expires: now.Add(-time.Minute)}.Expired(now))
	assert.False(t, Cookie{Expires: now.Add(time.Minute)}.Expired(now))
}

func TestCanonicalDomain(t *testing.T) {
	assert.Equal(t, "example.com", CanonicalDomain(".Example.Com"))
	assert.Equal(t, "example.com", CanonicalDomain("example.com"))
}

func TestCookieStoreAllSorted(t *testing.T) {
	s := NewCookieStore()
	s.Put(Cookie{Domain: "b.com", Path: "/", Name: "n"})
	s.Put(Cookie{Domain: "a.com", Path: "/x", Name: "n"})
	s.Put(Cookie{Domain: "a.com", Path: "/", Name: "z"})
	s.Put(Cookie{Domain: "a.com", Path: "/", Name: "a"})

	all := s.All()
	require.Len(t, all, 4)
	assert.Equal(t, "a.com", all[0].Domain)
	assert.Equal(t, "a", all[0].Name)
	assert.Equal(t, "z", all[1].Name)
	assert.Equal(t, "/x", all[2].Path)
	assert.Equal(t, "b.com", all[3].Domain)
}
