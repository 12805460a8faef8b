package httpshare

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikrodotnet/httpshare/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(
		WithClientLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClientTimeout(5*time.Second),
	)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestClientsShareCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "shared-42", Path: "/"})
			io.WriteString(w, "ok")
		default:
			if c, err := r.Cookie("sid"); err == nil {
				io.WriteString(w, c.Value)
				return
			}
			io.WriteString(w, "none")
		}
	}))
	defer srv.Close()

	sh := newTestShare(t)
	enable(t, sh, ShareCookies)

	a := newTestClient(t)
	b := newTestClient(t)
	require.NoError(t, a.UseShare(sh))
	require.NoError(t, b.UseShare(sh))

	ctx := context.Background()
	resp, err := a.Get(ctx, srv.URL+"/login")
	require.NoError(t, err)
	assert.Equal(t, "ok", readBody(t, resp))

	// The cookie set through handle A must be sent by handle B.
	resp, err = b.Get(ctx, srv.URL+"/whoami")
	require.NoError(t, err)
	assert.Equal(t, "shared-42", readBody(t, resp))
}

func TestCookiesPrivateWhenSharingDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "x", Path: "/"})
		}
		if c, err := r.Cookie("sid"); err == nil {
			io.WriteString(w, c.Value)
			return
		}
		io.WriteString(w, "none")
	}))
	defer srv.Close()

	sh := newTestShare(t) // cookie sharing never enabled

	a := newTestClient(t)
	b := newTestClient(t)
	require.NoError(t, a.UseShare(sh))
	require.NoError(t, b.UseShare(sh))

	ctx := context.Background()
	resp, err := a.Get(ctx, srv.URL+"/login")
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = b.Get(ctx, srv.URL+"/whoami")
	require.NoError(t, err)
	assert.Equal(t, "none", readBody(t, resp))
}

func TestClientDecodesGzipBody(t *testing.T) {
	const payload = "hello compressed world"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		io.WriteString(gw, payload)
		gw.Close()
	}))
	defer srv.Close()

	c := newTestClient(t)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, payload, readBody(t, resp))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	assert.Equal(t, int64(-1), resp.ContentLength)
}

func TestClientAttachLifecycle(t *testing.T) {
	first := newTestShare(t)
	second := newTestShare(t)

	c := newTestClient(t)
	assert.False(t, c.Attached())

	require.NoError(t, c.UseShare(first))
	assert.True(t, c.Attached())
	assert.Same(t, first, c.Share())

	// Attaching to the same share again is a no-op.
	require.NoError(t, c.UseShare(first))

	// A handle belongs to at most one share at a time.
	err := c.UseShare(second)
	require.Error(t, err)
	assert.True(t, IsInvalidHandle(err))

	require.NoError(t, c.DetachShare())
	assert.False(t, c.Attached())
	require.NoError(t, c.UseShare(second))
	require.NoError(t, c.Close())
	assert.False(t, c.Attached())

	// Detaching when not attached is harmless.
	assert.NoError(t, c.DetachShare())
}

func destKeyFor(t *testing.T, rawURL string) store.DestKey {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return store.DestKey{Scheme: "tcp", Host: u.Hostname(), Port: port}
}

func TestClientsShareConnections(t *testing.T) {
	var mu sync.Mutex
	remotes := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		remotes[r.RemoteAddr]++
		mu.Unlock()
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	sh := newTestShare(t)
	enable(t, sh, ShareConnections)
	key := destKeyFor(t, srv.URL)

	ctx := context.Background()
	a := newTestClient(t)
	require.NoError(t, a.UseShare(sh))

	for i := 0; i < 3; i++ {
		resp, err := a.Get(ctx, srv.URL)
		require.NoError(t, err, "transfer %d", i+1)
		assert.Equal(t, "ok", readBody(t, resp))

		// Completed transfers hand their connection back asynchronously;
		// wait for the park so the next checkout sees it.
		require.Eventually(t, func() bool { return sh.IdleConns(key) == 1 },
			2*time.Second, 5*time.Millisecond, "transfer %d never parked its connection", i+1)
	}
	require.NoError(t, a.Close())

	// A second handle must pick up the connection the first one parked.
	b := newTestClient(t)
	require.NoError(t, b.UseShare(sh))
	resp, err := b.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", readBody(t, resp))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, remotes, 1, "every transfer should ride the one shared connection")
}

func TestConcurrentTransfersShareConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, r.URL.Path)
	}))
	defer srv.Close()

	sh := newTestShare(t)
	enable(t, sh, ShareConnections)
	key := destKeyFor(t, srv.URL)

	const handles = 4
	const transfers = 4

	ctx := context.Background()
	errs := make(chan error, handles*transfers)
	var wg sync.WaitGroup
	for i := 0; i < handles; i++ {
		c := newTestClient(t)
		require.NoError(t, c.UseShare(sh))

		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < transfers; j++ {
				resp, err := c.Get(ctx, fmt.Sprintf("%s/item/%d/%d", srv.URL, n, j))
				if err != nil {
					errs <- fmt.Errorf("handle %d transfer %d: %w", n, j, err)
					return
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return sh.IdleConns(key) >= 1 },
		2*time.Second, 10*time.Millisecond, "no connection reached the shared pool")
	assert.LessOrEqual(t, sh.IdleConns(key), store.DefaultMaxIdlePerDest)
}

func TestClientIDsAreUnique(t *testing.T) {
	a := newTestClient(t)
	b := newTestClient(t)
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestShareDestroyBlockedByAttachedClient(t *testing.T) {
	sh := newTestShare(t)
	c := newTestClient(t)
	require.NoError(t, c.UseShare(sh))

	err := sh.Destroy()
	require.Error(t, err)
	assert.True(t, IsInUse(err))

	require.NoError(t, c.DetachShare())
	assert.NoError(t, sh.Destroy())
}
