package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mikrodotnet/httpshare/store"
)

// ConnPooler is the slice of a share the dialer uses for connection reuse.
// Checkout removes the connection from the pool; Release parks it again and
// reports whether the pool accepted it.
type ConnPooler interface {
	CheckoutConn(key store.DestKey) (*store.IdleConn, bool)
	ReleaseConn(key store.DestKey, ic *store.IdleConn) bool
}

// Dialer opens TCP connections through the shared DNS cache and idle pool.
// Connections it hands out are wrapped so that Close parks them back in the
// pool when they are still healthy.
type Dialer struct {
	resolver  *Resolver
	pool      ConnPooler // may be nil
	timeout   time.Duration
	keepAlive time.Duration
}

// NewDialer builds a dialer from a resolver and an optional pool.
func NewDialer(resolver *Resolver, pool ConnPooler) *Dialer {
	return &Dialer{
		resolver:  resolver,
		pool:      pool,
		timeout:   30 * time.Second,
		keepAlive: 30 * time.Second,
	}
}

// DialContext connects to addr ("host:port"), reusing an idle pooled
// connection when one is available.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: bad port: %w", addr, err)
	}
	key := store.DestKey{Scheme: network, Host: host, Port: port}

	if d.pool != nil {
		for {
			ic, ok := d.pool.CheckoutConn(key)
			if !ok {
				break
			}
			if ic.Conn == nil {
				continue
			}
			// The peer may have hung up while the connection sat in the
			// pool; hand out only connections that still look idle.
			if connUsable(ic.Conn) {
				return newPooledConn(ic.Conn, key, d.pool), nil
			}
			ic.Conn.Close()
		}
	}

	conn, err := d.dialNew(ctx, network, host, portStr)
	if err != nil {
		return nil, err
	}
	if d.pool != nil {
		return newPooledConn(conn, key, d.pool), nil
	}
	return conn, nil
}

func (d *Dialer) dialNew(ctx context.Context, network, host, port string) (net.Conn, error) {
	addrs, err := d.resolver.LookupAddrs(ctx, host)
	if err != nil {
		return nil, err
	}

	nd := &net.Dialer{Timeout: d.timeout, KeepAlive: d.keepAlive}
	var lastErr error
	for _, a := range addrs {
		conn, err := nd.DialContext(ctx, network, joinAddrPort(a, port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("dial %s: %w", net.JoinHostPort(host, port), lastErr)
}

func joinAddrPort(a netip.Addr, port string) string {
	return net.JoinHostPort(a.String(), port)
}

// connUsable peeks at an idle connection under an immediate read deadline.
// A usable idle connection has nothing to say and times out. Buffered bytes
// or EOF mean the peer spoke or hung up since the connection was parked, so
// it cannot carry another transfer.
func connUsable(conn net.Conn) bool {
	if err := conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return false
	}
	var b [1]byte
	_, err := conn.Read(b[:])
	if resetErr := conn.SetReadDeadline(time.Time{}); resetErr != nil {
		return false
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// pooledConn wraps a connection handed out by the dialer. A clean Close
// parks the connection back in the shared pool; once any read or write has
// failed the connection is considered broken and Close really closes it.
type pooledConn struct {
	net.Conn
	key  store.DestKey
	pool ConnPooler

	mu     sync.Mutex
	broken bool
	closed bool
}

func newPooledConn(conn net.Conn, key store.DestKey, pool ConnPooler) *pooledConn {
	return &pooledConn{Conn: conn, key: key, pool: pool}
}

func (c *pooledConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if err != nil {
		c.markBroken()
	}
	return n, err
}

func (c *pooledConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if err != nil {
		c.markBroken()
	}
	return n, err
}

// MarkUnreusable forces the next Close to really close the connection.
func (c *pooledConn) MarkUnreusable() {
	c.markBroken()
}

func (c *pooledConn) markBroken() {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()
}

// Close parks a healthy connection back in the pool. Broken connections,
// repeat closes and pool rejection all fall through to a real close.
func (c *pooledConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	broken := c.broken
	c.mu.Unlock()

	if !broken {
		// Park the unwrapped conn; the next checkout re-wraps it with
		// fresh reuse state.
		if c.pool.ReleaseConn(c.key, &store.IdleConn{Conn: c.Conn}) {
			return nil
		}
	}
	return c.Conn.Close()
}
