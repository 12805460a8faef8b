package store

import (
	"fmt"
	"net"
	"time"
)

// DefaultMaxIdlePerDest bounds the idle connections kept per destination.
const DefaultMaxIdlePerDest = 6

// DestKey identifies a connection destination.
type DestKey struct {
	Scheme string
	Host   string
	Port   int
}

// String renders the key in origin form, e.g. "https://example.com:443".
func (k DestKey) String() string {
	return fmt.Sprintf("%s://%s", k.Scheme, net.JoinHostPort(k.Host, fmt.Sprint(k.Port)))
}

// IdleConn is one pooled, reusable connection descriptor.
type IdleConn struct {
	Conn      net.Conn
	IdleSince time.Time
}

// ConnPool keeps idle, reusable connections per destination. Checkout is
// LIFO (the most recently parked connection is the most likely to still be
// alive); when a destination is at capacity the oldest-idle connection is
// evicted and closed.
type ConnPool struct {
	maxPerDest int
	idle       map[DestKey][]*IdleConn
}

// NewConnPool constructs an empty pool. A non-positive bound selects
// DefaultMaxIdlePerDest.
func NewConnPool(maxPerDest int) *ConnPool {
	if maxPerDest <= 0 {
		maxPerDest = DefaultMaxIdlePerDest
	}
	return &ConnPool{maxPerDest: maxPerDest, idle: make(map[DestKey][]*IdleConn)}
}

// Get removes and returns the most recently parked connection for key.
func (p *ConnPool) Get(key DestKey) (*IdleConn, bool) {
	conns := p.idle[key]
	if len(conns) == 0 {
		return nil, false
	}
	ic := conns[len(conns)-1]
	conns = conns[:len(conns)-1]
	if len(conns) == 0 {
		delete(p.idle, key)
	} else {
		p.idle[key] = conns
	}
	return ic, true
}

// Put parks a connection for key, stamping IdleSince if the caller left it
// zero. When the destination is at capacity the oldest-idle connection is
// closed and dropped to make room.
func (p *ConnPool) Put(key DestKey, ic *IdleConn) {
	if ic == nil {
		return
	}
	if ic.IdleSince.IsZero() {
		ic.IdleSince = time.Now()
	}
	conns := p.idle[key]
	if len(conns) >= p.maxPerDest {
		oldest := conns[0]
		conns = conns[1:]
		if oldest.Conn != nil {
			oldest.Conn.Close()
		}
	}
	p.idle[key] = append(conns, ic)
}

// Remove closes and drops every idle connection parked for key.
func (p *ConnPool) Remove(key DestKey) {
	for _, ic := range p.idle[key] {
		if ic.Conn != nil {
			ic.Conn.Close()
		}
	}
	delete(p.idle, key)
}

// Idle returns the number of connections parked for key.
func (p *ConnPool) Idle(key DestKey) int {
	return len(p.idle[key])
}

// Len returns the total number of parked connections.
func (p *ConnPool) Len() int {
	n := 0
	for _, conns := range p.idle {
		n += len(conns)
	}
	return n
}

// All returns a snapshot of the pool contents.
func (p *ConnPool) All() map[DestKey][]*IdleConn {
	out := make(map[DestKey][]*IdleConn, len(p.idle))
	for k, conns := range p.idle {
		cp := make([]*IdleConn, len(conns))
		copy(cp, conns)
		out[k] = cp
	}
	return out
}

// Clear closes and drops every parked connection.
func (p *ConnPool) Clear() {
	for key := range p.idle {
		p.Remove(key)
	}
}
