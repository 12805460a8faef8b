package transport

import (
	"crypto/tls"

	"github.com/mikrodotnet/httpshare/store"
)

// TLSSessionSharer is the slice of a share the session cache reads and
// writes serialized tickets through.
type TLSSessionSharer interface {
	GetTLSSession(key string) (store.TLSSession, bool)
	PutTLSSession(key string, ts store.TLSSession)
	RemoveTLSSession(key string)
}

// SessionCache adapts a share's TLS session store to crypto/tls's
// ClientSessionCache, so a handshake performed by one attached handle can be
// resumed by any other. Tickets are stored fully serialized; a blob that no
// longer parses is treated as a miss.
type SessionCache struct {
	shared TLSSessionSharer
	proto  string
}

// NewSessionCache builds a session cache for one protocol label (for
// example "h1" or "h2"); the label keeps tickets from different ALPN stacks
// apart in the shared store.
func NewSessionCache(shared TLSSessionSharer, proto string) *SessionCache {
	return &SessionCache{shared: shared, proto: proto}
}

var _ tls.ClientSessionCache = (*SessionCache)(nil)

// Get deserializes the shared ticket for sessionKey, if any.
func (c *SessionCache) Get(sessionKey string) (*tls.ClientSessionState, bool) {
	e, ok := c.shared.GetTLSSession(c.key(sessionKey))
	if !ok || len(e.State) == 0 {
		return nil, false
	}
	state, err := tls.ParseSessionState(e.State)
	if err != nil {
		return nil, false
	}
	cs, err := tls.NewResumptionState(e.Ticket, state)
	if err != nil {
		return nil, false
	}
	return cs, true
}

// Put serializes cs into the shared store, overwriting any previous ticket
// for the key. A nil cs removes the stored ticket, per the
// ClientSessionCache contract.
func (c *SessionCache) Put(sessionKey string, cs *tls.ClientSessionState) {
	if cs == nil {
		c.shared.RemoveTLSSession(c.key(sessionKey))
		return
	}
	ticket, state, err := cs.ResumptionState()
	if err != nil || state == nil {
		return
	}
	blob, err := state.Bytes()
	if err != nil {
		return
	}
	c.shared.PutTLSSession(c.key(sessionKey), store.TLSSession{Ticket: ticket, State: blob})
}

func (c *SessionCache) key(sessionKey string) string {
	return c.proto + ":" + sessionKey
}
