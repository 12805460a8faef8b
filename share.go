package httpshare

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mikrodotnet/httpshare/store"
)

// Share coordinates the caches a group of transfer handles has opted into
// sharing. All state lives behind one lock; store access is pure in-memory
// map work, so the lock is never held across I/O.
//
// Lifecycle: a Share is created empty, configured with SetOption while no
// handle is attached, attached to any number of handles, and destroyed once
// every handle has detached again.
type Share struct {
	mu sync.Mutex

	enabled [numStoreKinds]bool

	// Store instances survive disabling their kind, so a later re-enable
	// restores the previously cached entries. Only Destroy discards them.
	cookies  *store.CookieStore
	dns      *store.DNSStore
	sessions *store.TLSSessionStore
	conns    *store.ConnPool

	handles   map[string]Handle
	destroyed bool

	logger         *slog.Logger
	dnsTTL         time.Duration
	maxIdlePerDest int
}

// New returns a Share with no stores enabled and no handles attached.
func New(opts ...ShareOption) *Share {
	cfg := defaultShareConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	s := &Share{
		handles:        make(map[string]Handle),
		logger:         cfg.Logger,
		dnsTTL:         cfg.DNSTTL,
		maxIdlePerDest: cfg.MaxIdlePerDest,
	}
	shareCreated()
	return s
}

// SetOption enables or disables sharing for one store kind. The layout of a
// Share is fixed while handles are attached: SetOption then fails with
// KindInUse and changes nothing. Disabling a kind preserves its cached
// entries; re-enabling restores them.
func (s *Share) SetOption(kind StoreKind, enable bool) error {
	if !kind.valid() {
		return newError(KindBadOption, "setopt", "unknown store kind %d", int(kind))
	}
	if !builtinKind(kind) {
		return newError(KindNotBuiltIn, "setopt", "store kind %s not built in", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return newError(KindInvalid, "setopt", "share already destroyed")
	}
	if len(s.handles) > 0 {
		return newError(KindInUse, "setopt", "%d handle(s) attached", len(s.handles))
	}
	if enable {
		s.ensureStoreLocked(kind)
	}
	s.enabled[kind] = enable
	s.logger.Debug("share option changed", "kind", kind.String(), "enabled", enable)
	return nil
}

// Enabled reports whether sharing is currently on for kind.
func (s *Share) Enabled(kind StoreKind) bool {
	if !kind.valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.destroyed && s.enabled[kind]
}

// EnabledKinds returns the kinds currently shared, in declaration order.
func (s *Share) EnabledKinds() []StoreKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoreKind
	for _, k := range StoreKinds() {
		if s.enabled[k] {
			out = append(out, k)
		}
	}
	return out
}

// Attach links a handle to the share. It fails with KindInvalidHandle when
// the handle is already attached to a different share and with KindInvalid
// on a destroyed share. Attaching a handle to the share it is already
// attached to is a no-op.
func (s *Share) Attach(h Handle) error {
	b := h.binding()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.share == s {
		return nil
	}
	if b.share != nil {
		return newError(KindInvalidHandle, "attach", "handle %s already attached to another share", h.ID())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return newError(KindInvalid, "attach", "share already destroyed")
	}
	s.handles[h.ID()] = h
	b.share = s
	s.logger.Debug("handle attached", "handle", h.ID(), "attached", len(s.handles))
	return nil
}

// Detach unlinks a handle from the share. Detaching a handle that is not
// attached to this share is a no-op, so defensive cleanup paths can call it
// unconditionally.
func (s *Share) Detach(h Handle) error {
	b := h.binding()
	b.mu.Lock()
	defer b.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return newError(KindInvalid, "detach", "share already destroyed")
	}
	if b.share != s {
		return nil
	}
	delete(s.handles, h.ID())
	b.share = nil
	s.logger.Debug("handle detached", "handle", h.ID(), "attached", len(s.handles))
	return nil
}

// Attached returns the number of handles currently attached.
func (s *Share) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Destroy releases all store data and invalidates the share. It fails with
// KindInUse while handles remain attached; detach them first and retry.
// Every operation on a destroyed share fails with KindInvalid.
func (s *Share) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return newError(KindInvalid, "destroy", "share already destroyed")
	}
	if len(s.handles) > 0 {
		return newError(KindInUse, "destroy", "%d handle(s) still attached", len(s.handles))
	}
	if s.conns != nil {
		s.conns.Clear()
	}
	s.cookies = nil
	s.dns = nil
	s.sessions = nil
	s.conns = nil
	s.destroyed = true
	shareDestroyed()
	s.logger.Debug("share destroyed")
	return nil
}

// ensureStoreLocked lazily creates the store instance for kind.
func (s *Share) ensureStoreLocked(kind StoreKind) {
	switch kind {
	case ShareCookies:
		if s.cookies == nil {
			s.cookies = store.NewCookieStore()
		}
	case ShareDNS:
		if s.dns == nil {
			s.dns = store.NewDNSStore(s.dnsTTL)
		}
	case ShareTLSSessions:
		if s.sessions == nil {
			s.sessions = store.NewTLSSessionStore()
		}
	case ShareConnections:
		if s.conns == nil {
			s.conns = store.NewConnPool(s.maxIdlePerDest)
		}
	}
}

// usableLocked reports whether reads and writes for kind should proceed.
// Store probes on a disabled kind (or a destroyed share) are silent no-ops
// so handles can consult the share unconditionally.
func (s *Share) usableLocked(kind StoreKind) bool {
	return !s.destroyed && s.enabled[kind]
}

// --- Cookie store access -------------------------------------------------

// SetCookie stores a cookie record. No-op while cookie sharing is disabled.
func (s *Share) SetCookie(c store.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareCookies) {
		return
	}
	s.cookies.Put(c)
}

// GetCookie returns the record stored under (domain, path, name).
// Always a miss while cookie sharing is disabled.
func (s *Share) GetCookie(domain, path, name string) (store.Cookie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareCookies) {
		return store.Cookie{}, false
	}
	return s.cookies.Get(store.CookieKey{Domain: store.CanonicalDomain(domain), Path: path, Name: name})
}

// RemoveCookie deletes the record stored under (domain, path, name).
func (s *Share) RemoveCookie(domain, path, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareCookies) {
		return
	}
	s.cookies.Remove(store.CookieKey{Domain: store.CanonicalDomain(domain), Path: path, Name: name})
}

// CookiesFor returns the cookies to send for a request to host/path.
func (s *Share) CookiesFor(host, path string, secure bool) []store.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareCookies) {
		return nil
	}
	return s.cookies.Match(host, path, secure, time.Now())
}

// AllCookies returns a snapshot of every stored cookie.
func (s *Share) AllCookies() []store.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareCookies) {
		return nil
	}
	return s.cookies.All()
}

// ImportCookies bulk-loads Netscape-format records from r. Parse failures
// are reported with KindBadOption and nothing is stored; with cookie sharing
// disabled, well-formed input parses but stores nothing.
func (s *Share) ImportCookies(r io.Reader) error {
	cookies, err := store.ReadNetscape(r)
	if err != nil {
		return &ShareError{Kind: KindBadOption, Op: "import-cookies", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareCookies) {
		return nil
	}
	for _, c := range cookies {
		s.cookies.Put(c)
	}
	return nil
}

// ExportCookies writes every stored cookie to w in Netscape format.
func (s *Share) ExportCookies(w io.Writer) error {
	return store.WriteNetscape(w, s.AllCookies())
}

// --- DNS store access ----------------------------------------------------

// LookupDNS returns the cached resolution for host. Expired entries and
// disabled sharing both report a miss.
func (s *Share) LookupDNS(host string) (store.DNSEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareDNS) {
		return store.DNSEntry{}, false
	}
	return s.dns.Get(host, time.Now())
}

// StoreDNS caches a resolution result for host. No-op while DNS sharing is
// disabled.
func (s *Share) StoreDNS(host string, e store.DNSEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareDNS) {
		return
	}
	s.dns.Put(host, e)
}

// RemoveDNS drops the cached resolution for host.
func (s *Share) RemoveDNS(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareDNS) {
		return
	}
	s.dns.Remove(host)
}

// DNSEntries returns a snapshot of the non-expired cached resolutions.
func (s *Share) DNSEntries() map[string]store.DNSEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareDNS) {
		return nil
	}
	return s.dns.All(time.Now())
}

// --- TLS session store access ---------------------------------------------

// GetTLSSession returns the ticket stored for an origin key.
func (s *Share) GetTLSSession(key string) (store.TLSSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareTLSSessions) {
		return store.TLSSession{}, false
	}
	return s.sessions.Get(key)
}

// PutTLSSession stores a ticket for an origin key, replacing any previous
// one. No-op while TLS session sharing is disabled.
func (s *Share) PutTLSSession(key string, ts store.TLSSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareTLSSessions) {
		return
	}
	s.sessions.Put(key, ts)
}

// RemoveTLSSession drops the ticket stored for an origin key.
func (s *Share) RemoveTLSSession(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareTLSSessions) {
		return
	}
	s.sessions.Remove(key)
}

// TLSSessions returns a snapshot of every stored ticket.
func (s *Share) TLSSessions() map[string]store.TLSSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareTLSSessions) {
		return nil
	}
	return s.sessions.All()
}

// --- Connection pool access -----------------------------------------------

// CheckoutConn removes and returns an idle connection for a destination.
func (s *Share) CheckoutConn(key store.DestKey) (*store.IdleConn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareConnections) {
		return nil, false
	}
	return s.conns.Get(key)
}

// ReleaseConn parks a connection for later reuse. No-op while connection
// sharing is disabled; callers that still own the connection in that case
// should close it themselves.
func (s *Share) ReleaseConn(key store.DestKey, ic *store.IdleConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareConnections) {
		return false
	}
	s.conns.Put(key, ic)
	return true
}

// IdleConns returns the number of connections parked for a destination.
func (s *Share) IdleConns(key store.DestKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(ShareConnections) {
		return 0
	}
	return s.conns.Idle(key)
}
