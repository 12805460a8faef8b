package httpshare

// StoreKind identifies one of the independently toggleable shared caches.
type StoreKind int

const (
	// ShareCookies shares the cookie jar across attached handles.
	ShareCookies StoreKind = iota
	// ShareDNS shares resolved hostname lookups.
	ShareDNS
	// ShareTLSSessions shares TLS session tickets so handles can resume
	// each other's handshakes.
	ShareTLSSessions
	// ShareConnections shares the idle connection pool.
	ShareConnections

	numStoreKinds // sentinel, keep last
)

// String returns the human-readable name of the store kind.
func (k StoreKind) String() string {
	switch k {
	case ShareCookies:
		return "cookies"
	case ShareDNS:
		return "dns"
	case ShareTLSSessions:
		return "tls-sessions"
	case ShareConnections:
		return "connections"
	default:
		return "unknown"
	}
}

func (k StoreKind) valid() bool {
	return k >= 0 && k < numStoreKinds
}

// StoreKinds returns all store kinds in declaration order.
func StoreKinds() []StoreKind {
	return []StoreKind{ShareCookies, ShareDNS, ShareTLSSessions, ShareConnections}
}
