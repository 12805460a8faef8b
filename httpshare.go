// Package httpshare implements the shared-state subsystem of an HTTP transfer
// stack: cookie jars, DNS lookup results, TLS session tickets and idle
// connections that independent transfer handles opt into sharing while still
// performing their transfers concurrently.
//
// A Share owns one in-memory store per enabled StoreKind and serializes every
// read and write to those stores behind a single lock. No I/O ever happens
// while the lock is held, so one handle's slow network phase never stalls
// another handle's cache access.
//
// Typical use:
//
//	share := httpshare.New()
//	share.SetOption(httpshare.ShareCookies, true)
//	share.SetOption(httpshare.ShareTLSSessions, true)
//
//	a := httpshare.NewClient()
//	b := httpshare.NewClient()
//	a.UseShare(share)
//	b.UseShare(share)
//	// transfers on a and b now exchange cookies and resume each
//	// other's TLS sessions
//
// Store layout is fixed once any handle is attached: SetOption fails with
// KindInUse until every handle detaches again. Destroying a Share with
// handles still attached is likewise rejected rather than made silently
// unsafe.
package httpshare

import "sync"

var global struct {
	mu          sync.Mutex
	initialized bool
	builtin     [numStoreKinds]bool
	liveShares  int
}

// InitOption configures process-wide engine defaults.
type InitOption func(*initConfig)

type initConfig struct {
	builtin [numStoreKinds]bool
}

// WithoutStoreKind marks a store kind as not built in. SetOption on that kind
// fails with KindNotBuiltIn for every Share created afterwards. It models
// transfer engine builds compiled without a sharing feature.
func WithoutStoreKind(kind StoreKind) InitOption {
	return func(c *initConfig) {
		if kind.valid() {
			c.builtin[kind] = false
		}
	}
}

// Initialize performs process-wide setup, independent of any individual
// Share. It must run before shares are created for its options to take
// effect; shares created without it see all store kinds as built in.
// A second Initialize without an intervening Cleanup fails with KindInUse.
func Initialize(opts ...InitOption) error {
	cfg := initConfig{}
	for k := range cfg.builtin {
		cfg.builtin[k] = true
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if global.initialized {
		return newError(KindInUse, "initialize", "already initialized")
	}
	global.initialized = true
	global.builtin = cfg.builtin
	return nil
}

// Cleanup undoes Initialize. It fails with KindInUse while any Share is
// still live; destroy all shares first.
func Cleanup() error {
	global.mu.Lock()
	defer global.mu.Unlock()
	if !global.initialized {
		return newError(KindInvalid, "cleanup", "not initialized")
	}
	if global.liveShares > 0 {
		return newError(KindInUse, "cleanup", "%d share(s) still live", global.liveShares)
	}
	global.initialized = false
	return nil
}

// builtinKind reports whether the running engine supports the kind.
func builtinKind(kind StoreKind) bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	if !global.initialized {
		return true
	}
	return global.builtin[kind]
}

func shareCreated() {
	global.mu.Lock()
	global.liveShares++
	global.mu.Unlock()
}

func shareDestroyed() {
	global.mu.Lock()
	global.liveShares--
	global.mu.Unlock()
}
