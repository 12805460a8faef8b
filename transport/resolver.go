// Package transport provides the pieces a transfer handle wires between its
// HTTP stack and a shared-state container: a caching DNS resolver, a dialer
// with idle-connection reuse, a TLS client session cache and response body
// decoding.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/mikrodotnet/httpshare/store"
)

// DNSCache is the slice of a share the resolver consults before and after a
// lookup. A disabled store reports every probe as a miss, so the resolver
// can use it unconditionally.
type DNSCache interface {
	LookupDNS(host string) (store.DNSEntry, bool)
	StoreDNS(host string, entry store.DNSEntry)
}

// Resolver resolves hostnames, consulting a shared DNS cache first and
// writing fresh results back after a real lookup.
type Resolver struct {
	cache   DNSCache // may be nil
	client  *dns.Client
	servers []string // "host:port"
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithServers overrides the nameservers read from /etc/resolv.conf.
func WithServers(servers ...string) ResolverOption {
	return func(r *Resolver) {
		r.servers = servers
	}
}

// NewResolver builds a resolver backed by cache. Nameservers come from
// /etc/resolv.conf, falling back to well-known public resolvers when the
// file is unreadable.
func NewResolver(cache DNSCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:  cache,
		client: &dns.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	if len(r.servers) == 0 {
		r.servers = systemServers()
	}
	return r
}

func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return servers
}

// LookupAddrs resolves host to one or more addresses. Literal IP addresses
// short-circuit without touching the cache or the network.
func (r *Resolver) LookupAddrs(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}

	if r.cache != nil {
		if e, ok := r.cache.LookupDNS(host); ok && len(e.Addrs) > 0 {
			return e.Addrs, nil
		}
	}

	addrs, err := r.resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.StoreDNS(host, store.DNSEntry{Addrs: addrs})
	}
	return addrs, nil
}

// resolve queries A then AAAA records against the configured servers.
func (r *Resolver) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	var addrs []netip.Addr
	var lastErr error

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(host), qtype)
		m.RecursionDesired = true

		for _, server := range r.servers {
			in, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = err
				continue
			}
			for _, rr := range in.Answer {
				switch rec := rr.(type) {
				case *dns.A:
					if a, ok := netip.AddrFromSlice(rec.A); ok {
						addrs = append(addrs, a.Unmap())
					}
				case *dns.AAAA:
					if a, ok := netip.AddrFromSlice(rec.AAAA); ok {
						addrs = append(addrs, a)
					}
				}
			}
			break // answered (possibly empty); don't retry other servers
		}
	}

	if len(addrs) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("resolve %s: %w", host, lastErr)
		}
		return nil, fmt.Errorf("resolve %s: no addresses", host)
	}
	return addrs, nil
}
