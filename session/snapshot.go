package session

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/mikrodotnet/httpshare"
	"github.com/mikrodotnet/httpshare/store"
)

// Capture snapshots the enabled shareable stores of sh. Disabled stores
// contribute nothing, mirroring the share's own access rules.
func Capture(sh *httpshare.Share) *State {
	now := time.Now()
	st := &State{
		Version:   StateVersion,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, c := range sh.AllCookies() {
		cs := CookieState{
			Domain:            c.Domain,
			IncludeSubdomains: c.IncludeSubdomains,
			Path:              c.Path,
			Name:              c.Name,
			Value:             c.Value,
			Secure:            c.Secure,
			HttpOnly:          c.HttpOnly,
		}
		if !c.Expires.IsZero() {
			expires := c.Expires
			cs.Expires = &expires
		}
		st.Cookies = append(st.Cookies, cs)
	}

	if entries := sh.DNSEntries(); len(entries) > 0 {
		st.DNS = make(map[string]DNSState, len(entries))
		for host, e := range entries {
			ds := DNSState{Created: e.Created}
			for _, a := range e.Addrs {
				ds.Addrs = append(ds.Addrs, a.String())
			}
			st.DNS[host] = ds
		}
	}

	if sessions := sh.TLSSessions(); len(sessions) > 0 {
		st.TLSSessions = make(map[string]TLSSessionState, len(sessions))
		for key, ts := range sessions {
			st.TLSSessions[key] = TLSSessionState{
				Ticket:  ts.Ticket,
				State:   ts.State,
				Created: ts.Created,
			}
		}
	}

	return st
}

// Restore writes st's records back into sh. Records for disabled store
// kinds are silently skipped, per the share's put contract. Malformed
// addresses in DNS records are reported; everything restored before the
// failure stays restored.
func Restore(sh *httpshare.Share, st *State) error {
	if st.Version != StateVersion {
		return fmt.Errorf("snapshot version %d not supported (want %d)", st.Version, StateVersion)
	}

	for _, cs := range st.Cookies {
		c := store.Cookie{
			Domain:            cs.Domain,
			IncludeSubdomains: cs.IncludeSubdomains,
			Path:              cs.Path,
			Name:              cs.Name,
			Value:             cs.Value,
			Secure:            cs.Secure,
			HttpOnly:          cs.HttpOnly,
		}
		if cs.Expires != nil {
			c.Expires = *cs.Expires
		}
		sh.SetCookie(c)
	}

	for host, ds := range st.DNS {
		e := store.DNSEntry{Created: ds.Created}
		for _, s := range ds.Addrs {
			a, err := netip.ParseAddr(s)
			if err != nil {
				return fmt.Errorf("snapshot dns entry %s: %w", host, err)
			}
			e.Addrs = append(e.Addrs, a)
		}
		sh.StoreDNS(host, e)
	}

	for key, ts := range st.TLSSessions {
		sh.PutTLSSession(key, store.TLSSession{
			Ticket:  ts.Ticket,
			State:   ts.State,
			Created: ts.Created,
		})
	}

	return nil
}

// Save captures sh and persists the encoded snapshot under key.
func Save(ctx context.Context, snapshots SnapshotStore, key string, sh *httpshare.Share) error {
	var buf bytes.Buffer
	if err := Capture(sh).Encode(&buf); err != nil {
		return err
	}
	return snapshots.Set(ctx, key, buf.Bytes())
}

// Load reads the snapshot stored under key and restores it into sh. It
// reports false with a nil error when no snapshot exists.
func Load(ctx context.Context, snapshots SnapshotStore, key string, sh *httpshare.Share) (bool, error) {
	data, ok, err := snapshots.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	st, err := DecodeState(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	if err := Restore(sh, st); err != nil {
		return false, err
	}
	return true, nil
}
