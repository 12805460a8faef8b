package httpshare

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mikrodotnet/httpshare/store"
	"github.com/mikrodotnet/httpshare/transport"
)

// Client is a transfer handle: it performs HTTP transfers and, while
// attached to a Share, routes the sharing hooks of a transfer through the
// share's enabled stores -- cookies before and after each request, DNS
// before connecting, TLS session tickets around each handshake, and idle
// connections before dialing and after completion.
//
// A Client not attached to any Share behaves like a plain HTTP client with
// private state.
type Client struct {
	Binding

	id      string
	logger  *slog.Logger
	timeout time.Duration

	hc *http.Client
	tr *http.Transport
}

// ClientConfig holds construction parameters for a Client.
type ClientConfig struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// ClientOption configures a Client at construction time.
type ClientOption func(*ClientConfig)

// WithClientTimeout sets the per-transfer timeout.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithClientLogger sets the logger for transfer-level events.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *ClientConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewClient returns a detached transfer handle with a private transport.
func NewClient(opts ...ClientOption) *Client {
	cfg := &ClientConfig{
		Logger:  slog.Default(),
		Timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		id:      uuid.NewString(),
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
	}
	c.tr = c.baseTransport()
	c.hc = &http.Client{Transport: c.tr, Timeout: cfg.Timeout}
	return c
}

// ID returns the handle's opaque identifier.
func (c *Client) ID() string { return c.id }

func (c *Client) baseTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		// Bodies are decoded explicitly so shared connections carry the
		// encodings the handle actually advertises.
		DisableCompression: true,
		TLSClientConfig: &tls.Config{
			KeyLogWriter: transport.KeyLogWriter(),
		},
	}
}

// UseShare attaches the client to sh and rewires its transport through the
// share's stores. Store kinds left disabled on sh simply miss on every
// probe, so the client falls back to private behavior for those concerns.
func (c *Client) UseShare(sh *Share) error {
	if err := sh.Attach(c); err != nil {
		return err
	}

	tr := c.baseTransport()
	resolver := transport.NewResolver(sh)
	var pool transport.ConnPooler
	if sh.Enabled(ShareConnections) {
		pool = sh
		// A negative bound turns off the transport's private idle pool
		// without advertising Connection: close, so a completed transfer
		// releases its still-open keep-alive connection, and the dialer
		// wrapper parks it in the shared pool for the next checkout.
		tr.MaxIdleConnsPerHost = -1
	}
	tr.DialContext = transport.NewDialer(resolver, pool).DialContext
	tr.TLSClientConfig.ClientSessionCache = transport.NewSessionCache(sh, "h1")

	old := c.tr
	c.tr = tr
	c.hc = &http.Client{
		Transport: tr,
		Timeout:   c.timeout,
		Jar:       &shareJar{share: sh},
	}
	old.CloseIdleConnections()

	c.logger.Debug("client attached to share", "handle", c.id, "kinds", fmt.Sprint(sh.EnabledKinds()))
	return nil
}

// DetachShare detaches the client from its share, if any, and restores a
// private transport.
func (c *Client) DetachShare() error {
	sh := c.Share()
	if sh == nil {
		return nil
	}
	if err := sh.Detach(c); err != nil {
		return err
	}
	old := c.tr
	c.tr = c.baseTransport()
	c.hc = &http.Client{Transport: c.tr, Timeout: c.timeout}
	old.CloseIdleConnections()
	return nil
}

// Close detaches the client and releases its private idle connections.
func (c *Client) Close() error {
	err := c.DetachShare()
	c.tr.CloseIdleConnections()
	return err
}

// Do executes one transfer, decoding the response body according to its
// Content-Encoding. The caller owns and must close the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", transport.AcceptEncoding)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}

	encoding := resp.Header.Get("Content-Encoding")
	decoded, err := transport.NewBodyReader(encoding, resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if encoding != "" {
		resp.Header.Del("Content-Encoding")
		resp.ContentLength = -1
	}
	resp.Body = &transferBody{decoded: decoded, raw: resp.Body}
	return resp, nil
}

// Get performs a GET transfer.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// transferBody closes both the decoder and the underlying network body.
type transferBody struct {
	decoded io.ReadCloser
	raw     io.ReadCloser
}

func (b *transferBody) Read(p []byte) (int, error) {
	return b.decoded.Read(p)
}

func (b *transferBody) Close() error {
	err := b.decoded.Close()
	if rawErr := b.raw.Close(); err == nil {
		err = rawErr
	}
	return err
}

// shareJar adapts a Share's cookie store to http.CookieJar. All reads and
// writes go through the share, so every attached handle observes the same
// jar; with cookie sharing disabled both directions are no-ops.
type shareJar struct {
	share *Share
}

var _ http.CookieJar = (*shareJar)(nil)

func (j *shareJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()
	for _, hc := range cookies {
		c := store.Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Path:     hc.Path,
			Secure:   hc.Secure,
			HttpOnly: hc.HttpOnly,
			Expires:  hc.Expires,
		}
		if hc.Domain != "" {
			c.Domain = hc.Domain
			c.IncludeSubdomains = true
		} else {
			c.Domain = u.Hostname()
		}
		if c.Path == "" {
			c.Path = "/"
		}
		if hc.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			j.share.RemoveCookie(c.Domain, c.Path, c.Name)
			continue
		}
		if hc.MaxAge > 0 {
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		}
		j.share.SetCookie(c)
	}
}

func (j *shareJar) Cookies(u *url.URL) []*http.Cookie {
	matched := j.share.CookiesFor(u.Hostname(), u.Path, u.Scheme == "https")
	out := make([]*http.Cookie, 0, len(matched))
	for _, c := range matched {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}
