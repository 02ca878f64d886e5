// Package transport builds the HTTP clients used for upstream record-store
// calls.
//
// Hosted backends sit behind CDNs that rate limit clients by TLS fingerprint,
// and Go's default ClientHello is easy to single out. The browser transport
// dials TLS with uTLS using a Chrome ClientHello, lets ALPN pick h2 or
// http/1.1, and frames HTTP/2 with x/net/http2.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// UserAgent is sent when a request does not set its own.
const UserAgent = "storefront/1.0"

// errNoH2 is returned by the HTTP/2 dialer when ALPN settles on another
// protocol. The request has not been written when it is seen.
var errNoH2 = errors.New("server did not negotiate h2")

// NewClient returns an http.Client with the given timeout. With
// fingerprint set, HTTPS requests use the browser TLS transport; otherwise
// the standard transport is used.
func NewClient(timeout time.Duration, fingerprint bool) *http.Client {
	var base http.RoundTripper = http.DefaultTransport
	if fingerprint {
		base = NewBrowserTransport(timeout)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{next: base},
	}
}

// NewBrowserTransport returns a RoundTripper that presents Chrome's TLS
// fingerprint. Hosts that do not negotiate HTTP/2 are remembered and go
// straight to HTTP/1.1 afterwards. Plain http:// requests bypass uTLS
// entirely.
func NewBrowserTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	return &browserTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				conn, err := dialBrowserTLS(ctx, dialer, network, addr)
				if err != nil {
					return nil, err
				}
				if proto := conn.ConnectionState().NegotiatedProtocol; proto != http2.NextProtoTLS {
					conn.Close()
					return nil, fmt.Errorf("%s chose %q: %w", addr, proto, errNoH2)
				}
				return conn, nil
			},
		},
		h1: &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := dialBrowserTLS(ctx, dialer, network, addr)
				if err != nil {
					return nil, err
				}
				return conn, nil
			},
			ForceAttemptHTTP2:   false,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
		plain: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

type browserTransport struct {
	h2    http.RoundTripper
	h1    http.RoundTripper
	plain http.RoundTripper

	h1Only sync.Map // host → struct{}
}

// RoundTrip implements http.RoundTripper.
//
// Only a failed h2 negotiation falls back to HTTP/1.1. Any other HTTP/2
// error is returned as is: the request may already have reached the
// server, and replaying it could repeat a write such as order creation.
func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}
	if _, ok := t.h1Only.Load(req.URL.Host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil || !errors.Is(err, errNoH2) {
		return resp, err
	}
	t.h1Only.Store(req.URL.Host, struct{}{})

	retry := req
	if req.Body != nil && req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		retry = req.Clone(req.Context())
		retry.Body = body
	}
	return t.h1.RoundTrip(retry)
}

// dialBrowserTLS establishes a TLS connection with Chrome's fingerprint.
func dialBrowserTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	return tlsConn, nil
}

// userAgentTransport fills in a User-Agent header.
type userAgentTransport struct {
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", UserAgent)
	return t.next.RoundTrip(clone)
}
