package assets

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxBytes caps any single fetched or imported asset.
const DefaultMaxBytes = 10 << 20

// HostCheck vets a host name before it is dialed.
type HostCheck func(host string) error

// Fetcher downloads remote images over HTTP(S) with size and host limits.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	checkHost HostCheck
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxBytes limits the response body size.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithHostCheck replaces CheckBlockedHost.
func WithHostCheck(fn HostCheck) FetcherOption {
	return func(f *Fetcher) { f.checkHost = fn }
}

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// NewFetcher returns a Fetcher that refuses internal hosts; see
// CheckBlockedHost.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		maxBytes:  DefaultMaxBytes,
		checkHost: CheckBlockedHost,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("too many redirects (max 5)")
		}
		return f.check(req.URL.Hostname())
	}
	return f
}

func (f *Fetcher) check(host string) error {
	if f.checkHost == nil {
		return nil
	}
	return f.checkHost(host)
}

// Fetch downloads rawURL and returns the body and the extension implied by
// the response Content-Type ("" when unknown).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("%w: %s (only http/https)", ErrUnsupportedScheme, parsed.Scheme)
	}
	if err := f.check(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, ExtForMIME(resp.Header.Get("Content-Type")), nil
}

// CheckBlockedHost rejects hosts that resolve to loopback, private,
// link-local or unspecified addresses, and the cloud metadata endpoint.
// Every resolved address must pass.
func CheckBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ips = resolved
	}
	for _, ip := range ips {
		if reason := blockedReason(ip); reason != "" {
			return fmt.Errorf("%w: %s address %s (%s)", ErrBlockedHost, reason, ip, host)
		}
	}
	return nil
}

func blockedReason(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "loopback"
	case ip.IsUnspecified():
		return "unspecified"
	// AWS/GCP/Azure metadata endpoint sits in 169.254.0.0/16.
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return "link-local"
	case ip.IsPrivate():
		return "private"
	}
	return ""
}
