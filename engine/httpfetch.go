package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"

	tls2 "github.com/refraction-networking/utls"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxDocumentSize caps how much of a response body is parsed.
const maxDocumentSize = 10 << 20

// documentFetcher loads raw HTML over HTTP with a Chrome TLS fingerprint
// (utls), or from disk for file:// URLs.
type documentFetcher struct {
	proxy      string
	userAgent  string
	allowFiles bool
}

// errFileURLDisabled is returned for file:// URLs unless local files are allowed.
var errFileURLDisabled = errors.New("fetch: file:// URLs are disabled")

func newDocumentFetcher(proxy, userAgent string, allowFiles bool) *documentFetcher {
	if userAgent == "" {
		userAgent = chromeUA
	}
	return &documentFetcher{proxy: proxy, userAgent: userAgent, allowFiles: allowFiles}
}

// fetch returns the document body at rawURL.
func (f *documentFetcher) fetch(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: parse url: %w", err)
	}

	switch u.Scheme {
	case "file":
		if !f.allowFiles {
			return nil, errFileURLDisabled
		}
		return readLocalDocument(u)
	case "http", "https":
	default:
		return nil, fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr)
		},
	}
	if f.proxy != "" {
		if proxyURL, perr := url.Parse(f.proxy); perr == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch: HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	return body, nil
}

func readLocalDocument(u *url.URL) ([]byte, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxDocumentSize))
}

// dialTLSChrome establishes a TLS connection using a Chrome ClientHello.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	rawConn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host}, tls2.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
