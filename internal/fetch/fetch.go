// Package fetch downloads remote archives and unpacks them into the
// cache, normalizing the extracted directory name so that re-fetching
// replaces rather than duplicates a cache entry.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// maxRedirectHops caps redirect following. Archive hosts redirect once
// or twice to a CDN; anything deeper is a misbehaving server.
const maxRedirectHops = 10

// Client downloads archive files over HTTP.
type Client struct {
	httpClient *http.Client
	proxy      string
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Client) {
		f.httpClient = c
	}
}

// WithProxy routes downloads through an HTTPS proxy URL.
func WithProxy(proxyURL string) Option {
	return func(f *Client) {
		f.proxy = proxyURL
	}
}

// WithTimeout bounds each download request.
func WithTimeout(d time.Duration) Option {
	return func(f *Client) {
		f.timeout = d
	}
}

// New creates a Client. Redirects are followed manually so the hop
// count can be bounded.
func New(opts ...Option) (*Client, error) {
	f := &Client{}
	for _, opt := range opts {
		opt(f)
	}

	if f.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if f.proxy != "" {
			proxyURL, err := url.Parse(f.proxy)
			if err != nil {
				return nil, fmt.Errorf("parsing proxy URL %q: %w", f.proxy, err)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		f.httpClient = &http.Client{
			Transport: transport,
			Timeout:   f.timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return f, nil
}

// Download performs an HTTP GET and streams the response body to
// destPath. Redirects are followed up to maxRedirectHops; any non-2xx,
// non-redirect status fails with the status embedded in the error.
func (f *Client) Download(ctx context.Context, rawURL, destPath string) error {
	return f.download(ctx, rawURL, destPath, 0)
}

func (f *Client) download(ctx context.Context, rawURL, destPath string, hop int) error {
	if hop > maxRedirectHops {
		return fmt.Errorf("too many redirects (%d) fetching %s", hop, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", "stencil-fetch")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return writeBody(resp.Body, destPath)

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if location == "" {
			return fmt.Errorf("redirect from %s without Location header", rawURL)
		}
		next, err := req.URL.Parse(location)
		if err != nil {
			return fmt.Errorf("resolving redirect %q: %w", location, err)
		}
		return f.download(ctx, next.String(), destPath, hop+1)

	default:
		return fmt.Errorf("download %s returned status %d %s", rawURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
}

// writeBody streams body to a freshly created file at destPath.
func writeBody(body io.Reader, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	return nil
}
