// Package httpclient calls the orchestrator's job retry endpoint.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/jobsweep/errors"
)

// PreviewLimit caps how much of a response body is kept for logging
const PreviewLimit = 200

// Options customizes a RetryClient
type Options struct {
	Timeout        time.Duration // Default: 30s
	MaxRedirects   int           // Default: 10
	AllowedSchemes []string      // Default: ["http", "https"]
	BlockPrivateIP bool          // Refuse loopback/private targets, including after DNS resolution
	Transport      http.RoundTripper
}

// RetryClient issues GET {base}/jobs/{id}/retry requests
type RetryClient struct {
	client         *http.Client
	baseURL        string
	allowedSchemes []string
	blockPrivateIP bool
	maxRedirects   int
}

// RetryResponse is what the endpoint answered
type RetryResponse struct {
	URL        string
	StatusCode int
	Status     string
	Preview    string // first PreviewLimit bytes of the body
}

// New creates a client for the retry endpoint rooted at baseURL
func New(baseURL string, opts Options) (*RetryClient, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 10
	}
	if opts.AllowedSchemes == nil {
		opts.AllowedSchemes = []string{"http", "https"}
	}

	c := &RetryClient{
		client:         &http.Client{Timeout: opts.Timeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		allowedSchemes: opts.AllowedSchemes,
		blockPrivateIP: opts.BlockPrivateIP,
		maxRedirects:   opts.MaxRedirects,
	}

	if _, err := c.ValidateURL(c.baseURL); err != nil {
		return nil, errors.Wrap(err, "invalid retry base URL")
	}

	// Redirects are followed (a 3xx is not a failure), but each hop is re-validated
	c.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	switch {
	case opts.Transport != nil:
		c.client.Transport = opts.Transport
	case c.blockPrivateIP:
		c.client.Transport = guardedTransport()
	}

	return c, nil
}

// guardedTransport resolves the target itself and refuses private addresses,
// which also covers DNS names that point at internal hosts.
func guardedTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}

			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}
			for _, ip := range ips {
				if isPrivateIP(ip) {
					return nil, errors.Newf("private IP address blocked: %s", ip)
				}
			}
			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// RetryURL returns the retry endpoint for a job
func (c *RetryClient) RetryURL(jobID uuid.UUID) string {
	return c.baseURL + "/jobs/" + jobID.String() + "/retry"
}

// Retry asks the orchestrator to re-dispatch a job. A status below 400 is
// success; any transport error or status >= 400 is returned as an
// errors.ErrRemoteCall. The response is returned whenever one was received.
func (c *RetryClient) Retry(ctx context.Context, jobID uuid.UUID) (RetryResponse, error) {
	target := c.RetryURL(jobID)
	out := RetryResponse{URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return out, errors.WrapRemoteCall(err, "failed to build retry request")
	}
	if err := c.validateURL(req.URL); err != nil {
		return out, errors.WrapRemoteCall(err, "request blocked")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return out, errors.WrapRemoteCall(err, "retry request failed")
	}
	defer resp.Body.Close()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, PreviewLimit))
	// Drain a bounded remainder so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	out.StatusCode = resp.StatusCode
	out.Status = resp.Status
	out.Preview = string(preview)

	if resp.StatusCode >= http.StatusBadRequest {
		return out, errors.NewRemoteCallError("retry endpoint returned %s", resp.Status)
	}
	return out, nil
}

// ValidateURL validates a URL string before creating a request
func (c *RetryClient) ValidateURL(urlStr string) (*url.URL, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.validateURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *RetryClient) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range c.allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}

	if u.User != nil {
		return errors.New("URL must not carry credentials")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}

	if c.blockPrivateIP {
		if isLocalhost(hostname) {
			return errors.New("localhost access blocked")
		}
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return errors.Newf("private IP address blocked: %s", hostname)
		}
	}
	return nil
}

// isPrivateIP checks if an IP is in private/special use ranges
func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() ||
		ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// isLocalhost checks for localhost variants
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
