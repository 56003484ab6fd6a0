package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/maxvaer/reconx/internal/config"
	"github.com/maxvaer/reconx/pkg/version"
)

const (
	// DefaultBodyLimit caps how much of a response body is kept.
	DefaultBodyLimit = 1 << 20
	maxRedirects     = 10
)

// Fetcher performs one bounded network request and never returns an error:
// every failure is folded into the Outcome.
type Fetcher interface {
	Fetch(ctx context.Context, unit ProbeUnit, timeout time.Duration) Outcome
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, unit ProbeUnit, timeout time.Duration) Outcome

func (f FetcherFunc) Fetch(ctx context.Context, unit ProbeUnit, timeout time.Duration) Outcome {
	return f(ctx, unit, timeout)
}

// Requester wraps an HTTP client for probing.
type Requester struct {
	client    *http.Client
	headers   map[string]string
	userAgent string
	bodyLimit int64
}

// NewRequester creates a Requester from the provided options.
func NewRequester(opts *config.Options) (*Requester, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		TLSHandshakeTimeout: opts.Timeout,
		MaxIdleConnsPerHost: opts.Concurrency,
		MaxIdleConns:        opts.Concurrency * 2,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = "reconx/" + version.Version
	}

	return &Requester{
		client:    client,
		headers:   opts.Headers,
		userAgent: ua,
		bodyLimit: DefaultBodyLimit,
	}, nil
}

// WithBodyLimit returns a copy of the requester that keeps at most n body
// bytes. The underlying client is shared.
func (r *Requester) WithBodyLimit(n int64) *Requester {
	cp := *r
	cp.bodyLimit = n
	return &cp
}

// Fetch sends a GET for the unit and returns its outcome. The timeout bounds
// the whole exchange including the body read.
func (r *Requester) Fetch(ctx context.Context, unit ProbeUnit, timeout time.Duration) Outcome {
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, unit.URL, nil)
	if err != nil {
		return NewFailureOutcome(unit, ErrorOther, err, time.Since(start))
	}
	req.Header.Set("User-Agent", r.userAgent)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return NewFailureOutcome(unit, classifyError(err), err, time.Since(start))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.bodyLimit+1))
	if err != nil {
		return NewFailureOutcome(unit, classifyError(err), fmt.Errorf("reading response body: %w", err), time.Since(start))
	}
	truncated := int64(len(body)) > r.bodyLimit
	if truncated {
		body = body[:r.bodyLimit]
	}

	length := int64(len(body))
	if truncated && resp.ContentLength > length {
		length = resp.ContentLength
	}

	payload := &Payload{
		FinalURL:      resp.Request.URL.String(),
		Header:        resp.Header,
		Body:          body,
		ContentLength: length,
		Truncated:     truncated,
		Redirects:     redirectHistory(resp),
		Reason:        http.StatusText(resp.StatusCode),
	}
	return NewResponseOutcome(unit, resp.StatusCode, time.Since(start), payload)
}

// redirectHistory walks the chain of responses that led to resp and returns
// their status codes, oldest first.
func redirectHistory(resp *http.Response) []int {
	var codes []int
	for req := resp.Request; req != nil && req.Response != nil; req = req.Response.Request {
		codes = append(codes, req.Response.StatusCode)
	}
	slices.Reverse(codes)
	return codes
}
