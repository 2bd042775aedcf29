// Package fetch provides the HTTP layer used to retrieve discovery
// manifests and their detached signatures.
//
// The client performs a single GET per call: no retries, no caching.
// Non-2xx responses are not errors at this layer; the status code is
// surfaced to the caller so the pipeline can distinguish a permanently
// removed manifest from an ordinary failure.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "discod/1.0"
	// maxBodySize caps how much of a response body is read.
	// Discovery manifests are small; anything larger is suspect.
	maxBodySize = 16 << 20
)

// Result is a completed HTTP fetch: the response status and the full
// body. It is produced once per request and consumed immediately.
type Result struct {
	Status int
	Body   []byte
}

// OK reports whether the response status is in the 2xx range.
func (r *Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client performs single-shot GET requests against the discovery
// authority. It holds no mutable state and is safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	log       zerolog.Logger
}

// NewClient creates a fetch client with the given request timeout.
// A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
		log:       zerolog.Nop(),
	}
}

// SetLogger replaces the client's logger. The default discards all
// output.
func (c *Client) SetLogger(log zerolog.Logger) {
	c.log = log
}

// Fetch performs a single GET against url and returns the status code
// plus the full response body. An error is returned only for transport
// failures (request construction, connection, timeout, body read); any
// HTTP status, including 4xx and 5xx, produces a Result.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("fetch completed")

	return &Result{Status: resp.StatusCode, Body: body}, nil
}

// StatusSet is a set of HTTP status codes. It backs the configurable
// "gone" set that marks a manifest as permanently removed, kept outside
// the pipeline's state machine so the set can change without touching
// resolution logic.
type StatusSet map[int]struct{}

// NewStatusSet builds a StatusSet from the given codes.
func NewStatusSet(codes ...int) StatusSet {
	s := make(StatusSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports whether status is a member of the set.
func (s StatusSet) Contains(status int) bool {
	_, ok := s[status]
	return ok
}
