package discovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lumivpn/discovery/internal/catalog"
	"github.com/lumivpn/discovery/internal/fetch"
	"github.com/lumivpn/discovery/internal/sign"
)

// DefaultSignatureSuffix is appended to a manifest URL to locate its
// detached signature.
const DefaultSignatureSuffix = ".minisig"

// Fetcher retrieves a single URL. *fetch.Client satisfies this; tests
// substitute their own.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// ParseFunc turns a verified document into a typed catalog. It must
// not be handed unverified bytes.
type ParseFunc func(doc []byte) (catalog.Catalog, error)

// VerifyFunc checks a detached signature over a message. It must be
// pure and safe for concurrent use.
type VerifyFunc func(message []byte, signatureText string) bool

// Config holds the pipeline's collaborators and trust configuration.
type Config struct {
	// BaseURL is the manifest authority, e.g. "https://disco.example.org"
	BaseURL string
	// SignatureSuffix locates the detached signature resource
	// (default: DefaultSignatureSuffix)
	SignatureSuffix string
	// Keys are the pinned public keys; required unless Verify is set
	Keys sign.Keyring
	// GoneStatuses are the HTTP statuses treated as "manifest deleted"
	// (default: 404 and 410)
	GoneStatuses fetch.StatusSet
	// Fetcher performs the HTTP requests; required
	Fetcher Fetcher
	// Parsers overrides the default per-kind catalog parsers
	Parsers map[Kind]ParseFunc
	// Verify overrides signature verification; defaults to the pinned
	// keyring
	Verify VerifyFunc
	// Logger defaults to a no-op logger
	Logger *zerolog.Logger
}

// Pipeline resolves manifest requests into outcomes. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	baseURL         string
	signatureSuffix string
	goneStatuses    fetch.StatusSet
	fetcher         Fetcher
	parsers         map[Kind]ParseFunc
	verify          VerifyFunc
	log             zerolog.Logger
}

// New creates a pipeline from the given configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("Fetcher is required")
	}

	verify := cfg.Verify
	if verify == nil {
		if len(cfg.Keys) == 0 {
			return nil, fmt.Errorf("pinned public keys are required")
		}
		verify = cfg.Keys.Verify
	}

	suffix := cfg.SignatureSuffix
	if suffix == "" {
		suffix = DefaultSignatureSuffix
	}

	gone := cfg.GoneStatuses
	if gone == nil {
		gone = fetch.NewStatusSet(404, 410)
	}

	parsers := map[Kind]ParseFunc{
		KindServerList:       catalog.ParseServerList,
		KindOrganizationList: catalog.ParseOrganizationList,
	}
	for kind, fn := range cfg.Parsers {
		parsers[kind] = fn
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Pipeline{
		baseURL:         cfg.BaseURL,
		signatureSuffix: suffix,
		goneStatuses:    gone,
		fetcher:         cfg.Fetcher,
		parsers:         parsers,
		verify:          verify,
		log:             log,
	}, nil
}

// Resolve runs the full pipeline for one manifest kind and returns its
// single terminal outcome. The document and its signature are fetched
// concurrently; verification starts only after both branches complete.
func (p *Pipeline) Resolve(ctx context.Context, kind Kind) Outcome {
	req := NewRequest(kind, p.baseURL, p.signatureSuffix)
	log := p.log.With().
		Stringer("request_id", req.ID).
		Stringer("kind", kind).
		Logger()

	var (
		docRes, sigRes *fetch.Result
		docErr, sigErr error
	)

	// Plain group, no shared context cancellation: both branches must
	// run to completion so the join sees a full result, and one
	// branch's failure must not abort the other (a deleted document
	// outranks a failed signature fetch).
	var g errgroup.Group
	g.Go(func() error {
		docRes, docErr = p.fetcher.Fetch(ctx, req.DocumentURL())
		return nil
	})
	g.Go(func() error {
		sigRes, sigErr = p.fetcher.Fetch(ctx, req.SignatureURL())
		return nil
	})
	_ = g.Wait() // join barrier; branch errors are inspected below

	// A gone document is an expected terminal state, not a failure,
	// and it outranks whatever happened to the signature branch.
	if docErr == nil && p.goneStatuses.Contains(docRes.Status) {
		log.Info().Int("status", docRes.Status).Msg("manifest deleted by authority")
		return Outcome{Request: req, Status: StatusDeleted}
	}

	if err := fetchFailure(docRes, docErr, "document"); err != nil {
		log.Warn().Err(err).Msg("manifest fetch failed")
		return Outcome{Request: req, Status: StatusFetchFailed, Err: err}
	}
	if err := fetchFailure(sigRes, sigErr, "signature"); err != nil {
		log.Warn().Err(err).Msg("signature fetch failed")
		return Outcome{Request: req, Status: StatusFetchFailed, Err: err}
	}

	if !p.runVerify(docRes.Body, string(sigRes.Body)) {
		log.Error().Msg("signature verification failed, discarding document")
		return Outcome{Request: req, Status: StatusSignatureInvalid}
	}

	parse, ok := p.parsers[kind]
	if !ok {
		return Outcome{
			Request: req,
			Status:  StatusMalformedCatalog,
			Err:     fmt.Errorf("no parser registered for kind %q", kind),
		}
	}

	cat, err := parse(docRes.Body)
	if err != nil {
		log.Warn().Err(err).Msg("verified document did not parse")
		return Outcome{Request: req, Status: StatusMalformedCatalog, Err: fmt.Errorf("parse %s: %w", kind, err)}
	}

	log.Info().Int("entries", cat.Len()).Msg("catalog verified and parsed")
	return Outcome{Request: req, Status: StatusReady, Catalog: cat}
}

// ResolveAsync runs Resolve off the caller's goroutine and delivers
// exactly one outcome on the returned channel, which is then closed.
// The channel is buffered, so a caller that stops caring can simply
// drop it; the late completion is never acted on.
func (p *Pipeline) ResolveAsync(ctx context.Context, kind Kind) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		ch <- p.Resolve(ctx, kind)
		close(ch)
	}()
	return ch
}

// runVerify invokes the verifier, mapping any internal fault to a
// plain verification failure so it cannot become a distinct outcome.
func (p *Pipeline) runVerify(message []byte, signatureText string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("verifier fault treated as invalid signature")
			ok = false
		}
	}()
	return p.verify(message, signatureText)
}

// fetchFailure normalizes a completed fetch branch into a transport
// failure, covering both transport errors and unexpected statuses.
func fetchFailure(res *fetch.Result, err error, branch string) error {
	if err != nil {
		return fmt.Errorf("fetch %s: %w", branch, err)
	}
	if !res.OK() {
		return fmt.Errorf("fetch %s: unexpected status %d", branch, res.Status)
	}
	return nil
}
