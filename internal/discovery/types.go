package discovery

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lumivpn/discovery/internal/catalog"
)

// Kind identifies which discovery manifest a request targets.
type Kind string

const (
	// KindServerList is the server catalog manifest
	KindServerList Kind = "server_list"
	// KindOrganizationList is the organization catalog manifest
	KindOrganizationList Kind = "organization_list"
)

// Kinds returns all manifest kinds in a fixed order.
func Kinds() []Kind {
	return []Kind{KindServerList, KindOrganizationList}
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// FileName returns the manifest file name published for this kind.
func (k Kind) FileName() string {
	return string(k) + ".json"
}

// ParseKind maps a textual kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindServerList, KindOrganizationList:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown manifest kind: %q", s)
	}
}

// Request describes a single manifest fetch attempt. It is immutable
// once constructed; a retry is a new Request.
type Request struct {
	// ID correlates the request's log lines and its outcome
	ID uuid.UUID

	Kind            Kind
	BaseURL         string
	SignatureSuffix string
}

// NewRequest constructs a request for one manifest kind.
func NewRequest(kind Kind, baseURL, signatureSuffix string) Request {
	return Request{
		ID:              uuid.New(),
		Kind:            kind,
		BaseURL:         baseURL,
		SignatureSuffix: signatureSuffix,
	}
}

// DocumentURL returns the URL of the manifest document.
func (r Request) DocumentURL() string {
	return strings.TrimSuffix(r.BaseURL, "/") + "/" + r.Kind.FileName()
}

// SignatureURL returns the URL of the detached signature resource.
func (r Request) SignatureURL() string {
	return r.DocumentURL() + r.SignatureSuffix
}

// Status is the terminal state of a completed pipeline run. Exactly
// one status is produced per request.
type Status int

const (
	// StatusReady indicates the catalog was verified and parsed
	StatusReady Status = iota
	// StatusDeleted indicates the authority permanently removed the manifest
	StatusDeleted
	// StatusFetchFailed indicates a transport or unexpected-status failure
	StatusFetchFailed
	// StatusSignatureInvalid indicates the detached signature did not verify
	StatusSignatureInvalid
	// StatusMalformedCatalog indicates the verified document did not parse
	StatusMalformedCatalog
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusDeleted:
		return "deleted"
	case StatusFetchFailed:
		return "fetch_failed"
	case StatusSignatureInvalid:
		return "signature_invalid"
	case StatusMalformedCatalog:
		return "malformed_catalog"
	default:
		return "unknown"
	}
}

// Outcome is the single result of a pipeline run.
//
// Catalog is non-nil if and only if Status is StatusReady. Err carries
// the underlying cause for StatusFetchFailed and StatusMalformedCatalog;
// it is nil for the other statuses (a deleted manifest is an expected
// state, and signature failures deliberately carry no detail).
type Outcome struct {
	Request Request
	Status  Status
	Catalog catalog.Catalog
	Err     error
}

// Ready reports whether the outcome carries a verified catalog.
func (o Outcome) Ready() bool {
	return o.Status == StatusReady
}
