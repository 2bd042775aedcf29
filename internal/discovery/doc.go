// Package discovery implements the signed-manifest retrieval and
// verification pipeline: the component that turns a remote discovery
// manifest into a typed, trusted catalog, or into a precise failure.
//
// # Security Model
//
// The pipeline is the application's sole trust boundary for catalog
// data:
//   - The manifest document and its detached signature are fetched
//     concurrently from the configured authority.
//   - Nothing is parsed, stored, or returned before the signature
//     verifies against a pinned public key.
//   - There is no code path that produces a Catalog from unverified
//     bytes.
//
// # Outcome Resolution
//
// Each request resolves to exactly one terminal outcome, in priority
// order:
//
//  1. StatusDeleted — the document fetch returned a status in the
//     configured gone set. The authority removed the manifest on
//     purpose; the signature branch is ignored entirely.
//  2. StatusFetchFailed — either branch failed for any other reason.
//     The verifier is never invoked.
//  3. StatusSignatureInvalid — verification failed, including every
//     decode and format failure. The document is discarded.
//  4. StatusMalformedCatalog — the verified document did not parse.
//  5. StatusReady — the catalog is available to the caller.
//
// The pipeline performs no retries; a caller that wants to retry
// issues a new request.
package discovery
