package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumivpn/discovery/internal/discovery"
	"github.com/lumivpn/discovery/internal/fetch"
	"github.com/lumivpn/discovery/internal/sign"
	"github.com/lumivpn/discovery/internal/testutil"
)

// testAuthority serves a signed server list over httptest, with a
// switchable failure mode.
type testAuthority struct {
	t        *testing.T
	signer   *testutil.SigningAuthority
	server   *httptest.Server
	document atomic.Value // []byte
	failures atomic.Int64 // remaining 500s before serving normally
	gone     atomic.Bool
}

func newTestAuthority(t *testing.T) *testAuthority {
	t.Helper()

	a := &testAuthority{t: t, signer: testutil.NewSigningAuthority(t)}
	a.document.Store([]byte(`{"server_list":[]}`))

	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.failures.Load() > 0 {
			a.failures.Add(-1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		doc := a.document.Load().([]byte)
		switch r.URL.Path {
		case "/server_list.json":
			if a.gone.Load() {
				w.WriteHeader(http.StatusGone)
				return
			}
			_, _ = w.Write(doc)
		case "/server_list.json.minisig":
			_, _ = w.Write([]byte(a.signer.SignMinisign(doc)))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(a.server.Close)
	return a
}

func (a *testAuthority) newRefresher(t *testing.T, retryWindow time.Duration) (*Refresher, *discovery.Store) {
	t.Helper()

	ring, err := sign.ParseKeyring([]string{a.signer.MinisignPublicKey()})
	if err != nil {
		t.Fatalf("parse keyring: %v", err)
	}

	pipeline, err := discovery.New(discovery.Config{
		BaseURL: a.server.URL,
		Keys:    ring,
		Fetcher: fetch.NewClient(5 * time.Second),
	})
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}

	store := discovery.NewStore()
	refresher, err := New(Config{
		Pipeline:    pipeline,
		Store:       store,
		Kinds:       []discovery.Kind{discovery.KindServerList},
		RetryWindow: retryWindow,
	})
	if err != nil {
		t.Fatalf("create refresher: %v", err)
	}
	return refresher, store
}

func TestRefreshPublishesVerifiedCatalog(t *testing.T) {
	authority := newTestAuthority(t)
	refresher, store := authority.newRefresher(t, time.Second)

	out := refresher.Refresh(context.Background(), discovery.KindServerList)
	if out.Status != discovery.StatusReady {
		t.Fatalf("status = %s, want ready (err: %v)", out.Status, out.Err)
	}

	if _, _, ok := store.Latest(discovery.KindServerList); !ok {
		t.Error("store has no catalog after successful refresh")
	}
}

func TestRefreshRetriesTransportFailure(t *testing.T) {
	authority := newTestAuthority(t)
	refresher, store := authority.newRefresher(t, 10*time.Second)

	// Fail the first two requests of the cycle, then recover
	authority.failures.Store(2)

	out := refresher.Refresh(context.Background(), discovery.KindServerList)
	if out.Status != discovery.StatusReady {
		t.Fatalf("status = %s, want ready after retries (err: %v)", out.Status, out.Err)
	}
	if _, _, ok := store.Latest(discovery.KindServerList); !ok {
		t.Error("store has no catalog after retried refresh")
	}
}

func TestRefreshGivesUpWithinRetryWindow(t *testing.T) {
	authority := newTestAuthority(t)
	refresher, store := authority.newRefresher(t, time.Millisecond)

	authority.failures.Store(1 << 30)

	out := refresher.Refresh(context.Background(), discovery.KindServerList)
	if out.Status != discovery.StatusFetchFailed {
		t.Fatalf("status = %s, want fetch_failed", out.Status)
	}
	if _, _, ok := store.Latest(discovery.KindServerList); ok {
		t.Error("store has a catalog despite persistent failure")
	}
}

func TestRefreshRemovesDeletedCatalog(t *testing.T) {
	authority := newTestAuthority(t)
	refresher, store := authority.newRefresher(t, time.Second)

	refresher.Refresh(context.Background(), discovery.KindServerList)
	if _, _, ok := store.Latest(discovery.KindServerList); !ok {
		t.Fatal("store has no catalog after initial refresh")
	}

	authority.gone.Store(true)
	out := refresher.Refresh(context.Background(), discovery.KindServerList)
	if out.Status != discovery.StatusDeleted {
		t.Fatalf("status = %s, want deleted", out.Status)
	}
	if _, _, ok := store.Latest(discovery.KindServerList); ok {
		t.Error("store still holds catalog after authority deleted it")
	}
}

func TestRefreshKeepsLastVerifiedOnBadSignature(t *testing.T) {
	authority := newTestAuthority(t)
	refresher, store := authority.newRefresher(t, time.Second)

	refresher.Refresh(context.Background(), discovery.KindServerList)
	before, _, ok := store.Latest(discovery.KindServerList)
	if !ok {
		t.Fatal("store has no catalog after initial refresh")
	}

	// Swap the signer so the published signature no longer matches
	// the pinned key
	authority.signer = testutil.NewSigningAuthority(t)

	out := refresher.Refresh(context.Background(), discovery.KindServerList)
	if out.Status != discovery.StatusSignatureInvalid {
		t.Fatalf("status = %s, want signature_invalid", out.Status)
	}

	after, _, ok := store.Latest(discovery.KindServerList)
	if !ok {
		t.Fatal("last verified catalog was dropped")
	}
	if before.Len() != after.Len() {
		t.Error("stored catalog changed despite rejected refresh")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	authority := newTestAuthority(t)
	refresher, _ := authority.newRefresher(t, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- refresher.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestNewConfigValidation(t *testing.T) {
	store := discovery.NewStore()

	if _, err := New(Config{Store: store}); err == nil {
		t.Error("expected error for missing pipeline")
	}

	authority := newTestAuthority(t)
	ring, err := sign.ParseKeyring([]string{authority.signer.MinisignPublicKey()})
	if err != nil {
		t.Fatalf("parse keyring: %v", err)
	}
	pipeline, err := discovery.New(discovery.Config{
		BaseURL: authority.server.URL,
		Keys:    ring,
		Fetcher: fetch.NewClient(time.Second),
	})
	if err != nil {
		t.Fatalf("create pipeline: %v", err)
	}

	if _, err := New(Config{Pipeline: pipeline}); err == nil {
		t.Error("expected error for missing store")
	}
}
