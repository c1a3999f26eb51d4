package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/model"
)

// iconHost is a test double for the LaMetric thumbnail host. It records
// request paths in order and serves the bytes registered per path.
type iconHost struct {
	mu    sync.Mutex
	paths []string
	files map[string][]byte
}

func newIconHost(files map[string][]byte) *iconHost {
	return &iconHost{files: files}
}

func (h *iconHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.paths = append(h.paths, r.URL.Path)
	h.mu.Unlock()

	data, ok := h.files[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func (h *iconHost) requested() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func newTestFetcher(baseURL string, timeout time.Duration) *Fetcher {
	return New(baseURL, timeout, 1000, 1000, zap.NewNop())
}

func TestFetch_AnimatedPreferred(t *testing.T) {
	host := newIconHost(map[string][]byte{
		"/40160.gif": []byte("GIF89a-data"),
		"/40160.png": []byte("png-data"),
	})
	srv := httptest.NewServer(host)
	defer srv.Close()

	f := newTestFetcher(srv.URL, time.Second)
	result, err := f.Fetch(context.Background(), 40160)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if result.Format != model.FormatGIF {
		t.Errorf("expected gif, got %s", result.Format)
	}
	if string(result.Data) != "GIF89a-data" {
		t.Errorf("unexpected data: %q", result.Data)
	}
	// PNG must never have been requested when the GIF exists
	if got := host.requested(); len(got) != 1 || got[0] != "/40160.gif" {
		t.Errorf("expected single gif request, got %v", got)
	}
}

func TestFetch_FallsBackToStatic(t *testing.T) {
	host := newIconHost(map[string][]byte{
		"/40161.png": []byte("png-data"),
	})
	srv := httptest.NewServer(host)
	defer srv.Close()

	f := newTestFetcher(srv.URL, time.Second)
	result, err := f.Fetch(context.Background(), 40161)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if result.Format != model.FormatPNG {
		t.Errorf("expected png, got %s", result.Format)
	}
	// The animated locator must have been attempted first
	want := []string{"/40161.gif", "/40161.png"}
	got := host.requested()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected request order %v, got %v", want, got)
	}
}

func TestFetch_NeitherFormatExists(t *testing.T) {
	host := newIconHost(nil)
	srv := httptest.NewServer(host)
	defer srv.Close()

	f := newTestFetcher(srv.URL, time.Second)
	_, err := f.Fetch(context.Background(), 99999)
	if err == nil {
		t.Fatal("expected error for missing icon")
	}
	if reason := model.ReasonOf(err); reason != model.ReasonNotFound {
		t.Errorf("expected not_found, got %s", reason)
	}
}

func TestFetch_EmptyBodyTreatedAsMissing(t *testing.T) {
	// Host serves a 200 with an empty body for the gif — fetcher must fall
	// through to the png.
	host := newIconHost(map[string][]byte{
		"/40176.gif": {},
		"/40176.png": []byte("png-data"),
	})
	srv := httptest.NewServer(host)
	defer srv.Close()

	f := newTestFetcher(srv.URL, time.Second)
	result, err := f.Fetch(context.Background(), 40176)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if result.Format != model.FormatPNG {
		t.Errorf("expected fallback to png, got %s", result.Format)
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL, time.Second)
	_, err := f.Fetch(context.Background(), 40160)
	if err == nil {
		t.Fatal("expected error")
	}
	if reason := model.ReasonOf(err); reason != model.ReasonNetworkError {
		t.Errorf("expected network_error, got %s", reason)
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listening anymore

	f := newTestFetcher(url, time.Second)
	_, err := f.Fetch(context.Background(), 40160)
	if err == nil {
		t.Fatal("expected error")
	}
	if reason := model.ReasonOf(err); reason != model.ReasonNetworkError {
		t.Errorf("expected network_error, got %s", reason)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL, 50*time.Millisecond)
	_, err := f.Fetch(context.Background(), 40160)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if reason := model.ReasonOf(err); reason != model.ReasonTimeout {
		t.Errorf("expected timeout, got %s", reason)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(srv.URL, time.Second)
	_, err := f.Fetch(ctx, 40160)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}
