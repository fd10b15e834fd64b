package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/deskbot-io/deskbot/pkg/protocol"
)

type fakeService struct {
	clients []protocol.Client
	err     error
	calls   int
}

func (f *fakeService) ListActiveClients(context.Context) ([]protocol.Client, error) {
	f.calls++
	return f.clients, f.err
}

func TestRefreshReplacesWholesale(t *testing.T) {
	svc := &fakeService{clients: []protocol.Client{
		{GroupID: "-100", Name: "Acme"},
		{GroupID: "-200", Name: "Globex"},
	}}
	cache := NewCache(svc, nil)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("Len = %d", cache.Len())
	}

	// Second refresh drops entries no longer listed — no merge.
	svc.clients = []protocol.Client{{GroupID: "-300", Name: "Initech"}}
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d after replace", cache.Len())
	}
	if cache.Known("-100") {
		t.Error("stale entry survived a wholesale refresh")
	}
}

func TestNameLazyRefreshOnMiss(t *testing.T) {
	svc := &fakeService{clients: []protocol.Client{{GroupID: "-100", Name: "Acme"}}}
	cache := NewCache(svc, nil)

	if got := cache.Name(context.Background(), "-100"); got != "Acme" {
		t.Errorf("Name = %q", got)
	}
	if svc.calls != 1 {
		t.Errorf("calls = %d, want 1 (refresh on miss)", svc.calls)
	}

	// Hit does not refresh again.
	cache.Name(context.Background(), "-100")
	if svc.calls != 1 {
		t.Errorf("calls = %d after hit", svc.calls)
	}
}

func TestNameFallsBackToGroupID(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("directory down")}
	cache := NewCache(svc, nil)

	if got := cache.Name(context.Background(), "-999"); got != "-999" {
		t.Errorf("Name = %q, want raw id fallback", got)
	}
}

func TestExportRestore(t *testing.T) {
	cache := NewCache(&fakeService{}, nil)
	cache.Restore(map[string]string{"-1": "A", "-2": "B"})

	got := cache.Groups()
	sort.Strings(got)
	if len(got) != 2 || got[0] != "-1" || got[1] != "-2" {
		t.Errorf("Groups = %v", got)
	}

	exported := cache.Export()
	exported["-3"] = "C"
	if cache.Len() != 2 {
		t.Error("Export must return a copy")
	}
}

func TestHTTPService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clients" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("auth = %q", got)
		}
		fmt.Fprint(w, `{"clients": [{"group_id": "-100", "name": "Acme"}]}`)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, "key-1")
	clients, err := svc.ListActiveClients(context.Background())
	if err != nil {
		t.Fatalf("ListActiveClients: %v", err)
	}
	if len(clients) != 1 || clients[0].Name != "Acme" {
		t.Errorf("clients = %+v", clients)
	}
}

func TestHTTPServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewHTTPService(srv.URL, "")
	if _, err := svc.ListActiveClients(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
