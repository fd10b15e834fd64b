package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deskbot-io/deskbot/internal/session"
	"github.com/deskbot-io/deskbot/internal/ticket"
	"github.com/deskbot-io/deskbot/pkg/protocol"
)

type fakeService struct {
	refreshes int
	broadcast string
}

func (f *fakeService) Sessions() map[string]session.PersistedSession {
	return map[string]session.PersistedSession{
		"g1": {Status: session.StatusOpen, ActiveTicketID: "t1"},
	}
}

func (f *fakeService) Clients() map[string]string {
	return map[string]string{"g1": "Acme"}
}

func (f *fakeService) RefreshDirectory() { f.refreshes++ }

func (f *fakeService) Broadcast(ctx context.Context, text string) (int, int) {
	f.broadcast = text
	return 3, 1
}

type fakeTicketStore struct {
	historyErr error
}

func (f *fakeTicketStore) Create(ctx context.Context, requester, description, client string) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (f *fakeTicketStore) Description(ctx context.Context, id string) (string, error) {
	return "", nil
}
func (f *fakeTicketStore) UpdateFields(ctx context.Context, id string, fields ticket.Fields) error {
	return nil
}
func (f *fakeTicketStore) AppendComment(ctx context.Context, id, author, text string, highlighted bool) error {
	return nil
}
func (f *fakeTicketStore) ListOpen(ctx context.Context, client string) ([]protocol.TicketRef, error) {
	if client != "Acme" {
		return nil, nil
	}
	return []protocol.TicketRef{{ID: "t1", ShortDescription: "Sem internet"}}, nil
}
func (f *fakeTicketStore) History(ctx context.Context, id string) ([]string, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return []string{"💬 04/06 10:00 - Alice:\noi"}, nil
}

func newTestServer(key string) (*Server, *fakeService, *fakeTicketStore) {
	svc := &fakeService{}
	store := &fakeTicketStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(svc, store, Config{Host: "127.0.0.1", Port: 0, Key: key}, logger, nil)
	return srv, svc, store
}

func do(t *testing.T, srv *Server, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	srv, _, _ := newTestServer("secret")
	rec := do(t, srv, "GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer("secret")
	if rec := do(t, srv, "GET", "/api/sessions", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/api/sessions", "", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/api/sessions", "", "secret"); rec.Code != http.StatusOK {
		t.Errorf("right key: status = %d", rec.Code)
	}
}

func TestSessionsAndClients(t *testing.T) {
	srv, _, _ := newTestServer("")

	rec := do(t, srv, "GET", "/api/sessions", "", "")
	var sessions map[string]session.PersistedSession
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatal(err)
	}
	if sessions["g1"].ActiveTicketID != "t1" {
		t.Errorf("sessions = %v", sessions)
	}

	rec = do(t, srv, "GET", "/api/clients", "", "")
	var clients map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &clients); err != nil {
		t.Fatal(err)
	}
	if clients["g1"] != "Acme" {
		t.Errorf("clients = %v", clients)
	}
}

func TestRefreshIsScheduled(t *testing.T) {
	srv, svc, _ := newTestServer("")
	rec := do(t, srv, "POST", "/api/clients/refresh", "", "")
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d", rec.Code)
	}
	if svc.refreshes != 1 {
		t.Errorf("refreshes = %d", svc.refreshes)
	}
}

func TestListTicketsRequiresClient(t *testing.T) {
	srv, _, _ := newTestServer("")
	if rec := do(t, srv, "GET", "/api/tickets", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}

	rec := do(t, srv, "GET", "/api/tickets?client=Acme", "", "")
	var refs []protocol.TicketRef
	if err := json.Unmarshal(rec.Body.Bytes(), &refs); err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != "t1" {
		t.Errorf("refs = %v", refs)
	}
}

func TestTicketHistory(t *testing.T) {
	srv, _, store := newTestServer("")
	rec := do(t, srv, "GET", "/api/tickets/t1/history", "", "")
	var blocks []string
	if err := json.Unmarshal(rec.Body.Bytes(), &blocks); err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Errorf("blocks = %v", blocks)
	}

	store.historyErr = fmt.Errorf("ticket: t9 not found")
	if rec := do(t, srv, "GET", "/api/tickets/t9/history", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestBroadcast(t *testing.T) {
	srv, svc, _ := newTestServer("")

	if rec := do(t, srv, "POST", "/api/broadcast", `{}`, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("empty text: status = %d", rec.Code)
	}

	rec := do(t, srv, "POST", "/api/broadcast", `{"text":"manutenção hoje"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var counts map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatal(err)
	}
	if counts["sent"] != 3 || counts["failed"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if svc.broadcast != "manutenção hoje" {
		t.Errorf("broadcast text = %q", svc.broadcast)
	}
}

func TestLogsWithNilQuerier(t *testing.T) {
	srv, _, _ := newTestServer("")
	rec := do(t, srv, "GET", "/api/logs", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer("secret")
	rec := do(t, srv, "OPTIONS", "/api/sessions", "", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
