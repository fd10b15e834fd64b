package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var _ Transcriber = (*Client)(nil)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.ogg")
	if err := os.WriteFile(path, []byte("OggS fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "test-key", WithPollInterval(time.Millisecond))
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestTranscribeFlow(t *testing.T) {
	polls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/a1"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["audio_url"] != "https://cdn.example/a1" {
			t.Errorf("audio_url = %q", body["audio_url"])
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "job-1"})
	})
	mux.HandleFunc("GET /transcript/job-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 3 {
			json.NewEncoder(w).Encode(jobResponse{Status: "processing"})
			return
		}
		json.NewEncoder(w).Encode(jobResponse{Status: "completed", Text: "modem reiniciado"})
	})

	c := newTestClient(t, mux)
	text, err := c.Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "modem reiniciado" {
		t.Errorf("text = %q", text)
	}
	if polls < 3 {
		t.Errorf("polls = %d, want >= 3", polls)
	}
}

func TestTranscribeJobFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/a2"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-2"})
	})
	mux.HandleFunc("GET /transcript/job-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jobResponse{Status: "error", Error: "unsupported codec"})
	})

	c := newTestClient(t, mux)
	if _, err := c.Transcribe(context.Background(), writeAudio(t)); err == nil {
		t.Fatal("expected error for failed job")
	}
}

func TestTranscribeTimesOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/a3"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-3"})
	})
	mux.HandleFunc("GET /transcript/job-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jobResponse{Status: "queued"})
	})

	c := newTestClient(t, mux)
	if _, err := c.Transcribe(context.Background(), writeAudio(t)); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestStatusMapping(t *testing.T) {
	status := "queued"
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transcript/job-4", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jobResponse{Status: status})
	})
	c := newTestClient(t, mux)

	for _, tt := range []struct {
		api  string
		want State
	}{
		{"queued", StateProcessing},
		{"processing", StateProcessing},
		{"completed", StateReady},
		{"error", StateFailed},
	} {
		status = tt.api
		got, err := c.Status(context.Background(), "job-4")
		if err != nil {
			t.Fatalf("Status(%s): %v", tt.api, err)
		}
		if got != tt.want {
			t.Errorf("Status(%s) = %s, want %s", tt.api, got, tt.want)
		}
	}
}

func TestTextRequiresCompleted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /transcript/job-5", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jobResponse{Status: "processing"})
	})
	c := newTestClient(t, mux)
	if _, err := c.Text(context.Background(), "job-5"); err == nil {
		t.Fatal("expected error for incomplete job")
	}
}

func TestUploadMissingFile(t *testing.T) {
	c := New("http://localhost:0", "k")
	if _, err := c.Upload(context.Background(), "/nonexistent/voice.ogg"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
