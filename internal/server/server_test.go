package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/wakegate/internal/gesture"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{Hub: NewHub()})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		for _, field := range []string{"uptime", "subscribers"} {
			if _, exists := response[field]; !exists {
				t.Errorf("expected %q field in response", field)
			}
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_Status(t *testing.T) {
	hub := NewHub()
	s := New(Config{Hub: hub})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before first frame: status %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	hub.Publish(gesture.Snapshot{State: gesture.StateCountdown, Remaining: 3, Expected: 2}, nil)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want %d", rec.Code, http.StatusOK)
	}

	var snap gesture.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.State != gesture.StateCountdown || snap.Remaining != 3 || snap.Expected != 2 {
		t.Errorf("snapshot = %+v, want COUNTDOWN with 3s remaining", snap)
	}
}

func TestServer_Routes(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		path   string
		want   int
	}{
		{"unknown path", Config{}, "/api/nonexistent", http.StatusNotFound},
		{"status without hub", Config{}, "/api/status", http.StatusNotFound},
		{"sessions without store", Config{}, "/api/sessions", http.StatusNotFound},
		{"root without static dir", Config{}, "/", http.StatusNotFound},
		{"status method", Config{Hub: NewHub()}, "/api/status", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tt.config).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s: status %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestServer_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	content := "<html><body>wakegate</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: dir})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != content {
		t.Errorf("GET / = %d %q, want 200 %q", rec.Code, rec.Body.String(), content)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /missing.html = %d, want 404", rec.Code)
	}
}

func TestServer_ListenAndServe_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(Config{}).ListenAndServe(ctx, addr)
	}()

	// Wait for the listener.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
