package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Port != 18765 {
		t.Errorf("Expected port 18765, got %d", config.Port)
	}
	if config.ReadTimeout != 10*time.Second {
		t.Errorf("Expected ReadTimeout 10s, got %v", config.ReadTimeout)
	}
	if config.WriteTimeout != 10*time.Second {
		t.Errorf("Expected WriteTimeout 10s, got %v", config.WriteTimeout)
	}
	if config.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected ShutdownTimeout 5s, got %v", config.ShutdownTimeout)
	}
}

func TestNew(t *testing.T) {
	config := DefaultConfig()
	server := New(config, nil)

	if server == nil {
		t.Fatal("Expected server to be created")
	}
	if server.port != config.Port {
		t.Errorf("Expected port %d, got %d", config.Port, server.port)
	}
	if server.running {
		t.Error("Expected server to not be running initially")
	}
	if server.GetMux() == nil {
		t.Error("Expected a mux before start")
	}
}

func TestStartStop(t *testing.T) {
	config := DefaultConfig()
	config.Port = 0
	server := New(config, nil)

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if !server.IsRunning() {
		t.Error("Expected server to be running")
	}
	if server.Port() == 0 {
		t.Error("Expected non-zero port")
	}

	if err := server.Start(); err == nil {
		t.Error("Expected error when starting already running server")
	}

	if err := server.Stop(); err != nil {
		t.Errorf("Failed to stop server: %v", err)
	}
	if server.IsRunning() {
		t.Error("Expected server to be stopped")
	}

	// Stopping twice is a no-op
	if err := server.Stop(); err != nil {
		t.Errorf("Expected no error when stopping already stopped server: %v", err)
	}
}

func TestURL(t *testing.T) {
	config := DefaultConfig()
	config.Port = 12345
	server := New(config, nil)

	expectedURL := "http://127.0.0.1:12345"
	if server.URL() != expectedURL {
		t.Errorf("Expected URL %s, got %s", expectedURL, server.URL())
	}
}

func TestServesRegisteredRoutes(t *testing.T) {
	config := DefaultConfig()
	config.Port = 0
	server := New(config, nil)

	server.GetMux().HandleFunc("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer server.Stop()

	resp, err := http.Get(server.URL() + "/api/ping")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "pong" {
		t.Errorf("Expected 200 pong, got %d %q", resp.StatusCode, body)
	}

	resp2, err := http.Get(server.URL() + "/")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unregistered path, got %d", resp2.StatusCode)
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		origin      string
		status      int
		allowOrigin string
	}{
		{"no origin", http.MethodGet, "", http.StatusOK, ""},
		{"loopback preflight", http.MethodOptions, "http://127.0.0.1:8080", http.StatusOK, "http://127.0.0.1:8080"},
		{"localhost", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"lookalike host", http.MethodGet, "http://localhost.example.com", http.StatusForbidden, ""},
		{"https remote", http.MethodGet, "https://example.com", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://127.0.0.1:18765/api/devices", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.allowOrigin {
				t.Errorf("Expected Allow-Origin %q, got %q", tt.allowOrigin, got)
			}
		})
	}
}

func TestMultipleStartStop(t *testing.T) {
	config := DefaultConfig()
	config.Port = 0

	for i := 0; i < 3; i++ {
		server := New(config, nil)
		if err := server.Start(); err != nil {
			t.Fatalf("Iteration %d: Failed to start server: %v", i, err)
		}
		if err := server.Stop(); err != nil {
			t.Fatalf("Iteration %d: Failed to stop server: %v", i, err)
		}
	}
}
