package connection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"localhost:8080", "http://localhost:8080"},
		{"http://localhost:8080/", "http://localhost:8080"},
		{"https://gate.example.com", "https://gate.example.com"},
	}
	for _, tt := range tests {
		c, err := NewClient(tt.server, 0)
		if err != nil {
			t.Fatalf("NewClient(%q) error = %v", tt.server, err)
		}
		if c.BaseURL() != tt.want {
			t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.want)
		}
		if c.http.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", c.http.Timeout, DefaultTimeout)
		}
	}
}

func TestClient_LoginKeepsCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "s3cret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_secret"}`))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "admin_sid", Value: "abc", Path: "/"})
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/api/admin/tokens":
			if c, err := r.Cookie("admin_sid"); err != nil || c.Value != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"admin_unauthorized"}`))
				return
			}
			if r.Header.Get("User-Agent") != userAgent {
				t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
			}
			_, _ = w.Write([]byte(`{"items":[],"list_complete":true,"cursor":null}`))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := NewClient(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Get(ctx, "/api/admin/tokens", nil); !IsCode(err, "admin_unauthorized") {
		t.Fatalf("Get() before login error = %v, want admin_unauthorized", err)
	}

	if err := c.Login(ctx, "wrong"); !IsCode(err, "invalid_secret") {
		t.Fatalf("Login(wrong) error = %v, want invalid_secret", err)
	}
	if err := c.Login(ctx, "s3cret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	var out struct {
		ListComplete bool `json:"list_complete"`
	}
	if err := c.Get(ctx, "/api/admin/tokens", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !out.ListComplete {
		t.Error("list_complete = false, want true")
	}
}

func TestClient_Methods(t *testing.T) {
	var gotMethod, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		method   string
		withBody bool
	}{
		{"post", func() error { return c.Post(ctx, "/x", map[string]int{"a": 1}, nil) }, http.MethodPost, true},
		{"patch", func() error { return c.Patch(ctx, "/x", map[string]int{"a": 1}, nil) }, http.MethodPatch, true},
		{"delete", func() error { return c.Delete(ctx, "/x", nil) }, http.MethodDelete, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("error = %v", err)
			}
			if gotMethod != tt.method {
				t.Errorf("method = %s, want %s", gotMethod, tt.method)
			}
			if (gotType == "application/json") != tt.withBody {
				t.Errorf("Content-Type = %q", gotType)
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second)
	err := c.Get(context.Background(), "/health", nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != "" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if apiErr.Error() != "request failed with status 502" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}
