package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/ip0000h/reqbench/internal/auth"
)

func TestBasicProviderInjectHeader(t *testing.T) {
	provider := auth.NewBasicProvider("alice", "secret")
	defer provider.Close()

	req, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if err := provider.InjectHeader(context.Background(), req); err != nil {
		t.Fatalf("InjectHeader() error = %v", err)
	}

	user, password, ok := req.BasicAuth()
	if !ok {
		t.Fatal("request has no basic auth header")
	}
	if user != "alice" || password != "secret" {
		t.Fatalf("BasicAuth() = %q/%q, want alice/secret", user, password)
	}
}

func TestBearerProviderInjectHeader(t *testing.T) {
	provider := auth.NewBearerProvider("tok-123")
	defer provider.Close()

	req, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if err := provider.InjectHeader(context.Background(), req); err != nil {
		t.Fatalf("InjectHeader() error = %v", err)
	}

	if got := req.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("Authorization = %q, want Bearer tok-123", got)
	}
}
