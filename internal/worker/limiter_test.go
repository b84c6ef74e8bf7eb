package worker

import (
	"context"
	"testing"
)

// allow takes a token for key without blocking
func allow(l *Limiter, key string) bool {
	return l.getLimiter(hostKey(key)).Allow()
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://api.mistral.ai/v1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://api.deepseek.com/v1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	key := "https://api.mistral.ai/v1"
	if !allow(limiter, key) {
		t.Fatal("first request should pass")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, key); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestLimiter_SharedPerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !allow(limiter, "https://api.mistral.ai/v1/chat/completions") {
		t.Fatal("first request should pass")
	}
	// same host, different path
	if allow(limiter, "https://api.mistral.ai/v1/models") {
		t.Error("expected tokens to be shared across paths of one host")
	}
	if !allow(limiter, "https://api.deepseek.com/v1") {
		t.Error("expected other host to be allowed")
	}
}

func TestLimiter_BareKeys(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !allow(limiter, "mistral") {
		t.Fatal("first request should pass")
	}
	if allow(limiter, "mistral") {
		t.Error("expected second request for same key to be limited")
	}
	if !allow(limiter, "ollama") {
		t.Error("expected distinct bare key to be allowed")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !allow(limiter, "https://example.com") {
			t.Fatalf("request %d limited with unlimited rate", i)
		}
	}
}

func TestHostKey(t *testing.T) {
	tests := map[string]string{
		"http://example.com/foo":    "example.com",
		"https://api.mistral.ai/v1": "api.mistral.ai",
		"http://localhost:11434":    "localhost:11434",
		"mistral":                   "mistral",
		"::invalid":                 "::invalid",
	}
	for in, want := range tests {
		if got := hostKey(in); got != want {
			t.Errorf("hostKey(%q) = %q, want %q", in, got, want)
		}
	}
}
