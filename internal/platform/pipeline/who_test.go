package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newWHOServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	return newGatedWHOServer(t, tokenCalls, 3600, nil)
}

// newGatedWHOServer issues tokens with the given lifetime. When gate is
// non-nil the token endpoint blocks until it is closed.
func newGatedWHOServer(t *testing.T, tokenCalls *int32, expiresIn int, gate <-chan struct{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		if gate != nil {
			<-gate
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("scope") != "icdapi_access" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-1","expires_in":%d,"token_type":"Bearer"}`, expiresIn)
	})
	mux.HandleFunc("/icd/release/10/2019/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" || r.Header.Get("API-Version") != "v2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/icd/release/10/2019/K29.7":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"code":"K29.7","title":{"@value":"Gastritis, unspecified"}}`))
		case "/icd/release/10/2019/BOOM":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestWHOValidator(srv *httptest.Server) *WHOValidator {
	return NewWHOValidator(WHOConfig{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/connect/token",
		ClientID:     "id",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	})
}

func TestWHOValidator_Found(t *testing.T) {
	var calls int32
	v := newTestWHOValidator(newWHOServer(t, &calls))

	res, err := v.Validate(context.Background(), "K29.7", "Pitta Imbalance / Gastritis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsValid {
		t.Error("expected code to be valid")
	}
	if res.ConfirmedName != "Pitta Imbalance / Gastritis" {
		t.Errorf("expected name preserved, got %q", res.ConfirmedName)
	}
	if res.Source != SourceWHO {
		t.Errorf("expected source %q, got %q", SourceWHO, res.Source)
	}
}

func TestWHOValidator_NotFound(t *testing.T) {
	var calls int32
	v := newTestWHOValidator(newWHOServer(t, &calls))

	res, err := v.Validate(context.Background(), "Q99.X", "Made up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsValid {
		t.Error("expected code to be invalid")
	}
	if res.ConfirmedCode != "Q99.X" {
		t.Errorf("expected code preserved, got %q", res.ConfirmedCode)
	}
}

func TestWHOValidator_ReusesToken(t *testing.T) {
	var calls int32
	v := newTestWHOValidator(newWHOServer(t, &calls))

	for i := 0; i < 3; i++ {
		if _, err := v.Validate(context.Background(), "K29.7", "x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 token request, got %d", got)
	}
}

func TestWHOValidator_UpstreamError(t *testing.T) {
	var calls int32
	v := newTestWHOValidator(newWHOServer(t, &calls))

	if _, err := v.Validate(context.Background(), "BOOM", "x"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestWHOValidator_TokenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := newTestWHOValidator(srv)
	if _, err := v.Validate(context.Background(), "K29.7", "x"); err == nil {
		t.Fatal("expected error when token request fails")
	}
}

func TestWHOValidator_ShortLivedTokenReused(t *testing.T) {
	var calls int32
	v := newTestWHOValidator(newGatedWHOServer(t, &calls, 20, nil))

	for i := 0; i < 3; i++ {
		if _, err := v.Validate(context.Background(), "K29.7", "x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 token request for a 20s token, got %d", got)
	}
}

func TestTokenLifetime(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{3600 * time.Second, 3570 * time.Second},
		{60 * time.Second, 30 * time.Second},
		{30 * time.Second, 15 * time.Second},
		{20 * time.Second, 10 * time.Second},
		{0, 0},
		{-5 * time.Second, 0},
	}
	for _, tt := range tests {
		if got := tokenLifetime(tt.ttl); got != tt.want {
			t.Errorf("tokenLifetime(%v) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}

func TestWHOValidator_ConcurrentCallersShareTokenFetch(t *testing.T) {
	var calls int32
	gate := make(chan struct{})
	v := newTestWHOValidator(newGatedWHOServer(t, &calls, 3600, gate))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.Validate(context.Background(), "K29.7", "x")
			errs <- err
		}()
	}

	waitForCalls(t, &calls, 1)
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 token request, got %d", got)
	}
}

func TestWHOValidator_CacheUnlockedDuringTokenFetch(t *testing.T) {
	var calls int32
	gate := make(chan struct{})
	v := newTestWHOValidator(newGatedWHOServer(t, &calls, 3600, gate))

	done := make(chan error, 1)
	go func() {
		_, err := v.Validate(context.Background(), "K29.7", "x")
		done <- err
	}()
	waitForCalls(t, &calls, 1)

	unlocked := make(chan struct{})
	go func() {
		v.invalidate()
		v.cachedToken()
		close(unlocked)
	}()
	select {
	case <-unlocked:
	case <-time.After(time.Second):
		close(gate)
		t.Fatal("token cache stayed locked while the token request was in flight")
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func waitForCalls(t *testing.T, calls *int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(calls) < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d token requests", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
