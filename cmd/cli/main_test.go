package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "ragkeeper")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	_ = withTmpConfig(t)
	got := cfgDir()
	base := os.Getenv("XDG_CONFIG_HOME") + "/ragkeeper"
	if got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_tokens_SaveLoadClear(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadTokens(); err == nil {
		t.Fatalf("expected error when token file missing")
	}
	tf := tokenFile{
		AccessToken:  "acc",
		RefreshToken: "ref",
		ExpiresAt:    time.Now().Add(time.Minute),
	}
	if err := saveTokens(tf); err != nil {
		t.Fatalf("saveTokens: %v", err)
	}
	got, err := loadTokens()
	if err != nil || got.AccessToken != "acc" || got.RefreshToken != "ref" {
		t.Fatalf("loadTokens: %+v err=%v", got, err)
	}
	if err := clearTokens(); err != nil {
		t.Fatalf("clearTokens: %v", err)
	}
	if _, err := loadTokens(); err == nil {
		t.Fatalf("want error after clear")
	}
	if err := clearTokens(); err != nil {
		t.Fatalf("clearTokens must be idempotent: %v", err)
	}
}

func Test_client_do_DecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "AUTH", "message": "unauthorized"})
	}))
	defer srv.Close()

	c := &client{base: srv.URL, hc: srv.Client()}
	err := c.do(context.Background(), http.MethodGet, "/api/auth/me", "bad", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var ae *apiError
	if !errors.As(err, &ae) || ae.Code != "AUTH" {
		t.Fatalf("want apiError AUTH, got %v", err)
	}
}

func Test_bearer_RefreshesExpiredPair(t *testing.T) {
	_ = withTmpConfig(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["refreshToken"] != "old-ref" {
			t.Fatalf("refresh got %q", req["refreshToken"])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authResponse{
			AccessToken:      "new-acc",
			RefreshToken:     "new-ref",
			TokenType:        "Bearer",
			ExpiresInSeconds: 900,
		})
	}))
	defer srv.Close()

	err := saveTokens(tokenFile{
		AccessToken:  "old-acc",
		RefreshToken: "old-ref",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("saveTokens: %v", err)
	}

	c := &client{base: srv.URL, hc: srv.Client()}
	tok, err := c.bearer(context.Background())
	if err != nil {
		t.Fatalf("bearer: %v", err)
	}
	if tok != "new-acc" {
		t.Fatalf("tok=%q, want new-acc", tok)
	}

	tf, err := loadTokens()
	if err != nil || tf.RefreshToken != "new-ref" {
		t.Fatalf("rotated pair not persisted: %+v err=%v", tf, err)
	}
}

func Test_bearer_FreshTokenUsedAsIs(t *testing.T) {
	_ = withTmpConfig(t)

	err := saveTokens(tokenFile{
		AccessToken:  "acc",
		RefreshToken: "ref",
		ExpiresAt:    time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("saveTokens: %v", err)
	}

	c := &client{base: "http://127.0.0.1:0", hc: &http.Client{}}
	tok, err := c.bearer(context.Background())
	if err != nil || tok != "acc" {
		t.Fatalf("bearer: tok=%q err=%v", tok, err)
	}
}
