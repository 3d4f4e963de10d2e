package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"kinobot/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func telegramStub(t *testing.T, token, username string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+token+"/getMe" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"username":"` + username + `"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckTelegram(t *testing.T) {
	srv := telegramStub(t, "123:good", "kino_bot")

	cases := []struct {
		name     string
		token    string
		username string
		passed   bool
		detail   string
	}{
		{"valid", "123:good", "kino_bot", true, "@kino_bot"},
		{"username with at sign", "123:good", "@Kino_Bot", true, "@kino_bot"},
		{"no username configured", "123:good", "", true, "@kino_bot"},
		{"wrong bot", "123:good", "other_bot", false, "config says @other_bot"},
		{"bad token", "123:bad", "kino_bot", false, "invalid bot token"},
		{"missing token", "", "kino_bot", false, "missing bot token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckTelegram(context.Background(), srv.URL, tc.token, tc.username)
			if result.Passed != tc.passed {
				t.Fatalf("Passed = %v, detail %q", result.Passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("detail %q does not mention %q", result.Detail, tc.detail)
			}
		})
	}
}

func TestCheckTelegramHidesTokenOnNetworkError(t *testing.T) {
	srv := telegramStub(t, "123:secret", "kino_bot")
	base := srv.URL
	srv.Close()

	result := CheckTelegram(context.Background(), base, "123:secret", "")
	if result.Passed {
		t.Fatal("expected failure against closed server")
	}
	if strings.Contains(result.Detail, "secret") {
		t.Fatalf("detail leaks the token: %q", result.Detail)
	}
}

func TestCheckNtfy(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if healthy.Load() {
			_, _ = w.Write([]byte(`{"healthy":true}`))
		} else {
			_, _ = w.Write([]byte(`{"healthy":false}`))
		}
	}))
	defer srv.Close()

	if result := CheckNtfy(context.Background(), srv.URL+"/alerts"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	healthy.Store(false)
	if result := CheckNtfy(context.Background(), srv.URL+"/alerts"); result.Passed {
		t.Fatal("expected failure for unhealthy server")
	}
	if result := CheckNtfy(context.Background(), "alerts"); result.Passed {
		t.Fatal("expected failure for bare topic name")
	}
}

func TestDirectoriesFollowConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := Directories(cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 directory checks, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg.Backup.Enabled = false
	if len(Directories(cfg)) != 2 {
		t.Fatal("backup directory must not be checked when backups are disabled")
	}
}
