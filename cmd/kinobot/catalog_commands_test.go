package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"kinobot/internal/catalog"
	"kinobot/internal/testsupport"
)

func TestCatalogListShowAndDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.Single("4821", "fp-movie"), testsupport.Series("1307", "fp-e1", "fp-e2"))

	out, _, err := runCLI(t, env.configPath, "", "catalog", "list")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "4821")
	requireContains(t, out, "Series 1307")

	out, _, err = runCLI(t, env.configPath, "", "catalog", "list", "--json", "--kind", "series")
	if err != nil {
		t.Fatalf("catalog list --json: %v", err)
	}
	var summaries []catalog.Summary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Code != "1307" || summaries[0].Episodes != 2 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
	if strings.Contains(out, "ref-") {
		t.Fatal("listing must not expose media references")
	}

	out, _, err = runCLI(t, env.configPath, "", "catalog", "show", "1307")
	if err != nil {
		t.Fatalf("catalog show: %v", err)
	}
	requireContains(t, out, "Kind:       series")
	requireContains(t, out, "Episode")

	if _, _, err := runCLI(t, env.configPath, "", "catalog", "show", "42"); err == nil || !strings.Contains(err.Error(), "0042 not found") {
		t.Fatalf("expected not found for padded code, got %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "", "catalog", "show", "abc"); err == nil || !strings.Contains(err.Error(), "invalid catalog code") {
		t.Fatalf("expected invalid code error, got %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "", "catalog", "delete", "4821")
	if err != nil {
		t.Fatalf("catalog delete: %v", err)
	}
	requireContains(t, out, "Deleted 4821")

	out, _, err = runCLI(t, env.configPath, "", "catalog", "list")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "4821") {
		t.Fatalf("deleted entry still listed:\n%s", out)
	}
}

func TestMutationsRefusedWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.Single("4821", "fp-movie"))

	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	if _, _, err := runCLI(t, env.configPath, "", "catalog", "delete", "4821"); !errors.Is(err, errCatalogLocked) {
		t.Fatalf("expected lock refusal, got %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "", "catalog", "list")
	if err != nil {
		t.Fatalf("read-only commands must work while locked: %v", err)
	}
	requireContains(t, out, "4821")
}

func TestExportImportRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.Single("4821", "fp-movie"), testsupport.Series("1307", "fp-e1", "fp-e2"))

	exportPath := filepath.Join(t.TempDir(), "catalog.json")
	if _, _, err := runCLI(t, env.configPath, "", "catalog", "export", "-o", exportPath); err != nil {
		t.Fatalf("catalog export: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "", "catalog", "delete", "1307"); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath, "", "catalog", "import", exportPath)
	if err != nil {
		t.Fatalf("catalog import: %v", err)
	}
	requireContains(t, out, "Added 1, replaced 0, skipped 1")

	legacy := `[{"code": 77, "title": "Old Film", "file_id": "abc"}, {"code": "x", "title": "Bad", "file_id": "def"}]`
	out, _, err = runCLI(t, env.configPath, legacy, "catalog", "import", "-")
	if err != nil {
		t.Fatalf("legacy import: %v", err)
	}
	requireContains(t, out, "Added 1, replaced 0, skipped 1")

	out, _, err = runCLI(t, env.configPath, "", "catalog", "show", "0077")
	if err != nil {
		t.Fatalf("show imported legacy entry: %v", err)
	}
	requireContains(t, out, "Old Film")

	stdout, _, err := runCLI(t, env.configPath, "", "catalog", "export")
	if err != nil {
		t.Fatal(err)
	}
	doc, issues, err := catalog.ParseImport([]byte(stdout))
	if err != nil || len(issues) != 0 {
		t.Fatalf("export is not importable: %v %v", err, issues)
	}
	if len(doc) != 3 {
		t.Fatalf("expected 3 entries in export, got %d", len(doc))
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogJSONKeepsCaptionVerbatim(t *testing.T) {
	env := setupCLITestEnv(t)
	entry := testsupport.Single("4821", "fp-movie")
	entry.Caption = "Tom & Jerry <4K>"
	env.seed(t, entry)

	out, _, err := runCLI(t, env.configPath, "", "catalog", "show", "4821", "--json")
	if err != nil {
		t.Fatalf("catalog show --json: %v", err)
	}
	requireContains(t, out, `"caption": "Tom & Jerry <4K>"`)
}

func TestExitCodeForLockedCatalog(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"locked", fmt.Errorf("catalog delete: %w", errCatalogLocked), exitLocked},
		{"other", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
