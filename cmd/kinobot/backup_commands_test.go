package main

import (
	"testing"

	"kinobot/internal/testsupport"
)

func TestBackupNowAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.Single("4821", "fp-movie"))

	out, _, err := runCLI(t, env.configPath, "", "backup", "list")
	if err != nil {
		t.Fatalf("backup list: %v", err)
	}
	requireContains(t, out, "No snapshots")

	out, _, err = runCLI(t, env.configPath, "", "backup", "now")
	if err != nil {
		t.Fatalf("backup now: %v", err)
	}
	requireContains(t, out, "Wrote ")

	out, _, err = runCLI(t, env.configPath, "", "backup", "list")
	if err != nil {
		t.Fatal(err)
	}
	requireContains(t, out, "catalog-")
}

func TestStatusReportsCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, testsupport.Single("4821", "fp-movie"), testsupport.Series("1307", "fp-e1"))

	out, _, err := runCLI(t, env.configPath, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "2 entries")
	requireContains(t, out, "@"+testsupport.BotUsername)
}
