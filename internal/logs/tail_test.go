package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kinobot/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kinobot.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastRecords(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Records) != 2 || result.Records[0] != "b" || result.Records[1] != "c" {
		t.Fatalf("unexpected records: %#v", result.Records)
	}
	if result.Offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("unexpected offset %d", result.Offset)
	}
}

func TestTailGroupsConsoleFieldLines(t *testing.T) {
	content := "2026-01-02 15:04:05 INFO [delivery] user 7 · #4821 – delivered\n" +
		"    - event_type: delivery_sent\n" +
		"    - episodes: 3\n" +
		"2026-01-02 15:04:06 WARN [access] user 8 – gate check failed\n"
	path := writeLog(t, content)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected two records, got %#v", result.Records)
	}
	if !strings.Contains(result.Records[0], "event_type: delivery_sent") {
		t.Fatalf("field lines not attached to header: %q", result.Records[0])
	}
}

func TestTailIgnoresPartialLine(t *testing.T) {
	path := writeLog(t, "done\nhalf")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0] != "done" {
		t.Fatalf("unexpected records: %#v", result.Records)
	}
	if result.Offset != int64(len("done\n")) {
		t.Fatalf("offset must stop before the partial line, got %d", result.Offset)
	}
}

func TestTailMissingFileAndTruncation(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.log")
	result, err := logs.Tail(context.Background(), missing, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil || len(result.Records) != 0 || result.Offset != 0 {
		t.Fatalf("missing file: %+v %v", result, err)
	}

	path := writeLog(t, "fresh\n")
	result, err = logs.Tail(context.Background(), path, logs.TailOptions{Offset: 4096})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0] != "fresh" {
		t.Fatalf("expected reread after truncation, got %#v", result.Records)
	}
}

func TestTailWaitsForNewRecords(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected initial record, got %#v", result.Records)
	}

	type outcome struct {
		res logs.TailResult
		err error
	}
	done := make(chan outcome, 1)
	go func(offset int64) {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Wait: 5 * time.Second})
		done <- outcome{res, err}
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case got := <-done:
		if got.err != nil {
			t.Fatalf("waiting tail error: %v", got.err)
		}
		if len(got.res.Records) != 1 || got.res.Records[0] != "later" {
			t.Fatalf("unexpected records: %#v", got.res.Records)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("tail did not return")
	}
}

func TestFollowStopsOnCancel(t *testing.T) {
	path := writeLog(t, "one\n")
	ctx, cancel := context.WithCancel(context.Background())

	emitted := make(chan string, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- logs.Follow(ctx, path, 0, nil, func(record string) { emitted <- record })
	}()

	select {
	case got := <-emitted:
		if got != "one" {
			t.Fatalf("unexpected record %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow emitted nothing")
	}
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Follow returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop")
	}
}
