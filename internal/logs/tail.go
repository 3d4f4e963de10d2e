package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// pollInterval is how often a waiting Tail re-reads a quiet log file.
const pollInterval = 250 * time.Millisecond

// TailOptions selects which records Tail returns.
type TailOptions struct {
	// Offset is a byte position to read from; negative means "the last Limit records".
	Offset int64
	Limit  int
	// Wait bounds how long Tail waits for new records when none are available.
	Wait time.Duration
	// Filter, when set, drops records it returns false for.
	Filter Filter
}

// TailResult carries the matching records and the offset to resume from.
// A record is one log entry: a JSON line, or a console header line together
// with its indented field lines.
type TailResult struct {
	Records []string
	Offset  int64
}

// Tail reads records from path. A missing file yields no records and offset zero.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = readLast(path, opts.Limit, opts.Filter)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated underneath us.
			offset = 0
		}
		result, err = readForward(path, offset, opts.Filter)
	}
	if err != nil || len(result.Records) > 0 || opts.Wait <= 0 {
		return result, err
	}
	return waitForRecords(ctx, path, result.Offset, opts.Wait, opts.Filter)
}

// Follow streams matching records to emit until ctx ends, starting at offset.
func Follow(ctx context.Context, path string, offset int64, filter Filter, emit func(string)) error {
	for {
		result, err := Tail(ctx, path, TailOptions{Offset: offset, Wait: time.Minute, Filter: filter})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		for _, record := range result.Records {
			emit(record)
		}
		offset = result.Offset
		if len(result.Records) == 0 {
			// Missing file: Tail returns immediately, so pace the retry.
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func readLast(path string, limit int, filter Filter) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	end, err := scanRecords(file, func(record string) {
		if filter != nil && !filter(record) {
			return
		}
		ring[next] = record
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return TailResult{}, err
	}

	records := make([]string, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range records {
		records[i] = ring[(start+i)%limit]
	}
	return TailResult{Records: records, Offset: end}, nil
}

func readForward(path string, offset int64, filter Filter) (TailResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var records []string
	end, err := scanRecords(file, func(record string) {
		if filter == nil || filter(record) {
			records = append(records, record)
		}
	})
	if err != nil {
		return TailResult{Offset: offset}, err
	}
	return TailResult{Records: records, Offset: end}, nil
}

// scanRecords feeds each complete record to fn and returns the offset just
// past the last complete line, so a half-written line is re-read next time.
// Indented lines continue the record above them.
func scanRecords(file *os.File, fn func(string)) (int64, error) {
	start, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	consumed := start
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			fn(pending.String())
			pending.Reset()
		}
	}
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			flush()
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if isContinuation(line) && pending.Len() > 0 {
			pending.WriteByte('\n')
			pending.WriteString(line)
			continue
		}
		flush()
		if line != "" {
			pending.WriteString(line)
		}
	}
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

func waitForRecords(ctx context.Context, path string, offset int64, wait time.Duration, filter Filter) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
		result, err := readForward(path, offset, filter)
		if err != nil {
			return result, err
		}
		if len(result.Records) > 0 || time.Now().After(deadline) {
			return result, nil
		}
		offset = result.Offset
	}
}
