package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()
	if filepath.Base(path) != "server.log" {
		t.Errorf("DefaultLogPath should end with server.log, got: %s", path)
	}
	if !strings.Contains(path, ".ancheck") {
		t.Errorf("DefaultLogPath should be under .ancheck, got: %s", path)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("unexpected rotation defaults: %d MB, %d files", cfg.MaxSizeMB, cfg.MaxFiles)
	}
	if cfg.WriteToStderr {
		t.Error("expected WriteToStderr to be false")
	}
}

func TestSetup_WritesJSONAtLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: logPath})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("index_full_started")
	logger.Warn("scan_root_unavailable", slog.String("root", "/mnt/x"))
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "index_full_started") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(content, `"msg":"scan_root_unavailable"`) || !strings.Contains(content, `"root":"/mnt/x"`) {
		t.Errorf("warn record missing or not JSON: %s", content)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFindLogFile(t *testing.T) {
	if _, err := FindLogFile(filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("expected error for missing explicit path")
	}

	path := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindLogFile(path)
	if err != nil || got != path {
		t.Errorf("FindLogFile(%q) = %q, %v", path, got, err)
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Close() }()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	for _, name := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("rotation should keep at most 2 backups")
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("new\n"))
	_ = w.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "old\nnew\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "server.log"), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("expected write after close to fail")
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = fmt.Fprintf(w, "writer %d line %d\n", n, j)
			}
		}(i)
	}
	wg.Wait()
	_ = w.Close()

	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}

const sampleLog = `{"time":"2026-03-01T10:00:00.123Z","level":"DEBUG","msg":"scan_root_started","root":"/home"}
{"time":"2026-03-01T10:00:01.000Z","level":"INFO","msg":"index_full_completed","indexed":42,"run_id":"r1"}
not json at all
{"time":"2026-03-01T10:00:02.000Z","level":"ERROR","msg":"index_batch_failed","error":"disk I/O error"}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewer_Tail(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(writeSample(t), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].IsValid || entries[0].Raw != "not json at all" {
		t.Errorf("first entry should be the raw line, got %+v", entries[0])
	}
	if entries[1].Msg != "index_batch_failed" {
		t.Errorf("unexpected last entry: %+v", entries[1])
	}
}

func TestViewer_Tail_LevelAndPattern(t *testing.T) {
	path := writeSample(t)

	v := NewViewer(ViewerConfig{Level: "info", NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Level == "DEBUG" {
			t.Error("debug entry should be filtered")
		}
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries (raw line kept), got %d", len(entries))
	}

	v = NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`index_`), NoColor: true}, &bytes.Buffer{})
	entries, _ = v.Tail(path, 0)
	if len(entries) != 2 {
		t.Errorf("expected 2 pattern matches, got %d", len(entries))
	}
}

func TestViewer_TailMissingFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	if _, err := v.Tail(filepath.Join(t.TempDir(), "none.log"), 10); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestViewer_FormatAndPrint(t *testing.T) {
	var out bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &out)

	entries, err := v.Tail(writeSample(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	v.Print(entries)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	want := "10:00:01.000 INFO  index_full_completed indexed=42 run_id=r1"
	if lines[1] != want {
		t.Errorf("got %q, want %q", lines[1], want)
	}
	if lines[2] != "not json at all" {
		t.Errorf("raw line not preserved: %q", lines[2])
	}
}

func TestViewer_Follow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(path, []byte(`{"level":"INFO","msg":"old"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan LogEntry, 16)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, 10*time.Millisecond, entries) }()

	// The follower starts at the end of the file, so keep appending until
	// the first fresh entry arrives.
	deadline := time.After(2 * time.Second)
	var first LogEntry
wait:
	for {
		_, _ = f.WriteString(`{"level":"INFO","msg":"tick"}` + "\n")
		select {
		case first = <-entries:
			break wait
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("no entry received")
		}
	}
	if first.Msg != "tick" {
		t.Fatalf("expected tick, got %q", first.Msg)
	}
	for len(entries) > 0 {
		<-entries
	}
	time.Sleep(30 * time.Millisecond)
	for len(entries) > 0 {
		<-entries
	}

	_, _ = f.WriteString(`{"level":"WARN","msg":"par`)
	select {
	case e := <-entries:
		t.Fatalf("partial line emitted: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
	_, _ = f.WriteString(`tial"}` + "\n")
	select {
	case e := <-entries:
		if e.Msg != "partial" || e.Level != "WARN" {
			t.Errorf("unexpected entry %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("completed line not emitted")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
}
