package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefaultLogDir(t *testing.T) {
	dir := DefaultLogDir()
	if !strings.Contains(dir, ".amandocs") || filepath.Base(dir) != "logs" {
		t.Errorf("DefaultLogDir should end with .amandocs/logs, got: %s", dir)
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
	if cfg.StderrLevel != "warn" {
		t.Errorf("expected stderr level 'warn', got: %s", cfg.StderrLevel)
	}
	if filepath.Base(cfg.FilePath()) != LogFileName {
		t.Errorf("expected %s, got: %s", LogFileName, cfg.FilePath())
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := Setup(Config{Level: "debug", Dir: dir})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("index_build_start", slog.String("scope", "/docs"))
	cleanup()

	data, err := os.ReadFile(PathIn(dir))
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"index_build_start"`) ||
		!strings.Contains(string(data), `"scope":"/docs"`) {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := Setup(Config{Level: "warn", Dir: dir})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("quiet")
	logger.Warn("loud")
	cleanup()

	data, _ := os.ReadFile(PathIn(dir))
	if strings.Contains(string(data), "quiet") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("warn record should be written")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFanout_RoutesByLevel(t *testing.T) {
	var all, warn bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h).With(slog.String("run_id", "r1"))

	logger.Info("one")
	logger.Warn("two")

	if !strings.Contains(all.String(), "one") || !strings.Contains(all.String(), "two") {
		t.Errorf("debug handler missed records: %s", all.String())
	}
	if strings.Contains(warn.String(), "one") || !strings.Contains(warn.String(), "run_id=r1") {
		t.Errorf("warn handler got wrong records: %s", warn.String())
	}
}

func TestFindLogFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := FindLogFile(dir, ""); err == nil {
		t.Error("expected error when no log exists")
	}
	if _, err := FindLogFile(dir, filepath.Join(dir, "nope.log")); err == nil {
		t.Error("expected error for missing explicit path")
	}

	if err := os.WriteFile(PathIn(dir), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindLogFile(dir, "")
	if err != nil || got != PathIn(dir) {
		t.Errorf("FindLogFile = %q, %v", got, err)
	}
}

// ============================================================================
// Viewer Tests
// ============================================================================

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), LogFileName)
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestViewer_TailKeepsLastLines(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf(`{"time":"2024-05-01T10:00:0%dZ","level":"INFO","msg":"m%d"}`, i, i))
	}
	p := writeLog(t, lines...)

	entries, err := NewViewer(ViewerConfig{NoColor: true}, nil).Tail(p, 3)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}

	if len(entries) != 3 || entries[0].Msg != "m7" || entries[2].Msg != "m9" {
		t.Errorf("unexpected tail: %+v", entries)
	}
}

func TestViewer_Filters(t *testing.T) {
	p := writeLog(t,
		`{"time":"2024-05-01T10:00:00Z","level":"DEBUG","msg":"index_file","run_id":"a"}`,
		`{"time":"2024-05-01T10:00:01Z","level":"WARN","msg":"index_fetch_failed","run_id":"a"}`,
		`{"time":"2024-05-01T10:00:02Z","level":"WARN","msg":"index_fetch_failed","run_id":"b"}`,
		`not json`,
	)

	tests := []struct {
		name string
		cfg  ViewerConfig
		want int
	}{
		{"all", ViewerConfig{}, 4},
		{"level", ViewerConfig{Level: "warn"}, 3}, // raw lines pass the level filter
		{"run", ViewerConfig{RunID: "a"}, 2},
		{"contains", ViewerConfig{Contains: "fetch"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewViewer(tt.cfg, nil).Tail(p, 100)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	e := parseLine(`{"time":"2024-05-01T10:00:00.5Z","level":"INFO","msg":"search_complete","results":3,"scope":"/docs"}`)
	got := v.FormatEntry(e)

	if got != "10:00:00.500 INFO  search_complete results=3 scope=/docs" {
		t.Errorf("unexpected format: %q", got)
	}
	if raw := v.FormatEntry(parseLine("plain")); raw != "plain" {
		t.Errorf("invalid line should print raw, got %q", raw)
	}
}

func TestViewer_Print(t *testing.T) {
	var out bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &out)

	v.Print([]LogEntry{parseLine("a"), parseLine("b")})

	if out.String() != "a\nb\n" {
		t.Errorf("unexpected output: %q", out.String())
	}
}

// ============================================================================
// Writer Rotation Tests
// ============================================================================

func TestRotatingWriter_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "rotate.log")

	// 0 MB rotates before every write after the first
	w, err := NewRotatingWriter(logPath, 0, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	for _, s := range []string{"first\n", "second\n", "third\n"} {
		if _, err := w.Write([]byte(s)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	assertContent(t, logPath, "third\n")
	assertContent(t, logPath+".1", "second\n")
	assertContent(t, logPath+".2", "first\n")
}

func TestRotatingWriter_MaxFilesLimit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "maxfiles.log")
	w, err := NewRotatingWriter(logPath, 0, 2)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		_, _ = w.Write([]byte(fmt.Sprintf("%d\n", i)))
	}

	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("rotated file .3 should not exist (beyond maxFiles)")
	}
	assertContent(t, logPath+".2", "2\n")
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Error("expected error writing to closed writer")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(logPath, 10, 3)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = w.Write([]byte(fmt.Sprintf(`{"id":%d,"iter":%d}`+"\n", id, j)))
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 500 {
		t.Errorf("expected 500 lines, got %d", n)
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s = %q, want %q", filepath.Base(path), data, want)
	}
}
