package pkg

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// captureLogs routes the default logger into a buffer for the rest of the
// test. A nil opts shares the package level.
func captureLogs(t *testing.T, opts *slog.HandlerOptions) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger := DefaultLogger
	prevLevel := GetLogLevel()
	SetLogger(NewLogger(&buf, opts))
	t.Cleanup(func() {
		SetLogger(prevLogger)
		SetLogLevel(prevLevel)
	})
	return &buf
}

// =============================================================================
// Component Tagging
// =============================================================================

func TestLog_ComponentTags(t *testing.T) {
	tests := []struct {
		log       func(Component, string, ...any)
		component Component
		msg       string
		args      []any
		want      []string
	}{
		{LogInfo, ComponentPCI, "device found",
			[]any{"address", "00:1d.7"},
			[]string{"level=INFO", "component=pci", "address=00:1d.7"}},
		{LogInfo, ComponentMMU, "device region mapped",
			[]any{"virt", "0xfe000000"},
			[]string{"component=mmu", "virt=0xfe000000"}},
		{LogWarn, ComponentKbd, "dropping keyboard input",
			[]any{"scancode", 0x1e},
			[]string{"level=WARN", "component=kbd", "scancode=30"}},
		{LogError, ComponentEHCI, "reset did not complete",
			[]any{"polls", 1000},
			[]string{"level=ERROR", "component=ehci", "polls=1000"}},
		{LogWarn, ComponentBoot, "no EHCI controller found", nil,
			[]string{"component=boot"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.component), func(t *testing.T) {
			buf := captureLogs(t, nil)
			tt.log(tt.component, tt.msg, tt.args...)
			out := buf.String()
			if !strings.Contains(out, tt.msg) {
				t.Errorf("output %q missing message %q", out, tt.msg)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
		})
	}
}

// =============================================================================
// Level Filtering
// =============================================================================

func TestSetLogLevel_FiltersBootDiagnostics(t *testing.T) {
	buf := captureLogs(t, nil)

	SetLogLevel(slog.LevelInfo)
	LogDebug(ComponentTask, "task spawned", "id", 0)
	LogInfo(ComponentEHCI, "reset complete", "polls", 3)
	if strings.Contains(buf.String(), "task spawned") {
		t.Error("debug entry written at info level")
	}
	if !strings.Contains(buf.String(), "reset complete") {
		t.Error("info entry missing at info level")
	}

	buf.Reset()
	SetLogLevel(slog.LevelDebug)
	if got := GetLogLevel(); got != slog.LevelDebug {
		t.Errorf("GetLogLevel() = %v, want %v", got, slog.LevelDebug)
	}
	LogDebug(ComponentTask, "task spawned", "id", 0)
	if !strings.Contains(buf.String(), "task spawned") {
		t.Error("debug entry missing at debug level")
	}

	buf.Reset()
	SetLogLevel(slog.LevelError)
	LogWarn(ComponentKbd, "dropping keyboard input")
	if buf.Len() != 0 {
		t.Errorf("warn entry written at error level: %q", buf.String())
	}
}

func TestNewLogger_ExplicitLevel(t *testing.T) {
	buf := captureLogs(t, &slog.HandlerOptions{Level: slog.LevelWarn})
	SetLogLevel(slog.LevelDebug)

	LogInfo(ComponentHAL, "simulated machine built")
	if buf.Len() != 0 {
		t.Errorf("handler level ignored: %q", buf.String())
	}
}

// =============================================================================
// JSON Output
// =============================================================================

func TestNewJSONLogger_Attributes(t *testing.T) {
	var buf bytes.Buffer
	prev := DefaultLogger
	SetLogger(NewJSONLogger(&buf, nil))
	defer SetLogger(prev)

	LogInfo(ComponentBoot, "EHCI controller found",
		"vendor", "0x8086",
		"bar0", "0xf0000000")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output %q is not one JSON object: %v", buf.String(), err)
	}
	want := map[string]string{
		"msg":       "EHCI controller found",
		"component": "boot",
		"vendor":    "0x8086",
		"bar0":      "0xf0000000",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, entry[k], v)
		}
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestLog_ConcurrentWithSetLogger(t *testing.T) {
	prev := DefaultLogger
	defer SetLogger(prev)

	var (
		mu  sync.Mutex
		buf bytes.Buffer
	)
	w := writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return buf.Write(p)
	})

	SetLogger(NewLogger(w, nil))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				LogWarn(ComponentKbd, "dropping keyboard input", "scancode", j)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		SetLogger(NewLogger(w, nil))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if n := strings.Count(buf.String(), "\n"); n != 400 {
		t.Errorf("got %d entries, want 400", n)
	}
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// =============================================================================
// Level Names
// =============================================================================

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"warn+2", slog.LevelWarn + 2, true},
		{"", slog.LevelInfo, false},
		{"loud", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLogLevel(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLogLevel(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
