package runlog

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestPrintf_LineFormat(t *testing.T) {
	var sb strings.Builder
	l := New(&sb, fixedClock)

	l.Printf("dhcp lease bound on %s", "wlan0")

	want := "[2026-03-14 09:26:53] dhcp lease bound on wlan0\n"
	if got := sb.String(); got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestOpen_AppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "run.log")

	first, err := Open(path, io.Discard)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	first.Printf("first run")
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path, io.Discard)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	second.Printf("second run")
	if err := second.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "first run") || !strings.Contains(content, "second run") {
		t.Errorf("log lost lines across reopen:\n%s", content)
	}
	if lines := strings.Count(content, "\n"); lines != 2 {
		t.Errorf("line count = %d, want 2", lines)
	}
}

func TestOpen_MirrorsLines(t *testing.T) {
	var sb strings.Builder
	path := filepath.Join(t.TempDir(), "run.log")

	l, err := Open(path, &sb)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	l.Printf("interface %s present", "wlan0")

	if !strings.Contains(sb.String(), "interface wlan0 present") {
		t.Errorf("mirror missed line, got %q", sb.String())
	}
}

func TestClose_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path, io.Discard)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
