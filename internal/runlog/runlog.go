// Package runlog maintains the append-only operator record of bootstrap and
// convergence runs: one "[timestamp] message" line per event. The file is
// only ever appended to, so it survives restarts and accumulates the full
// history of bring-up attempts on the host.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// timeLayout matches the historical log format; tooling on the hosts greps
// these files, so it stays fixed.
const timeLayout = "2006-01-02 15:04:05"

// Logger appends timestamped lines to the run log and mirrors them to a
// live writer so an attended run is visible as it happens.
type Logger struct {
	mu     sync.Mutex
	file   *os.File // nil when mirroring only
	mirror io.Writer
	now    func() time.Time
}

// Open appends to the log file at path, creating parent directories as
// needed, and mirrors every line to mirror. Pass io.Discard to disable
// mirroring.
func Open(path string, mirror io.Writer) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &Logger{file: f, mirror: mirror, now: time.Now}, nil
}

// New writes lines to w only, stamping them with the given clock.
func New(w io.Writer, now func() time.Time) *Logger {
	return &Logger{mirror: w, now: now}
}

// Printf appends one formatted line. Write failures are reported through
// slog rather than returned: a full disk must not abort a bring-up that is
// otherwise working.
func (l *Logger) Printf(format string, args ...any) {
	line := fmt.Sprintf("[%s] %s\n", l.now().Format(timeLayout), fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		if _, err := l.file.WriteString(line); err != nil {
			slog.Warn("Run log write failed.", "error", err)
		}
	}
	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, line)
	}
}

// Close releases the underlying file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
