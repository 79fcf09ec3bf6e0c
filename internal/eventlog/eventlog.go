// Package eventlog appends client events to one JSON Lines file per local
// day and prunes files older than a retention window.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	dateLayout = "2006-01-02"
	fileExt    = ".jsonl"

	DefaultRetentionDays = 7
)

// Entry is one event. Extra keys are merged into the top-level object; the
// fixed keys win on collision.
type Entry struct {
	Timestamp string
	Level     string
	Event     string
	TraceID   string
	UserID    string
	Extra     map[string]any
}

type Writer struct {
	fs  afero.Fs
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func New(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir, now: time.Now}
}

// Path returns today's log file.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, w.now().Format(dateLayout)+fileExt)
}

// Write appends entry as a single JSON line to today's file.
func (w *Writer) Write(entry Entry) error {
	obj := make(map[string]any, len(entry.Extra)+5)
	for k, v := range entry.Extra {
		obj[k] = v
	}
	obj["timestamp"] = entry.Timestamp
	obj["level"] = entry.Level
	obj["event"] = entry.Event
	obj["traceId"] = entry.TraceID
	if entry.UserID != "" {
		obj["userId"] = entry.UserID
	}

	line, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to serialize log entry: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	f, err := w.fs.OpenFile(w.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	return nil
}

// Cleanup deletes daily files dated before today minus retentionDays and
// returns how many were removed. Files that do not look like daily logs are
// left alone, as are files that fail to delete.
func (w *Writer) Cleanup(retentionDays int) (int, error) {
	if retentionDays < 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := w.now().AddDate(0, 0, -retentionDays).Format(dateLayout)

	entries, err := afero.ReadDir(w.fs, w.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read logs directory: %w", err)
	}

	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		date, ok := dailyDate(e.Name())
		if !ok || date >= cutoff {
			continue
		}
		if err := w.fs.Remove(filepath.Join(w.dir, e.Name())); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// dailyDate extracts YYYY-MM-DD from a daily log file name.
func dailyDate(name string) (string, bool) {
	date, found := strings.CutSuffix(name, fileExt)
	if !found || len(date) != len(dateLayout) {
		return "", false
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", false
	}
	return date, true
}
