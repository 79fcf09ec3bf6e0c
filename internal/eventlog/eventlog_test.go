package eventlog

import (
	"bufio"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedWriter(t *testing.T, day string) *Writer {
	t.Helper()
	now, err := time.ParseInLocation("2006-01-02 15:04", day+" 12:00", time.Local)
	require.NoError(t, err)

	w := New(afero.NewMemMapFs(), "/logs")
	w.now = func() time.Time { return now }
	return w
}

func readLines(t *testing.T, w *Writer, path string) []map[string]any {
	t.Helper()
	f, err := w.fs.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestWriterWrite(t *testing.T) {
	t.Run("Should append one line per entry to the daily file", func(t *testing.T) {
		w := fixedWriter(t, "2026-10-18")

		require.NoError(t, w.Write(Entry{
			Timestamp: "2026-10-18T12:00:00Z",
			Level:     "info",
			Event:     "image.compressed",
			TraceID:   "t-1",
			Extra:     map[string]any{"bytes": 1234, "level": "ignored"},
		}))
		require.NoError(t, w.Write(Entry{Level: "error", Event: "upload.failed", TraceID: "t-2", UserID: "u-9"}))

		assert.Equal(t, "2026-10-18.jsonl", filepath.Base(w.Path()))
		lines := readLines(t, w, w.Path())
		require.Len(t, lines, 2)

		assert.Equal(t, "image.compressed", lines[0]["event"])
		assert.Equal(t, "info", lines[0]["level"], "fixed keys win over extra")
		assert.Equal(t, float64(1234), lines[0]["bytes"])
		assert.NotContains(t, lines[0], "userId")

		assert.Equal(t, "u-9", lines[1]["userId"])
		assert.Equal(t, "t-2", lines[1]["traceId"])
	})
}

func TestWriterWriteReadOnly(t *testing.T) {
	t.Run("Should report a filesystem that refuses writes", func(t *testing.T) {
		w := New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/logs")

		err := w.Write(Entry{Level: "info", Event: "x", TraceID: "t"})
		assert.Error(t, err)
	})
}

func TestWriterCleanup(t *testing.T) {
	t.Run("Should delete only daily files older than the window", func(t *testing.T) {
		w := fixedWriter(t, "2026-10-18")

		for _, name := range []string{
			"2026-10-01.jsonl", // old
			"2026-10-10.jsonl", // old
			"2026-10-11.jsonl", // exactly at cutoff, kept
			"2026-10-18.jsonl", // today
			"notes.jsonl",
			"2026-10-01.txt",
			"2026-13-01.jsonl",
		} {
			require.NoError(t, afero.WriteFile(w.fs, filepath.Join(w.dir, name), []byte("{}\n"), 0o644))
		}

		deleted, err := w.Cleanup(7)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		entries, err := afero.ReadDir(w.fs, w.dir)
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.ElementsMatch(t, []string{
			"2026-10-11.jsonl", "2026-10-18.jsonl", "notes.jsonl", "2026-10-01.txt", "2026-13-01.jsonl",
		}, names)
	})

	t.Run("Should report nothing when the directory does not exist", func(t *testing.T) {
		w := fixedWriter(t, "2026-10-18")

		deleted, err := w.Cleanup(7)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}
