// Package watch turns images dropped into an inbox directory into
// normalization jobs, skipping sources it has already seen.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/vatsal3003/snapnorm/internal/logger"
	"github.com/vatsal3003/snapnorm/internal/normalize"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

const DefaultDebounce = 500 * time.Millisecond

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
	".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Sink receives a job for every new, unseen source.
type Sink func(job models.NormalizeJob) error

type Watcher struct {
	dir      string
	fs       afero.Fs
	sink     Sink
	seen     *lru.Cache[string, string]
	log      logger.Logger
	Debounce time.Duration

	// submitMu guards the seen check and the pending reservations; the sink
	// runs outside it so distinct sources are processed in parallel.
	submitMu sync.Mutex
	pending  map[string]bool

	mu     sync.Mutex
	gen    uint64
	timers map[string]debounced
	wg     sync.WaitGroup
}

type debounced struct {
	timer *time.Timer
	gen   uint64
}

// New creates a watcher for dir. cacheSize bounds how many source hashes are
// remembered for duplicate detection.
func New(dir string, fs afero.Fs, cacheSize int, sink Sink, log logger.Logger) (*Watcher, error) {
	seen, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen cache: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}

	return &Watcher{
		dir:      dir,
		fs:       fs,
		sink:     sink,
		seen:     seen,
		log:      log.With("dir", dir),
		Debounce: DefaultDebounce,
		pending:  make(map[string]bool),
		timers:   make(map[string]debounced),
	}, nil
}

// IsImage reports whether path has an extension the watcher picks up.
// Hidden files are ignored so editors' and browsers' temp files never
// become jobs.
func IsImage(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return imageExts[strings.ToLower(filepath.Ext(base))]
}

// Submit hashes the file at path and hands a new job to the sink unless an
// identical source was submitted before or is being submitted right now. It
// reports whether a job was sent.
func (w *Watcher) Submit(path string) (bool, error) {
	sum, err := normalize.HashFile(w.fs, path)
	if err != nil {
		return false, err
	}

	w.submitMu.Lock()
	if artifactID, ok := w.seen.Get(sum); ok {
		w.submitMu.Unlock()
		w.log.Info("skipping duplicate source", "source", path, "artifact_id", artifactID)
		return false, nil
	}
	if w.pending[sum] {
		w.submitMu.Unlock()
		w.log.Info("skipping duplicate source", "source", path)
		return false, nil
	}
	w.pending[sum] = true
	w.submitMu.Unlock()

	job := models.NewNormalizeJob(path, "")
	err = w.sink(job)

	w.submitMu.Lock()
	delete(w.pending, sum)
	if err == nil {
		w.seen.Add(sum, job.ArtifactID)
	}
	w.submitMu.Unlock()

	if err != nil {
		return false, fmt.Errorf("failed to submit %s: %w", path, err)
	}
	return true, nil
}

// Run watches the directory until ctx is done, then waits for in-flight
// submissions to finish.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", w.dir, err)
	}
	w.log.Info("watching folder")

	defer w.drain()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsImage(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

// schedule debounces bursts of events for one path into a single submit.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev, exists := w.timers[path]; exists {
		if prev.timer.Stop() {
			w.wg.Done()
		}
	}

	w.gen++
	gen := w.gen

	w.wg.Add(1)
	timer := time.AfterFunc(w.Debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if cur, ok := w.timers[path]; ok && cur.gen == gen {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		if _, err := w.Submit(path); err != nil {
			w.log.Error("failed to submit image", "source", path, "error", err)
		}
	})
	w.timers[path] = debounced{timer: timer, gen: gen}
}

func (w *Watcher) drain() {
	w.mu.Lock()
	for path, d := range w.timers {
		if d.timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
