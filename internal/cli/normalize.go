package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vatsal3003/snapnorm/internal/eventlog"
	"github.com/vatsal3003/snapnorm/internal/normalize"
	"github.com/vatsal3003/snapnorm/internal/store"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

func newNormalizeCommand(a *app) *cobra.Command {
	var artifactID string

	cmd := &cobra.Command{
		Use:   "normalize <image>...",
		Short: "Resize, grayscale, re-encode and hash images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if artifactID != "" && len(args) > 1 {
				return fmt.Errorf("--id can only be used with a single image")
			}

			n, err := normalize.New(a.cfg.Normalize, a.fs)
			if err != nil {
				return err
			}

			results := make([]*models.NormalizationResult, len(args))
			errs := make([]error, len(args))

			var g errgroup.Group
			g.SetLimit(a.cfg.Workers)
			for i, path := range args {
				i, path := i, path
				id := artifactID
				if id == "" {
					id = uuid.New().String()
				}
				g.Go(func() error {
					results[i], errs[i] = a.normalizeOne(n, path, id)
					return nil
				})
			}
			_ = g.Wait()

			var ok []*models.NormalizationResult
			failed := 0
			for i := range args {
				if errs[i] != nil {
					failed++
					a.log.Error("failed to normalize image", "source", args[i], "kind", normalize.KindOf(errs[i]), "error", errs[i])
					continue
				}
				ok = append(ok, results[i])
			}

			if len(args) == 1 && failed == 0 {
				if err := printJSON(cmd.OutOrStdout(), ok[0]); err != nil {
					return err
				}
			} else if len(ok) > 0 {
				if err := printJSON(cmd.OutOrStdout(), ok); err != nil {
					return err
				}
			}

			if failed > 0 {
				if len(args) == 1 {
					return errs[0]
				}
				return fmt.Errorf("%d of %d images failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&artifactID, "id", "", "artifact id for a single image (default: new UUID)")
	return cmd
}

// normalizeOne runs one normalization and records it in the event log.
func (a *app) normalizeOne(n *normalize.Normalizer, path, id string) (*models.NormalizationResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	start := time.Now()
	res, err := n.Normalize(normalize.Request{SourcePath: abs, ArtifactID: id})

	entry := eventlog.Entry{
		Timestamp: start.UTC().Format(time.RFC3339Nano),
		Level:     "info",
		Event:     "image.normalized",
		TraceID:   id,
		Extra: map[string]any{
			"source":      abs,
			"duration_ms": time.Since(start).Milliseconds(),
		},
	}
	if err != nil {
		entry.Level = "error"
		entry.Event = "image.normalize_failed"
		entry.Extra["error"] = err.Error()
		entry.Extra["error_kind"] = normalize.KindOf(err).String()
	} else {
		entry.Extra["output"] = res.OutputPath
		entry.Extra["original_size"] = res.OriginalSize
		entry.Extra["compressed_size"] = res.CompressedSize
		entry.Extra["content_hash"] = res.ContentHash
	}
	if lerr := a.events.Write(entry); lerr != nil {
		a.log.Warn("failed to write event log", "error", lerr)
	}

	if err == nil {
		a.log.Debug("normalized image", "source", abs, "output", res.OutputPath, "hash", res.ContentHash)
	}
	return res, err
}

func newHashCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the content hash of a file without normalizing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := normalize.HashFile(a.fs, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sum)
			return err
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file>...",
		Short: "Delete files; missing files are not an error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s := store.New(a.fs, a.cfg.Normalize.StorageRoot)
			for _, path := range args {
				if err := s.Remove(path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
