package cli

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/vatsal3003/snapnorm/internal/normalize"
	"github.com/vatsal3003/snapnorm/internal/watch"
	"github.com/vatsal3003/snapnorm/pkg/models"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Normalize every new image dropped into a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.WatchDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no directory given and watch_dir is not configured")
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if err := a.cfg.CheckWatchDir(dir); err != nil {
				return err
			}

			n, err := normalize.New(a.cfg.Normalize, a.fs)
			if err != nil {
				return err
			}

			var outMu sync.Mutex
			sink := func(job models.NormalizeJob) error {
				res, err := a.normalizeOne(n, job.SourcePath, job.ArtifactID)
				if err != nil {
					return err
				}
				outMu.Lock()
				defer outMu.Unlock()
				return printJSON(cmd.OutOrStdout(), res)
			}

			w, err := watch.New(dir, a.fs, a.cfg.WatchCacheSize, sink, a.log)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}
}
