// Package cli implements the snapnorm command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vatsal3003/snapnorm/internal/config"
	"github.com/vatsal3003/snapnorm/internal/eventlog"
	"github.com/vatsal3003/snapnorm/internal/logger"
	"github.com/vatsal3003/snapnorm/internal/normalize"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	fs     afero.Fs
	events *eventlog.Writer
	log    logger.Logger
}

type rootFlags struct {
	configPath   string
	logLevel     string
	logJSON      bool
	maxDimension int
	quality      int
	codec        string
	storageRoot  string
	workers      int
}

// NewRootCommand builds the snapnorm command tree. Files are read and written
// through fs.
func NewRootCommand(fs afero.Fs) *cobra.Command {
	var (
		flags rootFlags
		a     = &app{fs: fs}
	)

	root := &cobra.Command{
		Use:           "snapnorm",
		Short:         "Normalize screenshots into small grayscale artifacts for OCR",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, &flags, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger.Setup(cfg.LogLevel, cfg.LogJSON)
			a.cfg = cfg
			a.log = logger.GetDefault()
			a.events = eventlog.New(a.fs, cfg.LogDir)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")
	pf.IntVar(&flags.maxDimension, "max-dimension", normalize.DefaultMaxDimension, "upper bound on the longer output side in pixels")
	pf.IntVar(&flags.quality, "quality", normalize.DefaultQuality, "lossy codec quality (0-100)")
	pf.StringVar(&flags.codec, "codec", normalize.DefaultCodec, "output codec (webp, jpeg)")
	pf.StringVar(&flags.storageRoot, "storage-root", "", "directory artifacts are written to")
	pf.IntVar(&flags.workers, "workers", 0, "parallel normalizations (default: CPU count)")

	root.AddCommand(
		newNormalizeCommand(a),
		newHashCommand(a),
		newDeleteCommand(a),
		newWatchCommand(a),
		newLogsCommand(a),
	)
	return root
}

// applyFlagOverrides lets explicitly set flags win over file and env values.
func applyFlagOverrides(cmd *cobra.Command, f *rootFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-json") {
		cfg.LogJSON = f.logJSON
	}
	if changed("max-dimension") {
		cfg.Normalize.MaxDimension = f.maxDimension
	}
	if changed("quality") {
		cfg.Normalize.Quality = f.quality
	}
	if changed("codec") {
		cfg.Normalize.Codec = f.codec
	}
	if changed("storage-root") {
		cfg.Normalize.StorageRoot = f.storageRoot
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
