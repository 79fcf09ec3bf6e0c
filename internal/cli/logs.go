package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vatsal3003/snapnorm/internal/eventlog"
)

func newLogsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage the daily JSONL event log",
	}
	cmd.AddCommand(newLogsWriteCommand(a), newLogsCleanupCommand(a), newLogsPathCommand(a))
	return cmd
}

func newLogsWriteCommand(a *app) *cobra.Command {
	var (
		level   string
		traceID string
		userID  string
		fields  []string
	)

	cmd := &cobra.Command{
		Use:   "write <event>",
		Short: "Append an event to today's log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			extra := make(map[string]any, len(fields))
			for _, f := range fields {
				k, v, ok := strings.Cut(f, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid --field %q, want key=value", f)
				}
				extra[k] = v
			}
			if traceID == "" {
				traceID = uuid.New().String()
			}

			return a.events.Write(eventlog.Entry{
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				Level:     level,
				Event:     args[0],
				TraceID:   traceID,
				UserID:    userID,
				Extra:     extra,
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", "info", "event level")
	cmd.Flags().StringVar(&traceID, "trace-id", "", "trace id (default: new UUID)")
	cmd.Flags().StringVar(&userID, "user-id", "", "optional user id")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "extra key=value field, repeatable")
	return cmd
}

func newLogsCleanupCommand(a *app) *cobra.Command {
	var retention int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete daily log files older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("retention") {
				retention = a.cfg.LogRetentionDays
			}
			deleted, err := a.events.Cleanup(retention)
			if err != nil {
				return err
			}
			a.log.Info("cleaned up log files", "deleted", deleted, "retention_days", retention)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), deleted)
			return err
		},
	}
	cmd.Flags().IntVar(&retention, "retention", eventlog.DefaultRetentionDays, "days of logs to keep")
	return cmd
}

func newLogsPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of today's log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.events.Path())
			return err
		},
	}
}
