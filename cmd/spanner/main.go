// spanner inspects, filters, and archives event export files produced by
// the capture subsystem.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tascord/spanner/capture"
	"github.com/tascord/spanner/capture/exportfile"
	"github.com/tascord/spanner/capture/sqlitearchive"
)

// version is set by ldflags at build time.
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "spanner",
		Short:         "work with captured event export files",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newInspectCmd(), newFilterCmd(), newArchiveCmd(), newRestoreCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <export-file>",
		Short: "summarize an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := exportfile.ImportFromFile(args[0])
			if err != nil {
				return err
			}

			printSummary(cmd, manager)

			return nil
		},
	}
}

func newFilterCmd() *cobra.Command {
	var (
		flagMinLevel    string
		flagTarget      string
		flagMessage     string
		flagSpan        string
		flagFrom        string
		flagUntil       string
		flagDescription string
	)

	filterCmd := &cobra.Command{
		Use:   "filter <in-file> <out-file>",
		Short: "filter an export file into a new one",
		Long: `Imports an export file, applies the given criteria, and writes the
matching events to a new export file with a manifest recording the
criteria for provenance.

Examples:
  spanner filter all.events errors.events --min-level ERROR
  spanner filter all.events payments.events --target payments --description "payments triage"
  spanner filter all.events recent.events --from 2026-08-30T00:00:00Z`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter(flagMinLevel, flagTarget, flagMessage, flagSpan, flagFrom, flagUntil)
			if err != nil {
				return err
			}

			manager, err := exportfile.ImportFromFile(args[0])
			if err != nil {
				return err
			}

			matched := manager.Search(filter)
			manifest := capture.BuildExportManifest(flagDescription, filter, len(matched))

			if err = exportfile.ExportEventsToFile(args[1], matched, &manifest); err != nil {
				return err
			}

			cmd.Printf("wrote %d of %d events to %s\n", len(matched), manager.Len(), args[1])

			return nil
		},
	}

	filterCmd.Flags().StringVar(&flagMinLevel, "min-level", "", "severity floor (ERROR, WARN, INFO, DEBUG, TRACE)")
	filterCmd.Flags().StringVar(&flagTarget, "target", "", "target substring")
	filterCmd.Flags().StringVar(&flagMessage, "message", "", "message substring")
	filterCmd.Flags().StringVar(&flagSpan, "span", "", "span name substring")
	filterCmd.Flags().StringVar(&flagFrom, "from", "", "inclusive lower time bound (RFC 3339)")
	filterCmd.Flags().StringVar(&flagUntil, "until", "", "inclusive upper time bound (RFC 3339)")
	filterCmd.Flags().StringVar(&flagDescription, "description", "", "manifest description for the output file")

	return filterCmd
}

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <export-file> <archive-db>",
		Short: "store an export file in a SQLite archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := exportfile.ImportFromFile(args[0])
			if err != nil {
				return err
			}

			archive, err := sqlitearchive.Open(args[1])
			if err != nil {
				return err
			}
			defer archive.Close()

			if err = archive.Store(context.Background(), manager.Events(), manager.Manifest()); err != nil {
				return err
			}

			cmd.Printf("archived %d events to %s\n", manager.Len(), args[1])

			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive-db> <export-file>",
		Short: "write a SQLite archive back out as an export file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := sqlitearchive.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			manager, err := archive.Load(context.Background())
			if err != nil {
				return err
			}

			if err = exportfile.ExportEventsToFile(args[1], manager.Events(), manager.Manifest()); err != nil {
				return err
			}

			cmd.Printf("restored %d events to %s\n", manager.Len(), args[1])

			return nil
		},
	}
}

func buildFilter(minLevel, target, message, span, from, until string) (capture.QueryFilter, error) {
	builder := capture.BuildQueryFilter().
		WithTargetContaining(target).
		WithMessageContaining(message).
		WithSpanNameContaining(span)

	if minLevel != "" {
		level, err := capture.ParseLevel(minLevel)
		if err != nil {
			return capture.QueryFilter{}, err
		}

		builder = builder.WithLevelAtLeast(level)
	}

	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return capture.QueryFilter{}, fmt.Errorf("parsing --from: %w", err)
		}

		builder = builder.OccurredFrom(t)
	}

	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return capture.QueryFilter{}, fmt.Errorf("parsing --until: %w", err)
		}

		builder = builder.OccurredUntil(t)
	}

	return builder.Finalize(), nil
}

func printSummary(cmd *cobra.Command, manager *capture.Manager) {
	cmd.Printf("%d events\n", manager.Len())

	for _, level := range []capture.Level{
		capture.LevelError, capture.LevelWarn, capture.LevelInfo, capture.LevelDebug, capture.LevelTrace,
	} {
		if n := len(manager.GetByLevel(level)); n > 0 {
			cmd.Printf("  %-5s %d\n", level, n)
		}
	}

	if manifest := manager.Manifest(); manifest != nil {
		if manifest.Description != "" {
			cmd.Printf("description: %s\n", manifest.Description)
		}

		cmd.Printf("exported at: %s\n", manifest.ExportedAt.Format(time.RFC3339))

		if manifest.FilterApplied != nil {
			cmd.Println("filtered export")
		}
	}
}
