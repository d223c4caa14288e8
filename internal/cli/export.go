// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/advisor-tui/internal/export"
	"github.com/jeranaias/advisor-tui/internal/model"
	"github.com/jeranaias/advisor-tui/internal/ui/components"
)

var (
	flagExportFormat string
	flagExportDir    string
	flagNoMetadata   bool
	flagNoTimestamps bool
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a saved conversation to a file",
	Long: `Writes a saved conversation to the current directory (or --out).

Formats:
  md     markdown transcript
  json   full session structure
  xlsx   workbook with the transcript sheet plus one sheet per chart,
         carrying the chart's tabular data

Use "last" as the ID to export the most recent session.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "F", "md", "output format: md, json, or xlsx")
	exportCmd.Flags().StringVarP(&flagExportDir, "out", "o", ".", "output directory")
	exportCmd.Flags().BoolVar(&flagNoMetadata, "no-metadata", false, "omit the session metadata header")
	exportCmd.Flags().BoolVar(&flagNoTimestamps, "no-timestamps", false, "omit per-message timestamps")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	var sess *model.Session
	if args[0] == "last" {
		sess, err = store.LoadLatest()
	} else {
		sess, err = loadByRef(store, args[0])
	}
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.OutputDir = flagExportDir
	opts.IncludeMetadata = !flagNoMetadata
	opts.IncludeTimestamps = !flagNoTimestamps

	exporter, err := export.ForFormat(flagExportFormat, opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(sess, exporter, opts)
	if err != nil {
		return fmt.Errorf("export session: %w", err)
	}
	fmt.Println(components.InlineSuccess("Exported to " + path))
	return nil
}
