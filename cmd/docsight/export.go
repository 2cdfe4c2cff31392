package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/export"
	"github.com/dgallion1/docsight/internal/flatten"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var declared, output, separator string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Flatten an XML or JSON document into an .xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0], declared)
			if err != nil {
				return err
			}
			if output == "" {
				output = baseName(args[0]) + ".xlsx"
			}
			if !cmd.Flags().Changed("separator") {
				separator = a.cfg.FlattenSeparator
			}

			data := export.New(a.log, nil).DocumentXLSX(doc, flatten.Options{Separator: separator})
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	addTypeFlag(cmd, &declared)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <file>.xlsx in the current directory)")
	cmd.Flags().StringVar(&separator, "separator", flatten.DefaultSeparator, "separator for nested JSON keys (overrides FLATTEN_SEPARATOR)")
	return cmd
}

// baseName is the file name without directory or extension.
func baseName(path string) string {
	name := filepath.Base(path)
	if b := strings.TrimSuffix(name, filepath.Ext(name)); b != "" {
		return b
	}
	return "document"
}
