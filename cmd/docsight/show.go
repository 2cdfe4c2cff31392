package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var declared string
	var structure bool
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the normalized text of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0], declared)
			if err != nil {
				return err
			}
			if !structure {
				fmt.Fprintln(cmd.OutOrStdout(), doc.Content)
				return nil
			}

			s := doc.Structure()
			if s == nil {
				return errors.New("structure view is only available for XML and JSON documents")
			}
			out, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	addTypeFlag(cmd, &declared)
	cmd.Flags().BoolVar(&structure, "structure", false, "print the nested structure as JSON instead of the text view")
	return cmd
}
