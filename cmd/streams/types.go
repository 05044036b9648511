package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:     "types",
	Short:   "List the registered field types",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := streamsClient.ListTypes(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, types)
			return nil
		}
		printTypes(os.Stdout, types)
		return nil
	},
}
