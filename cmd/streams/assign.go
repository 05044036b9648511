package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign <stream> <field>",
	Short: "Assign a field to a stream, or update an existing assignment",
	Long: `Assign a field to a stream. The stream's entry table gains a column
named after the field slug. Assigning an already assigned field updates its
flags in place.`,
	GroupID: "fields",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts model.AssignOptions
		opts.TitleColumn, _ = cmd.Flags().GetBool("title-column")
		opts.Instructions, _ = cmd.Flags().GetString("instructions")
		opts.Unique, _ = cmd.Flags().GetBool("unique")
		opts.Required, _ = cmd.Flags().GetBool("required")

		a, err := streamsClient.AssignField(context.Background(), namespace, args[0], args[1], opts)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, a)
			return nil
		}
		fmt.Printf("Assigned %s to %s [%s]\n",
			ui.RenderAccent(args[1]), ui.RenderAccent(args[0]), assignmentFlags(a.Required, a.Unique))
		return nil
	},
}

var deassignCmd = &cobra.Command{
	Use:     "deassign <stream> <field>",
	Short:   "Remove a field from a stream and drop its column",
	GroupID: "fields",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := streamsClient.DeassignField(context.Background(), namespace, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Removed %s from %s\n", ui.RenderAccent(args[1]), ui.RenderAccent(args[0]))
		return nil
	},
}

func init() {
	assignCmd.Flags().Bool("title-column", false, "use the field as the stream's title column")
	assignCmd.Flags().String("instructions", "", "instructions shown with the input")
	assignCmd.Flags().Bool("unique", false, "require unique values")
	assignCmd.Flags().Bool("required", false, "require a value")
}
