package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:     "stream",
	Short:   "Manage streams",
	GroupID: "streams",
}

var streamCreateCmd = &cobra.Command{
	Use:   "create <name> <slug>",
	Short: "Create a stream and its entry table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := model.StreamSpec{
			Name:      args[0],
			Slug:      args[1],
			Namespace: namespace,
		}
		spec.Prefix, _ = cmd.Flags().GetString("prefix")
		spec.About, _ = cmd.Flags().GetString("about")
		spec.Sorting, _ = cmd.Flags().GetString("sorting")

		stream, err := streamsClient.AddStream(context.Background(), spec)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, stream)
			return nil
		}
		fmt.Printf("Created stream %s (table %s)\n", ui.RenderAccent(stream.Slug), stream.TableName())
		return nil
	},
}

var streamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the streams of the namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		streams, err := streamsClient.ListStreams(context.Background(), namespace)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, streams)
			return nil
		}
		printStreamList(os.Stdout, streams)
		return nil
	},
}

var streamShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show a stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, err := streamsClient.GetStream(context.Background(), namespace, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, stream)
			return nil
		}
		printStream(os.Stdout, stream)
		return nil
	},
}

var streamDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a stream, its assignments and its entry table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := streamsClient.DeleteStream(context.Background(), namespace, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted stream %s\n", ui.RenderAccent(args[0]))
		return nil
	},
}

var streamFieldsCmd = &cobra.Command{
	Use:   "fields <slug>",
	Short: "Render the entry form of a stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("value")
		values, err := parsePairs("value", pairs)
		if err != nil {
			return err
		}
		entryID, _ := cmd.Flags().GetString("entry")

		rows, err := streamsClient.GetStreamFields(context.Background(), namespace, args[0], values, entryID)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, rows)
			return nil
		}
		printStreamFields(os.Stdout, rows)
		return nil
	},
}

func init() {
	streamCreateCmd.Flags().String("prefix", "", "entry table name prefix (default <namespace>_)")
	streamCreateCmd.Flags().String("about", "", "description of the stream")
	streamCreateCmd.Flags().String("sorting", model.SortingTitle, "entry sorting: title or custom")

	streamFieldsCmd.Flags().StringArrayP("value", "v", nil, "current value as field=value (repeatable)")
	streamFieldsCmd.Flags().String("entry", "", "entry id the form is rendered for")

	streamCmd.AddCommand(streamCreateCmd)
	streamCmd.AddCommand(streamListCmd)
	streamCmd.AddCommand(streamShowCmd)
	streamCmd.AddCommand(streamDeleteCmd)
	streamCmd.AddCommand(streamFieldsCmd)
}
