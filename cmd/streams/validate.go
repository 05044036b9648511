package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <stream>",
	Short: "Check entry values against a stream's fields",
	Long: `Check entry values against the fields assigned to a stream.

Values come from repeated -v field=value flags, or from a JSON object read
from --file ("-" for stdin). Flags override keys of the file.`,
	GroupID: "streams",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		pairs, _ := cmd.Flags().GetStringArray("value")

		values, err := readValues(file, pairs)
		if err != nil {
			return err
		}
		if err := streamsClient.ValidateEntry(context.Background(), namespace, args[0], values); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, map[string]bool{"valid": true})
			return nil
		}
		fmt.Println(ui.RenderOK("valid"))
		return nil
	},
}

// readValues merges a JSON values file with key=value pairs.
func readValues(file string, pairs []string) (map[string]any, error) {
	values := map[string]any{}
	if file != "" {
		var (
			data []byte
			err  error
		)
		if file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return nil, fmt.Errorf("reading values: %w", err)
		}
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decoding values: %w", err)
		}
	}

	flagValues, err := parsePairs("value", pairs)
	if err != nil {
		return nil, err
	}
	for k, v := range flagValues {
		values[k] = v
	}
	return values, nil
}

func init() {
	validateCmd.Flags().StringArrayP("value", "v", nil, "entry value as field=value (repeatable)")
	validateCmd.Flags().StringP("file", "f", "", "JSON object of entry values, - for stdin")
}
