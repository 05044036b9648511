package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/spf13/cobra"
)

var fieldCmd = &cobra.Command{
	Use:     "field",
	Short:   "Manage field definitions",
	GroupID: "fields",
}

var fieldAddCmd = &cobra.Command{
	Use:   "add <name> <slug>",
	Short: "Create a field, optionally assigning it to a stream",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldType, _ := cmd.Flags().GetString("type")
		extraPairs, _ := cmd.Flags().GetStringArray("extra")
		extra, err := parsePairs("extra", extraPairs)
		if err != nil {
			return err
		}

		spec := model.FieldSpec{
			Name:      args[0],
			Slug:      args[1],
			Namespace: namespace,
			Type:      fieldType,
			Extra:     extra,
		}
		spec.Assign, _ = cmd.Flags().GetString("assign")
		spec.TitleColumn, _ = cmd.Flags().GetBool("title-column")
		spec.Instructions, _ = cmd.Flags().GetString("instructions")
		spec.Unique, _ = cmd.Flags().GetBool("unique")
		spec.Required, _ = cmd.Flags().GetBool("required")

		field, err := streamsClient.AddField(context.Background(), spec)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, field)
			return nil
		}
		fmt.Printf("Created field %s (%s)\n", ui.RenderAccent(field.Slug), field.ID)
		return nil
	},
}

var fieldImportCmd = &cobra.Command{
	Use:   "import <file.toml>",
	Short: "Create the fields defined in a TOML file",
	Long: `Create every [[fields]] entry of a TOML file. Entries are added
independently: one that fails is reported by the server and skipped.

  namespace = "blog"

  [[fields]]
  name = "Title"
  slug = "title"
  type = "text"
  assign = "posts"
  required = true
  [fields.extra]
  max_length = 120`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading field file: %w", err)
		}
		specs, err := parseFieldFile(string(data), namespace)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		resp, err := streamsClient.AddFields(context.Background(), specs)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, resp)
			return nil
		}
		for _, f := range resp.Fields {
			fmt.Printf("Created field %s (%s)\n", ui.RenderAccent(f.Slug), f.ID)
		}
		summary := fmt.Sprintf("%d of %d fields created", resp.Created, resp.Requested)
		if resp.Created < resp.Requested {
			summary = ui.RenderWarn(summary)
		}
		fmt.Println(summary)
		return nil
	},
}

var fieldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the fields of the namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := streamsClient.ListFields(context.Background(), namespace)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, fields)
			return nil
		}
		printFieldList(os.Stdout, fields)
		return nil
	},
}

var fieldShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show a field definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := streamsClient.GetField(context.Background(), namespace, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, field)
			return nil
		}
		printField(os.Stdout, field)
		return nil
	},
}

var fieldDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete a field, its assignments and their columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := streamsClient.DeleteField(context.Background(), namespace, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted field %s\n", ui.RenderAccent(args[0]))
		return nil
	},
}

var fieldAssignmentsCmd = &cobra.Command{
	Use:   "assignments <slug>",
	Short: "List the streams a field is assigned to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assigns, err := streamsClient.GetFieldAssignments(context.Background(), namespace, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, assigns)
			return nil
		}
		if len(assigns) == 0 {
			fmt.Println(ui.RenderMuted("not assigned to any stream"))
			return nil
		}
		printAssignments(os.Stdout, assigns)
		return nil
	},
}

// parsePairs converts key=value pairs into a map. Values that parse as
// JSON (numbers, booleans, arrays, objects) are kept as such; anything
// else is a string.
func parsePairs(kind string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid %s %q: expected key=value", kind, p)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			m[k] = parsed
		} else {
			m[k] = v
		}
	}
	return m, nil
}

type fieldFile struct {
	Namespace string            `toml:"namespace"`
	Fields    []model.FieldSpec `toml:"fields"`
}

// parseFieldFile decodes a TOML field definition file. Entries without a
// namespace take the file's namespace, then defaultNamespace.
func parseFieldFile(data, defaultNamespace string) ([]model.FieldSpec, error) {
	var ff fieldFile
	md, err := toml.Decode(data, &ff)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if len(ff.Fields) == 0 {
		return nil, fmt.Errorf("no [[fields]] defined")
	}

	ns := ff.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	for i := range ff.Fields {
		if ff.Fields[i].Namespace == "" {
			ff.Fields[i].Namespace = ns
		}
	}
	return ff.Fields, nil
}

func init() {
	fieldAddCmd.Flags().StringP("type", "t", "text", "field type, one of the slugs printed by the types command")
	fieldAddCmd.Flags().StringArrayP("extra", "e", nil, "extra option as key=value (repeatable)")
	fieldAddCmd.Flags().String("assign", "", "stream to assign the new field to")
	fieldAddCmd.Flags().Bool("title-column", false, "use the field as the stream's title column")
	fieldAddCmd.Flags().String("instructions", "", "instructions shown with the input")
	fieldAddCmd.Flags().Bool("unique", false, "require unique values")
	fieldAddCmd.Flags().Bool("required", false, "require a value")

	fieldCmd.AddCommand(fieldAddCmd)
	fieldCmd.AddCommand(fieldImportCmd)
	fieldCmd.AddCommand(fieldListCmd)
	fieldCmd.AddCommand(fieldShowCmd)
	fieldCmd.AddCommand(fieldDeleteCmd)
	fieldCmd.AddCommand(fieldAssignmentsCmd)
}
