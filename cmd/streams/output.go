package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/streams/internal/client"
	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// printError writes err to stderr, expanding per-field validation errors.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderError("Error:"), err)

	var fieldErrs []model.FieldError
	var apiErr *client.APIError
	var valErr *model.ValidationError
	switch {
	case errors.As(err, &apiErr):
		fieldErrs = apiErr.Errors
	case errors.As(err, &valErr):
		fieldErrs = valErr.Errors
	}
	for _, fe := range fieldErrs {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", ui.RenderAccent(fe.Field), fe.Message)
	}
}

func printField(w io.Writer, f *model.Field) {
	fmt.Fprintf(w, "ID:         %s\n", f.ID)
	fmt.Fprintf(w, "Name:       %s\n", f.Name)
	fmt.Fprintf(w, "Slug:       %s\n", ui.RenderAccent(f.Slug))
	fmt.Fprintf(w, "Namespace:  %s\n", f.Namespace)
	fmt.Fprintf(w, "Type:       %s\n", f.Type)
	if len(f.Extra) > 0 {
		extra, _ := json.Marshal(f.Extra)
		fmt.Fprintf(w, "Extra:      %s\n", extra)
	}
	if f.Locked {
		fmt.Fprintf(w, "Locked:     %s\n", ui.RenderWarn("yes"))
	}
	if !f.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At: %s\n", f.CreatedAt.Format(timeLayout))
	}
}

func printFieldList(w io.Writer, fields []*model.Field) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tTYPE\tID")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Slug, truncate(f.Name, 40), f.Type, f.ID)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d fields\n", len(fields))
}

func printStream(w io.Writer, s *model.Stream) {
	fmt.Fprintf(w, "ID:           %s\n", s.ID)
	fmt.Fprintf(w, "Name:         %s\n", s.Name)
	fmt.Fprintf(w, "Slug:         %s\n", ui.RenderAccent(s.Slug))
	fmt.Fprintf(w, "Namespace:    %s\n", s.Namespace)
	fmt.Fprintf(w, "Table:        %s\n", s.TableName())
	fmt.Fprintf(w, "Sorting:      %s\n", s.Sorting)
	if s.TitleColumn != "" {
		fmt.Fprintf(w, "Title Column: %s\n", s.TitleColumn)
	}
	if s.About != "" {
		fmt.Fprintf(w, "About:        %s\n", s.About)
	}
	if !s.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:   %s\n", s.CreatedAt.Format(timeLayout))
	}
}

func printStreamList(w io.Writer, streams []*model.Stream) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tTABLE\tSORTING\tID")
	for _, s := range streams {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Slug, truncate(s.Name, 40), s.TableName(), s.Sorting, s.ID)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d streams\n", len(streams))
}

func printAssignments(w io.Writer, assigns []*model.Assignment) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tFIELD\tTYPE\tSTREAM\tFLAGS")
	for _, a := range assigns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.SortOrder, a.FieldSlug, a.FieldType, a.StreamID, assignmentFlags(a.Required, a.Unique))
	}
	tw.Flush()
}

func printStreamFields(w io.Writer, rows []model.StreamField) {
	if len(rows) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("no fields assigned"))
		return
	}
	for i, row := range rows {
		name := row.FieldName
		if row.Required {
			name += " " + ui.RenderWarn("*")
		}
		fmt.Fprintf(w, "%d. %s (%s, %s)\n", i+1, name, ui.RenderAccent(row.FieldSlug), row.FieldType)
		if row.Instructions != "" {
			fmt.Fprintf(w, "   %s\n", ui.RenderMuted(row.Instructions))
		}
		if row.Value != nil {
			fmt.Fprintf(w, "   value: %v\n", row.Value)
		}
		fmt.Fprintf(w, "   %s\n", row.Input)
	}
}

func printTypes(w io.Writer, types []client.TypeInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%s\n", t.Slug, t.Name)
	}
	tw.Flush()
}

func assignmentFlags(required, unique bool) string {
	switch {
	case required && unique:
		return "required,unique"
	case required:
		return "required"
	case unique:
		return "unique"
	}
	return "-"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
