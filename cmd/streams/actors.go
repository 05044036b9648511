package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/streams/internal/presence"
	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/spf13/cobra"
)

var actorsCmd = &cobra.Command{
	Use:     "actors",
	Short:   "List the actors recently seen by the server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		active, _ := cmd.Flags().GetDuration("active")
		actors, err := streamsClient.ListActors(context.Background(), active)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(os.Stdout, actors)
			return nil
		}
		printActors(actors)
		return nil
	},
}

func printActors(actors []presence.Entry) {
	if len(actors) == 0 {
		fmt.Println(ui.RenderMuted("no actors seen"))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTOR\tLAST SEEN\tREQUESTS\tWRITES\tNAMESPACES\tLAST ROUTE")
	for _, a := range actors {
		seen := (time.Duration(a.IdleSecs) * time.Second).String() + " ago"
		if a.Idle {
			seen = ui.RenderMuted(seen + " (idle)")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			a.Actor, seen, a.RequestCount, a.WriteCount, strings.Join(a.Namespaces, ","), a.LastRoute)
	}
	w.Flush()
}

func init() {
	actorsCmd.Flags().Duration("active", 0, "only list actors seen within this window")
}
