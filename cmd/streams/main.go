package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/alfredjeanlab/streams/internal/client"
	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/spf13/cobra"
)

var (
	httpURL    string
	authToken  string
	jsonOutput bool
	actor      string
	namespace  string

	streamsClient client.StreamsClient
)

func defaultActor() string {
	if s := os.Getenv("STREAMS_ACTOR"); s != "" {
		return s
	}
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func envOr(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

var rootCmd = &cobra.Command{
	Use:           "streams <command>",
	Short:         "CLI client for the streams field service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewHTTPClient(httpURL, authToken)
		c.SetActor(actor)
		streamsClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if streamsClient != nil {
			streamsClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", envOr("STREAMS_HTTP_URL", "http://localhost:8080"), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("STREAMS_AUTH_TOKEN"), "bearer token for the server")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor recorded on events")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", envOr("STREAMS_NAMESPACE", "default"), "field and stream namespace")

	rootCmd.AddGroup(
		&cobra.Group{ID: "fields", Title: "Fields:"},
		&cobra.Group{ID: "streams", Title: "Streams:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Fields
	rootCmd.AddCommand(fieldCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(deassignCmd)

	// Streams
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(validateCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(actorsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ui.Init()
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}
