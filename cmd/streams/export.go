package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/streams/internal/config"
	"github.com/alfredjeanlab/streams/internal/store/postgres"
	streamsync "github.com/alfredjeanlab/streams/internal/sync"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [namespace...]",
	Short: "Export stream and field definitions as JSONL",
	Long: `Export stream, field and assignment definitions as JSONL, reading
directly from the database at STREAMS_DATABASE_URL.

With no flags the export is written to stdout. --out writes it atomically
to a file, --s3 uploads it to the STREAMS_SYNC_S3_* bucket the server's
sync scheduler uses.`,
	GroupID: "system",
	// Override PersistentPreRunE so we don't create an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		toS3, _ := cmd.Flags().GetBool("s3")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		st, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		if out == "" && !toS3 {
			return streamsync.ExportJSONL(ctx, st, os.Stdout, args...)
		}
		if len(args) > 0 {
			return fmt.Errorf("namespace filters apply to stdout exports only")
		}

		var dests []streamsync.Destination
		if out != "" {
			dests = append(dests, streamsync.NewFileDestination(out))
		}
		if toS3 {
			if cfg.SyncS3Bucket == "" {
				return fmt.Errorf("--s3 requires STREAMS_SYNC_S3_BUCKET")
			}
			d, err := streamsync.NewS3Destination(ctx, streamsync.S3Options{
				Bucket:   cfg.SyncS3Bucket,
				Key:      cfg.SyncS3Key,
				Region:   cfg.SyncS3Region,
				Endpoint: cfg.SyncS3Endpoint,
			})
			if err != nil {
				return err
			}
			dests = append(dests, d)
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		return streamsync.NewScheduler(st, dests, 0, logger, nil).SyncOnce(ctx)
	},
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "write the export to this file")
	exportCmd.Flags().Bool("s3", false, "upload the export to the configured S3 bucket")
}
