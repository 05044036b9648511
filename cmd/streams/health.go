package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/streams/internal/client"
	"github.com/alfredjeanlab/streams/internal/server"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the streams service",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		grpcAddr, _ := cmd.Flags().GetString("grpc")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var (
			status string
			err    error
		)
		if grpcAddr != "" {
			status, err = grpcHealth(ctx, grpcAddr)
		} else {
			status, err = streamsClient.Health(ctx)
		}
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"status": status})
		} else {
			fmt.Printf("Health: %s\n", status)
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func grpcHealth(ctx context.Context, addr string) (string, error) {
	c, err := client.NewGRPCHealthClient(addr)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.Check(ctx, server.HealthService)
}

func init() {
	healthCmd.Flags().String("grpc", "", "probe the gRPC health service at this address instead of HTTP")
}
