package config

import (
	"log/slog"
	"testing"
	"time"
)

// allEnvVars lists every variable Load reads; cleared between tests.
var allEnvVars = []string{
	"STREAMS_DATABASE_URL", "STREAMS_GRPC_ADDR", "STREAMS_HTTP_ADDR", "STREAMS_NATS_URL",
	"STREAMS_AUTH_TOKEN", "STREAMS_LOG_LEVEL",
	"STREAMS_SYNC_INTERVAL", "STREAMS_SYNC_S3_BUCKET", "STREAMS_SYNC_S3_ENDPOINT",
	"STREAMS_SYNC_S3_REGION", "STREAMS_SYNC_S3_KEY", "STREAMS_SYNC_FILE",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantGRPCAddr string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:         "DefaultAddresses",
			env:          map[string]string{"STREAMS_DATABASE_URL": "postgres://localhost/streams"},
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":8080",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"STREAMS_DATABASE_URL": "postgres://db:5432/streams",
				"STREAMS_GRPC_ADDR":    ":5050",
				"STREAMS_HTTP_ADDR":    ":3000",
				"STREAMS_NATS_URL":     "nats://localhost:4222",
			},
			wantGRPCAddr: ":5050",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name: "BadLogLevel",
			env: map[string]string{
				"STREAMS_DATABASE_URL": "postgres://localhost/streams",
				"STREAMS_LOG_LEVEL":    "loud",
			},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tc.env["STREAMS_DATABASE_URL"] {
				t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, tc.env["STREAMS_DATABASE_URL"])
			}
			if cfg.GRPCAddr != tc.wantGRPCAddr {
				t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, tc.wantGRPCAddr)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoadInMemory(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("STREAMS_HTTP_ADDR", ":3000")

	if _, err := Load(); err == nil {
		t.Fatal("Load: expected error without STREAMS_DATABASE_URL")
	}
	cfg, err := LoadInMemory()
	if err != nil {
		t.Fatalf("LoadInMemory: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3000")
	}
}

func TestLoadSyncDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("STREAMS_DATABASE_URL", "postgres://localhost/streams")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 3*time.Minute {
		t.Errorf("SyncInterval = %v, want 3m", cfg.SyncInterval)
	}
	if cfg.SyncS3Region != "us-east-1" {
		t.Errorf("SyncS3Region = %q, want %q", cfg.SyncS3Region, "us-east-1")
	}
	if cfg.SyncS3Key != "streams/schema.jsonl" {
		t.Errorf("SyncS3Key = %q, want %q", cfg.SyncS3Key, "streams/schema.jsonl")
	}
	if cfg.SyncEnabled() {
		t.Error("SyncEnabled() = true without a bucket")
	}
}

func TestLoadSyncCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("STREAMS_DATABASE_URL", "postgres://localhost/streams")
	t.Setenv("STREAMS_SYNC_INTERVAL", "10m")
	t.Setenv("STREAMS_SYNC_S3_BUCKET", "my-bucket")
	t.Setenv("STREAMS_SYNC_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("STREAMS_SYNC_S3_REGION", "eu-west-1")
	t.Setenv("STREAMS_SYNC_S3_KEY", "custom/key.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 10*time.Minute {
		t.Errorf("SyncInterval = %v, want 10m", cfg.SyncInterval)
	}
	if cfg.SyncS3Bucket != "my-bucket" {
		t.Errorf("SyncS3Bucket = %q", cfg.SyncS3Bucket)
	}
	if cfg.SyncS3Endpoint != "http://minio:9000" {
		t.Errorf("SyncS3Endpoint = %q", cfg.SyncS3Endpoint)
	}
	if cfg.SyncS3Region != "eu-west-1" {
		t.Errorf("SyncS3Region = %q", cfg.SyncS3Region)
	}
	if cfg.SyncS3Key != "custom/key.jsonl" {
		t.Errorf("SyncS3Key = %q", cfg.SyncS3Key)
	}
	if !cfg.SyncEnabled() {
		t.Error("SyncEnabled() = false with bucket and interval")
	}
}

func TestLoadSyncFile(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("STREAMS_DATABASE_URL", "postgres://localhost/streams")
	t.Setenv("STREAMS_SYNC_FILE", "/var/backups/streams.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.SyncFile != "/var/backups/streams.jsonl" {
		t.Errorf("SyncFile = %q", cfg.SyncFile)
	}
	if !cfg.SyncEnabled() {
		t.Error("SyncEnabled() = false with a file destination")
	}
}

func TestLoadSyncInvalidInterval(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("STREAMS_DATABASE_URL", "postgres://localhost/streams")
	t.Setenv("STREAMS_SYNC_INTERVAL", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid STREAMS_SYNC_INTERVAL")
	}
}

func TestLoadSyncDisabled(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("STREAMS_DATABASE_URL", "postgres://localhost/streams")
	t.Setenv("STREAMS_SYNC_INTERVAL", "0s")
	t.Setenv("STREAMS_SYNC_S3_BUCKET", "my-bucket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SyncInterval != 0 {
		t.Errorf("SyncInterval = %v, want 0 (disabled)", cfg.SyncInterval)
	}
	if cfg.SyncEnabled() {
		t.Error("SyncEnabled() = true with zero interval")
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
