package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alfredjeanlab/streams/internal/metrics"
	"github.com/alfredjeanlab/streams/internal/store/memstore"
)

// mockDestination records calls to Write.
type mockDestination struct {
	writes atomic.Int64
	last   atomic.Value // []byte
	err    error
}

func (d *mockDestination) Write(_ context.Context, data []byte) error {
	d.writes.Add(1)
	cp := make([]byte, len(data))
	copy(cp, data)
	d.last.Store(cp)
	return d.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{}

	sched := NewScheduler(seedStore(t), []Destination{dest}, 50*time.Millisecond, discardLogger(), nil)
	sched.Start()

	// Wait for at least the initial sync + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}

	data, ok := dest.last.Load().([]byte)
	if !ok || len(data) == 0 {
		t.Fatal("expected non-empty data")
	}
	if lines := nonEmptyLines(string(data)); len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memstore.New(), nil, time.Minute, discardLogger(), nil)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSyncOnce_DestinationErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)

	ok := &mockDestination{}
	bad := &mockDestination{err: errors.New("unreachable")}
	sched := NewScheduler(memstore.New(), []Destination{bad, ok}, time.Minute, discardLogger(), m)

	err := sched.SyncOnce(context.Background())
	if err == nil || !strings.Contains(err.Error(), "destination 0") {
		t.Fatalf("expected destination 0 error, got %v", err)
	}
	if ok.writes.Load() != 1 {
		t.Fatal("healthy destination should still be written")
	}
	if got := testutil.ToFloat64(m.SyncRuns.WithLabelValues("error")); got != 1 {
		t.Fatalf("sync error count = %v, want 1", got)
	}

	bad.err = nil
	if err := sched.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if got := testutil.ToFloat64(m.SyncRuns.WithLabelValues("ok")); got != 1 {
		t.Fatalf("sync success count = %v, want 1", got)
	}
}

func TestFileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup", "schema.jsonl")
	dest := NewFileDestination(path)

	for _, payload := range []string{"first\n", "second\n"} {
		if err := dest.Write(context.Background(), []byte(payload)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(got) != payload {
			t.Fatalf("content = %q, want %q", got, payload)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the export file, found %d entries", len(entries))
	}
}

func TestS3Destination(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotType   string
		gotBody   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	dest, err := NewS3Destination(context.Background(), S3Options{
		Bucket:   "backups",
		Key:      "streams/schema.jsonl",
		Region:   "us-east-1",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewS3Destination: %v", err)
	}
	if dest.String() != "s3://backups/streams/schema.jsonl" {
		t.Fatalf("String() = %q", dest.String())
	}

	if err := dest.Write(context.Background(), []byte(`{"type":"header"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotPath != "/backups/streams/schema.jsonl" {
		t.Errorf("path = %q", gotPath)
	}
	if gotType != "application/x-ndjson" {
		t.Errorf("content-type = %q", gotType)
	}
	if !strings.Contains(gotBody, `{"type":"header"}`) {
		t.Errorf("body = %q", gotBody)
	}
}

func TestNewS3Destination_MissingBucket(t *testing.T) {
	if _, err := NewS3Destination(context.Background(), S3Options{Key: "k"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}
