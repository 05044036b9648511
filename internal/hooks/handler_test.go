package hooks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestExecute_StdinAndEnv(t *testing.T) {
	res := Execute(context.Background(), `printf '%s|%s|' "$STREAMS_TOPIC" "$EXTRA"; cat`, time.Second, "",
		[]byte(`{"slug":"title"}`), map[string]string{"STREAMS_TOPIC": "streams.field.created", "EXTRA": "x"})
	if res.Err != nil {
		t.Fatalf("Execute error: %v", res.Err)
	}
	if want := `streams.field.created|x|{"slug":"title"}`; res.Output != want {
		t.Errorf("output = %q, want %q", res.Output, want)
	}
}

func TestExecute_StderrFallback(t *testing.T) {
	res := Execute(context.Background(), "echo broken >&2; exit 3", time.Second, "", nil, nil)
	if res.Err == nil {
		t.Fatal("expected error for exit 3")
	}
	if res.Output != "broken" {
		t.Errorf("output = %q, want stderr text", res.Output)
	}
}

func TestExecute_Timeout(t *testing.T) {
	start := time.Now()
	res := Execute(context.Background(), "sleep 5", 100*time.Millisecond, "", nil, nil)
	if res.Err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout not applied, took %s", time.Since(start))
	}
}

func TestExecute_Dir(t *testing.T) {
	dir := t.TempDir()
	res := Execute(context.Background(), "pwd", time.Second, dir, nil, nil)
	if res.Err != nil {
		t.Fatalf("Execute error: %v", res.Err)
	}
	if filepath.Base(res.Output) != filepath.Base(dir) {
		t.Errorf("pwd = %q, want %q", res.Output, dir)
	}
}

func TestNewHandler_Validation(t *testing.T) {
	if _, err := NewHandler(Hook{}, "", discard); err == nil {
		t.Error("expected error for empty command")
	}
	if _, err := NewHandler(Hook{Command: "true", OnFailure: "explode"}, "", discard); err == nil {
		t.Error("expected error for unknown failure mode")
	}
	h, err := NewHandler(Hook{Command: "true"}, "", nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	if h.hook.OnFailure != OnFailureWarn {
		t.Errorf("default on-failure = %q, want %q", h.hook.OnFailure, OnFailureWarn)
	}
}

func TestHandleEvent(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	h, err := NewHandler(Hook{Command: `echo "$STREAMS_NAMESPACE $STREAMS_TOPIC" >> ` + out}, "blog", discard)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	ran, err := h.HandleEvent(ctx, events.TopicFieldDeleted, []byte(`{"slug":"title","namespace":"blog"}`))
	if err != nil || !ran {
		t.Fatalf("HandleEvent(blog) = %v, %v", ran, err)
	}
	ran, err = h.HandleEvent(ctx, events.TopicFieldDeleted, []byte(`{"slug":"title","namespace":"shop"}`))
	if err != nil || ran {
		t.Fatalf("HandleEvent(shop) = %v, %v; want skipped", ran, err)
	}
	ran, err = h.HandleEvent(ctx, "streams.unknown", []byte(`{}`))
	if err != nil || ran {
		t.Fatalf("HandleEvent(unknown) = %v, %v; want skipped", ran, err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != "blog streams.field.deleted" {
		t.Errorf("hook output = %q", got)
	}
}

func TestHandleEvent_OnFailure(t *testing.T) {
	payload := []byte(`{"namespace":"blog"}`)
	for _, tt := range []struct {
		mode    string
		wantErr bool
	}{
		{OnFailureWarn, false},
		{OnFailureIgnore, false},
		{OnFailureStop, true},
	} {
		t.Run(tt.mode, func(t *testing.T) {
			h, err := NewHandler(Hook{Command: "exit 1", OnFailure: tt.mode}, "", discard)
			if err != nil {
				t.Fatal(err)
			}
			ran, err := h.HandleEvent(context.Background(), events.TopicStreamDeleted, payload)
			if !ran {
				t.Error("expected hook to run")
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestStartSubscriber_StopOnFailure(t *testing.T) {
	url := startTestNATS(t)
	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	h, err := NewHandler(Hook{Command: "exit 2", OnFailure: OnFailureStop}, "", discard)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		errCh <- h.StartSubscriber(ctx, sub, events.TopicStreamCreated)
	}()
	<-started

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	// Subscriptions register asynchronously; publish until the hook fails.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			if err == nil || !strings.Contains(err.Error(), events.TopicStreamCreated) {
				t.Fatalf("StartSubscriber error = %v", err)
			}
			return
		case <-ticker.C:
			_ = nc.Publish(events.TopicStreamCreated, []byte(`{"stream":{"slug":"posts"}}`))
		case <-ctx.Done():
			t.Fatal("timed out waiting for hook failure")
		}
	}
}

func TestStartSubscriber_StopsOnCancel(t *testing.T) {
	url := startTestNATS(t)
	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	h, err := NewHandler(Hook{Command: "true"}, "", discard)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.StartSubscriber(ctx, sub) }()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("StartSubscriber error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("StartSubscriber did not return after cancel")
	}
}
