package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/events"
	"github.com/alfredjeanlab/streams/internal/hooks"
	"github.com/alfredjeanlab/streams/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print field and stream events as they are published",
	Long: `Subscribe to the NATS event bus and print every field and stream
event. Events of other namespaces are skipped unless --all-namespaces is set.

With --exec, the command runs through sh for each event instead: the event
JSON is on its stdin and STREAMS_TOPIC and STREAMS_NAMESPACE are set.`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't create an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		topics, _ := cmd.Flags().GetStringSlice("topic")
		allNamespaces, _ := cmd.Flags().GetBool("all-namespaces")
		if natsURL == "" {
			return fmt.Errorf("--nats-url or STREAMS_NATS_URL is required")
		}
		if len(topics) == 0 {
			topics = events.Topics
		}
		filter := namespace
		if allNamespaces {
			filter = ""
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Printf("nats: disconnected: %v", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				log.Printf("nats: reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		if command, _ := cmd.Flags().GetString("exec"); command != "" {
			timeout, _ := cmd.Flags().GetDuration("exec-timeout")
			onFailure, _ := cmd.Flags().GetString("on-failure")
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			h, err := hooks.NewHandler(hooks.Hook{
				Command:   command,
				Timeout:   timeout,
				OnFailure: onFailure,
			}, filter, logger)
			if err != nil {
				return err
			}
			return h.StartSubscriber(ctx, sub, topics...)
		}

		msgs, err := subscribeTopics(ctx, sub, topics)
		if err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case m := <-msgs:
				printEvent(m, filter)
			}
		}
	},
}

type watchMessage struct {
	topic string
	data  []byte
	at    time.Time
}

// subscribeTopics subscribes to each topic separately so the topic of every
// payload is known, and merges them into one channel. The subscriptions end
// with ctx.
func subscribeTopics(ctx context.Context, sub events.Subscriber, topics []string) (<-chan watchMessage, error) {
	out := make(chan watchMessage, 64)
	for _, topic := range topics {
		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return nil, fmt.Errorf("subscribing to events: %w", err)
		}
		go func(topic string) {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case data, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- watchMessage{topic: topic, data: data, at: time.Now()}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(topic)
	}
	return out, nil
}

func printEvent(m watchMessage, namespaceFilter string) {
	v, err := events.Decode(m.topic, m.data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if namespaceFilter != "" && events.NamespaceOf(v) != namespaceFilter {
		return
	}
	if jsonOutput {
		line, _ := json.Marshal(map[string]any{"topic": m.topic, "at": m.at, "event": v})
		fmt.Println(string(line))
		return
	}
	topic := strings.TrimPrefix(m.topic, "streams.")
	fmt.Printf("%s %s %s\n", ui.RenderMuted(m.at.Format(time.TimeOnly)), ui.RenderAccent(topic), describeEvent(v))
}

// describeEvent returns a one-line description of an event.
func describeEvent(v any) string {
	switch e := v.(type) {
	case *events.FieldCreated:
		if e.Field == nil {
			return "field created"
		}
		return fmt.Sprintf("%s (%s) %s", e.Field.Slug, e.Field.Type, e.Field.ID)
	case *events.FieldDeleted:
		return fmt.Sprintf("%s %s", e.Slug, e.FieldID)
	case *events.FieldAssigned:
		verb := "updated on"
		if e.Created {
			verb = "assigned to"
		}
		field := ""
		if e.Assignment != nil {
			field = e.Assignment.FieldSlug
		}
		return fmt.Sprintf("%s %s %s", field, verb, e.Stream)
	case *events.FieldDeassigned:
		return fmt.Sprintf("%s removed from %s", e.Field, e.Stream)
	case *events.StreamCreated:
		if e.Stream == nil {
			return "stream created"
		}
		return fmt.Sprintf("%s table %s", e.Stream.Slug, e.Stream.TableName())
	case *events.StreamDeleted:
		return fmt.Sprintf("%s %s", e.Slug, e.StreamID)
	}
	return fmt.Sprintf("%v", v)
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("STREAMS_NATS_URL"), "NATS server URL")
	watchCmd.Flags().StringSlice("topic", nil, "topics to watch (default all)")
	watchCmd.Flags().Bool("all-namespaces", false, "print events of every namespace")
	watchCmd.Flags().String("exec", "", "run this command for each event instead of printing it")
	watchCmd.Flags().Duration("exec-timeout", hooks.DefaultTimeout, "timeout for each --exec run")
	watchCmd.Flags().String("on-failure", hooks.OnFailureWarn, "when --exec fails: warn, stop or ignore")
}
