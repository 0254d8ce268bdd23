package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/pipelines/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:               "watch",
	Short:             "Stream pipeline analysis events from NATS",
	GroupID:           "pipelines",
	Args:              cobra.NoArgs,
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		if natsURL == "" {
			natsURL = os.Getenv("PIPELINES_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL: pass --nats, set PIPELINES_NATS_URL, or configure a remote with --nats")
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

		ch, cancel, err := sub.Subscribe(events.TopicAll)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		return streamEvents(ctx, ch, cmd.OutOrStdout())
	},
}

// streamEvents prints each event received on ch until ctx is done or ch closes.
func streamEvents(ctx context.Context, ch <-chan []byte, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(w, data)
		}
	}
}

func printEvent(w io.Writer, data []byte) {
	if jsonOutput {
		fmt.Fprintln(w, string(data))
		return
	}
	ev, err := events.DecodePipelineParsed(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skipping malformed event: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%s %s %s nodes=%d edges=%d dropped=%d %s\n",
		ev.ParsedAt.Local().Format("15:04:05"),
		ev.Transport,
		ev.RequestID,
		ev.Result.NumNodes,
		ev.Result.NumEdges,
		ev.Dropped,
		dagLabel(ev.Result.IsDAG),
	)
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS URL (defaults to PIPELINES_NATS_URL or the active remote)")
}
