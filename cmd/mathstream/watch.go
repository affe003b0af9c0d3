package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/calclabs/mathstream/pkg/mathstream/config"
	"github.com/calclabs/mathstream/pkg/mathstream/event"
	"github.com/calclabs/mathstream/pkg/mathstream/ingest"
	"github.com/calclabs/mathstream/pkg/mathstream/observability"
	"github.com/calclabs/mathstream/pkg/mathstream/stats"
	"github.com/calclabs/mathstream/pkg/mathstream/transport"
	"github.com/calclabs/mathstream/pkg/mathstream/wire"
)

func newWatchCmd() *cobra.Command {
	var (
		url      string
		userName string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to the event endpoint and print live statistics",
		Long: `Watch connects to the query event endpoint, requests the backlog,
and prints a statistics summary every time the event log changes.
It keeps running until interrupted, reconnecting automatically on
connection loss.`,
		Example: `  mathstream watch
  mathstream watch --url ws://analytics.example.com:4000
  mathstream watch -c mathstream.yaml --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if url != "" {
				settings.ServerURL = url
			}
			if userName != "" {
				settings.UserName = userName
			}
			return runWatch(settings, verbose)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Websocket endpoint (overrides config)")
	cmd.Flags().StringVar(&userName, "user-name", "", "Display name announced on connect")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

func runWatch(settings config.Settings, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	sessionID := uuid.New().String()[:8]
	userID := "user-" + uuid.New().String()[:9]

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger = observability.EnrichLogger(logger, sessionID, userID)
	metrics := observability.NewMetricsRecorder()
	spans := observability.NewSpanManager()

	ctx, sessionSpan := spans.StartSessionSpan(context.Background(), settings.ServerURL, sessionID)
	defer spans.EndSpanWithError(sessionSpan, nil)

	bus := event.NewBus(event.BusConfig{
		OnError: func(msg wire.Message, subscriberID string, err error) {
			logger.Warn("bus handler error",
				slog.String("kind", string(msg.Kind)),
				slog.String("subscriber", subscriberID),
				slog.String("error", err.Error()),
			)
		},
	})
	defer bus.Close()

	log := ingest.NewLog(ingest.Config{
		Capacity:       settings.LogCapacity,
		RecentCapacity: settings.RecentCapacity,
		Logger:         logger,
		Metrics:        metrics,
	})

	client := transport.NewClient(transport.Config{
		URL:            settings.ServerURL,
		UserID:         userID,
		UserName:       settings.UserName,
		PingInterval:   settings.PingInterval,
		ReconnectDelay: settings.ReconnectDelay,
		Logger:         logger,
		Metrics:        metrics,
	}, bus)
	defer client.Close()

	client.Connect()

	consumer := ingest.Attach(bus, client, log)
	defer consumer.Detach()

	// Recompute on a short tick rather than on every single event so a
	// burst of backlog events produces one summary, not a hundred.
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var lastVersion uint64
	for {
		select {
		case <-ticker.C:
			version := log.Version()
			if version == lastVersion {
				continue
			}
			lastVersion = version

			snapshot := computeSnapshot(ctx, logger, metrics, spans, log)
			printSummary(snapshot, client)
		case <-sigCh:
			fmt.Println("\nshutting down")
			return nil
		}
	}
}

// computeSnapshot recomputes statistics from the log, with the aggregate
// span, latency metric, and timing log line around the computation.
func computeSnapshot(ctx context.Context, logger *slog.Logger, metrics observability.MetricsRecorder, spans observability.SpanManager, log *ingest.Log) stats.Snapshot {
	events := log.Events()
	spanCtx, span := spans.StartAggregateSpan(ctx, len(events))

	done := observability.TimedOperation()
	snapshot := stats.Compute(events, time.Now())
	elapsedMs := done()

	observability.LogAggregation(logger, snapshot.TotalEvents, elapsedMs)
	metrics.RecordAggregation(spanCtx, snapshot.TotalEvents, time.Duration(elapsedMs*float64(time.Millisecond)))
	spans.EndSpanWithError(span, nil)

	return snapshot
}

func printSummary(s stats.Snapshot, client *transport.Client) {
	fmt.Printf("--- %s | %s | %d active users ---\n",
		s.ComputedAt.Format("15:04:05"), client.Status(), client.ActiveUsers())
	fmt.Printf("events: %d  formulas: %d  topics: %d  types: %d\n",
		s.TotalEvents, s.UniqueFormulas, s.UniqueTopics, s.UniqueFormulaTypes)

	if len(s.Trending) > 0 {
		parts := make([]string, 0, len(s.Trending))
		for _, t := range s.Trending {
			parts = append(parts, fmt.Sprintf("%s(%d)", t.Topic, t.Count))
		}
		fmt.Printf("trending: %s\n", strings.Join(parts, " "))
	}

	for _, b := range s.Complexity {
		fmt.Printf("  %-8s %d\n", b.Name, b.Count)
	}
}
