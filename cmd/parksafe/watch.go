package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/session"
	"github.com/spf13/cobra"
)

func newWatchCmd(g *globals) *cobra.Command {
	var history int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream messages and active alerts until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cfg, err := g.signedIn()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := session.Start(ctx, c, session.Config{
				MessagePageSize: cfg.MessagePageSize,
				AlertLimit:      cfg.AlertLimit,
			})
			if err != nil {
				return err
			}
			defer s.Teardown()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching as %s (Ctrl-C to stop)\n", displayName(s.Profile))
			return watch(ctx, out, s, history)
		},
	}

	cmd.Flags().IntVar(&history, "history", 10, "messages to print on start")
	return cmd
}

// watch prints the current state of both feeds, then every change
func watch(ctx context.Context, out io.Writer, s *session.Session, history int) error {
	messages := newPrinter(formatMessage)
	alerts := newPrinter(formatAlert)

	msgState := s.Messages.State()
	if msgState.Err != nil {
		fmt.Fprintf(out, "⚠️  messages unavailable: %v\n", msgState.Err)
	}
	messages.prime(msgState.Records, history, out)

	alertState := s.Alerts.State()
	if alertState.Err != nil {
		fmt.Fprintf(out, "⚠️  alerts unavailable: %v\n", alertState.Err)
	}
	alerts.prime(alertState.Records, len(alertState.Records), out)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Messages.Changes():
			messages.print(s.Messages.State().Records, out)
		case <-s.Alerts.Changes():
			alerts.print(s.Alerts.State().Records, out)
		}
	}
}

// printer prints each record once, oldest first
type printer[T feed.Record] struct {
	format func(T) string
	seen   map[string]bool
}

func newPrinter[T feed.Record](format func(T) string) *printer[T] {
	return &printer[T]{format: format, seen: make(map[string]bool)}
}

// prime prints the newest n records and marks the rest as seen
func (p *printer[T]) prime(records []T, n int, out io.Writer) {
	for i, rec := range records {
		if i >= n {
			p.seen[rec.Key()] = true
		}
	}
	p.print(records, out)
}

func (p *printer[T]) print(records []T, out io.Writer) {
	// records are newest first
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		// partial records are printed once their joined fields arrive
		if p.seen[rec.Key()] || !rec.Complete() {
			continue
		}
		p.seen[rec.Key()] = true
		fmt.Fprintln(out, p.format(rec))
	}
}
