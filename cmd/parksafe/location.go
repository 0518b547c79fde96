package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/session"
	"github.com/spf13/cobra"
)

func newLocateCmd(g *globals) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Report your current position",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
				return fmt.Errorf("position %f,%f is out of range", lat, lng)
			}
			c, _, err := g.signedIn()
			if err != nil {
				return err
			}

			profile, err := c.UpdateLocation(cmd.Context(), lat, lng)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📍 %s at %.5f, %.5f\n", displayName(*profile), lat, lng)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude (required)")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude (required)")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lng")
	return cmd
}

func newNearbyCmd(g *globals) *cobra.Command {
	var (
		follow   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List other visitors who reported a position recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.signedIn()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !follow {
				users, err := c.ActiveUsers(cmd.Context())
				if err != nil {
					return err
				}
				return printNearby(out, users)
			}

			defer c.Close()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			locations, err := session.WatchLocations(ctx, c, interval)
			if err != nil {
				return err
			}
			defer locations.Stop()
			return watchNearby(ctx, out, locations)
		},
	}

	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep the list current until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", session.DefaultLocationRefresh, "refresh interval with --watch")
	return cmd
}

// watchNearby reprints the list whenever it changes
func watchNearby(ctx context.Context, out io.Writer, locations *session.Locations) error {
	show := func() {
		st := locations.State()
		if st.Err != nil {
			fmt.Fprintf(out, "⚠️  active visitors unavailable: %v\n", st.Err)
			return
		}
		fmt.Fprintf(out, "-- %s --\n", time.Now().Format("15:04:05"))
		printNearby(out, st.Users)
	}

	show()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-locations.Changes():
			show()
		}
	}
}

func printNearby(out io.Writer, users []model.ProfileResponse) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No active visitors.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tLAT\tLNG\tSEEN")
	for _, u := range users {
		if u.Location == nil {
			continue
		}
		seen := "-"
		if u.LastActive != nil {
			seen = formatAge(time.Since(*u.LastActive))
		}
		fmt.Fprintf(w, "%s\t%.5f\t%.5f\t%s\n", displayName(u), u.Location.Lat, u.Location.Lng, seen)
	}
	return w.Flush()
}
