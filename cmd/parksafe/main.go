// Command parksafe is a terminal client for the ParkSafe API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/parksafe/parksafe/internal/client"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// globals are the persistent flags shared by every command
type globals struct {
	configPath string
	server     string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:          "parksafe",
		Short:        "ParkSafe: messages, emergency alerts and live locations for park visitors",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath(), "path to the CLI config file")
	cmd.PersistentFlags().StringVar(&g.server, "server", "", "API base URL (overrides the config file)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd(g))
	cmd.AddCommand(newLogoutCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newSendCmd(g))
	cmd.AddCommand(newBroadcastCmd(g))
	cmd.AddCommand(newResolveCmd(g))
	cmd.AddCommand(newLocateCmd(g))
	cmd.AddCommand(newNearbyCmd(g))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "parksafe %s (commit: %s)\n", Version, Commit)
		},
	}
}

// config loads the config file and applies --server
func (g *globals) config() (*cliConfig, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.server != "" {
		cfg.Server = g.server
	}
	return cfg, nil
}

// signedIn returns a client carrying the stored token
func (g *globals) signedIn() (*client.Client, *cliConfig, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	tokens, err := openTokens()
	if err != nil {
		return nil, nil, err
	}
	token, err := tokens.Get(cfg.Server)
	if err != nil {
		return nil, nil, err
	}

	c := client.New(cfg.Server)
	c.SetToken(token)
	return c, cfg, nil
}

func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(context.Background(), newRootCmd()))
}
