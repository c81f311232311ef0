// Command trackersync keeps local tasks in sync with a remote issue tracker.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/trackersync/internal/config"
	"github.com/ericfisherdev/trackersync/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, c := newRootCmd()
	err := root.ExecuteContext(ctx)
	c.close()

	if err != nil {
		if c.jsonOutput {
			_ = writeJSON(os.Stderr, map[string]any{"error": true, "message": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand.
type cli struct {
	cfg        *config.Config
	logCloser  io.Closer
	jsonOutput bool
}

func (c *cli) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:   "trackersync",
		Short: "Synchronize local tasks with a remote issue tracker",
		Long: `trackersync links local tasks to remote issues and keeps them in sync.

QUICK START:
  trackersync connect --api-key lin_api_...   # Verify and store a credential
  trackersync connections                     # List connected workspaces
  trackersync serve                           # Run the API and the poller
  trackersync sync --project <id>             # Run one sync pass now

Configuration is read from TRACKERSYNC_* environment variables and the
optional file named by TRACKERSYNC_CONFIG.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg

			logger, closer := logging.New(logging.Options{
				Format:     cfg.LogFormat,
				Level:      cfg.LogLevel,
				File:       cfg.LogFile,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAgeDays: cfg.LogMaxAgeDays,
			})
			slog.SetDefault(logger)
			c.logCloser = closer
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "write machine-readable JSON output")

	root.AddCommand(
		newServeCmd(c),
		newSyncCmd(c),
		newConnectCmd(c),
		newConnectionsCmd(c),
		newDisconnectCmd(c),
	)

	return root, c
}
