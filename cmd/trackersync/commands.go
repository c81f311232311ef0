package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

func newSyncCmd(c *cli) *cobra.Command {
	var filter model.SyncFilter

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass over linked tasks",
		Long: `Run one sync pass now. Each linked task is compared with its remote issue
and the newer side wins. Flags narrow the pass; without flags every enabled
connection is synced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.engine.SyncNow(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), toSyncOutput(result))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d, pulled %d, pushed %d\n", result.Scanned, result.Pulled, result.Pushed)
			for _, msg := range result.Errors {
				fmt.Fprintf(out, "  error: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.ConnectionID, "connection", "", "only sync links of this connection")
	cmd.Flags().StringVar(&filter.TaskID, "task", "", "only sync this task")
	cmd.Flags().StringVar(&filter.ProjectID, "project", "", "only sync tasks of this project")
	return cmd
}

func newConnectCmd(c *cli) *cobra.Command {
	var in application.ConnectInput
	var provider string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Verify a credential and connect its workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			in.Provider = model.Provider(provider)
			conn, err := a.connections.Connect(cmd.Context(), in)
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), toConnectionOutput(conn))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected %s workspace %q as %s (id %s)\n",
				conn.Provider, conn.WorkspaceName, conn.AccountLabel, conn.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.APIKey, "api-key", "", "remote API key or OAuth token (required)")
	cmd.Flags().StringVar(&in.Label, "label", "", "account label; defaults to the remote account email")
	cmd.Flags().StringVar(&provider, "provider", string(model.ProviderLinear), "remote provider")
	_ = cmd.MarkFlagRequired("api-key")
	return cmd
}

func newConnectionsCmd(c *cli) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "connections",
		Short: "List connected workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			conns, err := a.connections.ListConnections(cmd.Context(), model.Provider(provider))
			if err != nil {
				return err
			}

			if c.jsonOutput {
				out := make([]connectionOutput, 0, len(conns))
				for _, conn := range conns {
					out = append(out, toConnectionOutput(conn))
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			if len(conns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No connections.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tWORKSPACE\tACCOUNT\tLAST SYNC")
			for _, conn := range conns {
				lastSync := "never"
				if conn.LastSyncedAt != nil {
					lastSync = conn.LastSyncedAt.Local().Format(time.DateTime)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", conn.ID, conn.Provider, conn.WorkspaceName, conn.AccountLabel, lastSync)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "only list connections of this provider")
	return cmd
}

func newDisconnectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <connection-id>",
		Short: "Remove a connection, its mappings, links and stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			removed, err := a.connections.Disconnect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if c.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"removed": removed})
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed connection %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No connection %s\n", args[0])
			}
			return nil
		},
	}
}
