// Package main provides the civicdesk command line client.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   "civicdesk",
		Short: "Browse and maintain barangay records",
		Long: `civicdesk talks to the records service and lets a desk operator list,
filter, search, export, edit, create and delete civic records: residents,
youth profiles, households, the treasury ledgers, blotter reports,
certificates, government documents, the logbook, programs and officials.

Configuration is read from $XDG_CONFIG_HOME/civicdesk/config.yaml and
CIVICDESK_* environment variables; flags win over both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/civicdesk/config.yaml)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&g.apiURL, "api-url", "", "records service base URL")
	pf.StringVar(&g.user, "user", "", "operator name recorded in the audit trail")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	cmd.AddCommand(
		entitiesCmd(),
		listCmd(&g),
		summaryCmd(&g),
		dashboardCmd(&g),
		exportCmd(&g),
		deleteCmd(&g),
		editCmd(&g),
		createCmd(&g),
		auditCmd(&g),
		browseCmd(&g),
	)
	return cmd
}
