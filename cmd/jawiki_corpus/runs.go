package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs from the database ledger",
	RunE:  runRunsCmd,
}

var (
	runsLimit      int
	runsAllVersion bool
)

func init() {
	runsCommand.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show")
	runsCommand.Flags().BoolVar(&runsAllVersion, "all", false, "Show runs of every version")
	rootCmd.AddCommand(runsCommand)
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if e.cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	ctx := cmd.Context()
	database, err := e.openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	version := e.cfg.Version
	if runsAllVersion || version == "latest" {
		version = ""
	}
	runs, err := database.ListRuns(ctx, version, runsLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tSTAGE\tSTATUS\tSTARTED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Version, r.Stage, r.Status, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Error)
	}
	return w.Flush()
}
