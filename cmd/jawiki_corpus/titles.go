package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

var titlesCommand = &cobra.Command{
	Use:   "titles",
	Short: "Build the article title dictionary",
	Long: `Collects the title of every article that passes the quality filter together with its
normalized form (NFKC, parenthesized qualifiers removed) and writes them to
jawiki_titles_<version>.csv. An existing file is reused. With a database configured
the dictionary is stored there as well.`,
	RunE: runTitlesCmd,
}

var titlesForce bool

func init() {
	addWorkerFlags(titlesCommand.Flags())
	titlesCommand.Flags().BoolVarP(&titlesForce, "force", "f", false, "Rebuild the dictionary even if the file exists")
	rootCmd.AddCommand(titlesCommand)
}

func runTitlesCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return e.withVersion(ctx, func(r *pipeline.Runner, version string) error {
		_, err := r.Titles(ctx, version, titlesForce)
		return err
	})
}
