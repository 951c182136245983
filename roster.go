package main

import (
	"github.com/Ezekail/rostercrawl/engine"
	"github.com/Ezekail/rostercrawl/storage"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var rosterSchool string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Fetch roster pages and extract junior faculty names",
	RunE: func(cmd *cobra.Command, args []string) error {
		links, err := storage.LoadLinks(cfg.Paths.Links)
		if err != nil {
			return err
		}
		store, err := storage.New(cfg.Paths.PageDir, cfg.Paths.ParseDir)
		if err != nil {
			return err
		}
		fetcher, err := newFetcher(cfg.Fetch, logger)
		if err != nil {
			return err
		}

		driver, err := engine.NewDriver(
			engine.WithFetcher(fetcher),
			engine.WithStore(store),
			engine.WithLogger(logger),
			engine.WithMaxPages(cfg.Crawl.MaxPages),
			engine.WithSchool(rosterSchool),
		)
		if err != nil {
			return err
		}

		outcomes, err := driver.Run(cmd.Context(), links)
		printOutcomes(cmd.OutOrStdout(), outcomes)
		logFailures(logger, outcomes)
		if err != nil {
			return eris.Wrap(err, "roster run stopped")
		}
		return nil
	},
}

func init() {
	rosterCmd.Flags().String("links", "", "faculty page links JSON (institution -> url)")
	rosterCmd.Flags().String("pagedir", "", "directory for raw pages and fetch metadata")
	rosterCmd.Flags().String("parsedir", "", "directory for roster JSON files")
	rosterCmd.Flags().Int("max-pages", 0, "page ceiling per institution")
	rosterCmd.Flags().StringVar(&rosterSchool, "school", "", "only crawl this institution")
	rootCmd.AddCommand(rosterCmd)
}
