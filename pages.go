package main

import (
	"github.com/Ezekail/rostercrawl/engine"
	"github.com/Ezekail/rostercrawl/storage"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var pagesSchool string

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Save the first faculty page of every institution without parsing",
	RunE: func(cmd *cobra.Command, args []string) error {
		links, err := storage.LoadLinks(cfg.Paths.Links)
		if err != nil {
			return err
		}
		store, err := storage.New(cfg.Paths.PageDir, "")
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
			engine.WithSchool(pagesSchool),
		)
		if err != nil {
			return err
		}

		outcomes, err := driver.FetchPages(cmd.Context(), links)
		printOutcomes(cmd.OutOrStdout(), outcomes)
		logFailures(logger, outcomes)
		if err != nil {
			return eris.Wrap(err, "pages run stopped")
		}
		return nil
	},
}

func init() {
	pagesCmd.Flags().String("links", "", "faculty page links JSON (institution -> url)")
	pagesCmd.Flags().String("outdir", "", "directory for raw pages and fetch metadata")
	pagesCmd.Flags().StringVar(&pagesSchool, "school", "", "only fetch this institution")
	rootCmd.AddCommand(pagesCmd)
}
