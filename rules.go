package main

import (
	"github.com/Ezekail/rostercrawl/parse"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in extraction rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := parse.DefaultRegistry()
		if err != nil {
			return err
		}
		printRules(cmd.OutOrStdout(), reg.Entries())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
