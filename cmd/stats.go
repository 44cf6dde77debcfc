package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	statsDomain  string
	statsSamples bool
	statsReport  string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Profile source tables and write column statistics",
	Long: `For every dataset in a catalog domain, compute min/max of numeric columns
and optionally distinct sample values of string columns, then write a
datasetProfile to the catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := requireDomain(statsDomain, appConfig.Stats.Domain)
		if err != nil {
			return err
		}

		unlock, err := acquireLock(domain)
		if err != nil {
			return err
		}
		defer unlock()

		ctx := context.Background()
		eng, closeEngine := newEngine(ctx)
		defer closeEngine()

		run, err := eng.SyncStats(ctx, domain, statsSamples)
		if err != nil {
			return err
		}
		return finishRun(run, statsReport)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsDomain, "domain", "", "catalog domain (default: stats.domain from config)")
	statsCmd.Flags().BoolVar(&statsSamples, "samples", false, "collect distinct sample values for string columns")
	statsCmd.Flags().StringVar(&statsReport, "report", "", "write the run report to this file")
	rootCmd.AddCommand(statsCmd)
}
