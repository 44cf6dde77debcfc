package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogsync/catalogsync/internal/engine"
	"github.com/catalogsync/catalogsync/internal/report"
	"github.com/catalogsync/catalogsync/internal/review"
	"github.com/catalogsync/catalogsync/internal/schema"
)

var (
	keysDomain  string
	keysDryRun  bool
	keysReview  bool
	keysReport  string
	keysPlanOut string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Infer primary and foreign keys and write them to the catalog",
	Long: `Read the foreign key table of the source database, infer the primary and
foreign keys of every dataset in a catalog domain and replace each dataset's
schemaMetadata with a copy carrying those keys.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := requireDomain(keysDomain, appConfig.Keys.Domain)
		if err != nil {
			return err
		}

		if !keysDryRun {
			unlock, err := acquireLock(domain)
			if err != nil {
				return err
			}
			defer unlock()
		}

		ctx := context.Background()
		eng, closeEngine := newEngine(ctx)
		defer closeEngine()

		var run *report.Run
		switch {
		case keysDryRun:
			plan, err := eng.PlanKeys(ctx, domain)
			if err != nil {
				return err
			}
			if keysPlanOut != "" {
				if err := schema.WritePlans(keysPlanOut, plan.KeyPlans()); err != nil {
					return fmt.Errorf("writing plan: %w", err)
				}
				fmt.Printf("Key plan written to %s\n", keysPlanOut)
			}
			run = plan.Report()

		case keysReview:
			var plan *engine.Plan
			confirmed, err := review.Run(func() ([]schema.KeyPlan, error) {
				p, err := eng.PlanKeys(ctx, domain)
				if err != nil {
					return nil, err
				}
				plan = p
				return p.KeyPlans(), nil
			})
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled, nothing written.")
				return nil
			}
			run, err = eng.ApplyKeys(ctx, plan)
			if err != nil {
				return err
			}

		default:
			run, err = eng.SyncKeys(ctx, domain)
			if err != nil {
				return err
			}
		}

		return finishRun(run, keysReport)
	},
}

// finishRun prints the run and writes it to path when given.
func finishRun(run *report.Run, path string) error {
	fmt.Print(report.FormatText(run))
	if path != "" {
		if err := report.Write(run, path); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", path)
	}
	return nil
}

func init() {
	keysCmd.Flags().StringVar(&keysDomain, "domain", "", "catalog domain (default: keys.domain from config)")
	keysCmd.Flags().BoolVar(&keysDryRun, "dry-run", false, "infer keys without writing to the catalog")
	keysCmd.Flags().BoolVar(&keysReview, "review", false, "review the inferred keys before writing")
	keysCmd.Flags().StringVar(&keysReport, "report", "", "write the run report to this file (.json, .yaml or .txt)")
	keysCmd.Flags().StringVar(&keysPlanOut, "plan-out", "", "with --dry-run, write the key plan as YAML to this file")
	keysCmd.MarkFlagsMutuallyExclusive("dry-run", "review")
	rootCmd.AddCommand(keysCmd)
}
