package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogsync/catalogsync/internal/descriptions"
	"github.com/catalogsync/catalogsync/internal/engine"
)

var (
	describeSource string
	describeFile   string
	describeReport string
)

var describeCmd = &cobra.Command{
	Use:       "describe tables|columns",
	Short:     "Write table or column descriptions to the catalog",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(engine.DescribeTables), string(engine.DescribeColumns)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := engine.ParseDescriptionKind(args[0])
		if err != nil {
			return err
		}

		store, err := loadDescriptions()
		if err != nil {
			return err
		}

		unlock, err := acquireLock("describe-" + string(kind))
		if err != nil {
			return err
		}
		defer unlock()

		ctx := context.Background()
		eng, closeEngine := newEngine(ctx)
		defer closeEngine()

		run, err := eng.SyncDescriptions(ctx, kind, store)
		if err != nil {
			return err
		}
		return finishRun(run, describeReport)
	},
}

func loadDescriptions() (*descriptions.Store, error) {
	dc := appConfig.Descriptions
	switch describeSource {
	case "yaml":
		path := describeFile
		if path == "" {
			path = dc.File
		}
		if path == "" {
			return nil, fmt.Errorf("no descriptions file given (use --file or descriptions.file)")
		}
		return descriptions.LoadYAML(path)
	case "xlsx":
		path := describeFile
		if path == "" {
			path = dc.Workbook
		}
		if path == "" {
			return nil, fmt.Errorf("no workbook given (use --file or descriptions.workbook)")
		}
		return descriptions.LoadWorkbook(path, dc.Sheet, dc.StartMarker)
	default:
		return nil, fmt.Errorf("unknown description source %q (expected yaml or xlsx)", describeSource)
	}
}

func init() {
	describeCmd.Flags().StringVar(&describeSource, "source", "yaml", "where descriptions come from (yaml, xlsx)")
	describeCmd.Flags().StringVar(&describeFile, "file", "", "descriptions file (default from config)")
	describeCmd.Flags().StringVar(&describeReport, "report", "", "write the run report to this file")
	rootCmd.AddCommand(describeCmd)
}
