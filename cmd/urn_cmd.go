package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogsync/catalogsync/internal/urn"
)

var urnCmd = &cobra.Command{
	Use:         "urn",
	Short:       "Inspect dataset URNs",
	Annotations: map[string]string{skipConfig: "true"},
}

var urnTableCmd = &cobra.Command{
	Use:         "table <urn>",
	Short:       "Print the table name embedded in a dataset URN",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := urn.TableName(args[0])
		if err != nil {
			return err
		}
		fmt.Println(table)
		return nil
	},
}

var urnParseCmd = &cobra.Command{
	Use:         "parse <urn>",
	Short:       "Split a dataset URN into its parts",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := urn.ParseDataset(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("platform: %s\n", ds.Platform)
		fmt.Printf("path:     %s\n", ds.Path)
		fmt.Printf("schema:   %s\n", ds.Schema())
		fmt.Printf("table:    %s\n", ds.Table())
		fmt.Printf("env:      %s\n", ds.Env)
		return nil
	},
}

func init() {
	urnCmd.AddCommand(urnTableCmd)
	urnCmd.AddCommand(urnParseCmd)
	rootCmd.AddCommand(urnCmd)
}
