package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/catalogsync/catalogsync/internal/catalog"
	"github.com/catalogsync/catalogsync/internal/export"
)

var (
	exportDomain   string
	exportPlatform string
	exportOutput   string
	exportS3       bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export table and column descriptions of a domain to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := requireDomain(exportDomain, appConfig.Keys.Domain)
		if err != nil {
			return err
		}
		ctx := context.Background()

		exp := export.New(catalog.New(appConfig.Catalog, appLogger), appLogger)
		exp.Platform = exportPlatform
		rows, err := exp.Rows(ctx, domain)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, rows); err != nil {
			return err
		}

		output := exportOutput
		if output == "" {
			output = domain + ".csv"
		}
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Printf("%d rows written to %s\n", len(rows), output)

		if exportS3 {
			ec := appConfig.Export
			if ec.S3Bucket == "" {
				return fmt.Errorf("--s3 needs export.s3_bucket in the config")
			}
			client, err := export.NewS3Client(ctx, ec.Profile, ec.Region)
			if err != nil {
				return err
			}
			uri, err := export.NewUploader(client, ec.S3Bucket, ec.S3Prefix).Upload(ctx, filepath.Base(output), buf.Bytes())
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded to %s\n", uri)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDomain, "domain", "", "catalog domain (default: keys.domain from config)")
	exportCmd.Flags().StringVar(&exportPlatform, "platform", "", "only export datasets of this platform")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "CSV file to write (default: <domain>.csv)")
	exportCmd.Flags().BoolVar(&exportS3, "s3", false, "also upload the CSV to export.s3_bucket")
	rootCmd.AddCommand(exportCmd)
}
