package main

import (
	"fmt"
	"os"
	"strings"

	"genfity-analytics-service/internal/report"
	"genfity-analytics-service/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the metrics of an order dump as csv, pdf or parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")
			format = strings.ToLower(strings.TrimSpace(format))

			switch format {
			case "csv", "pdf", "parquet":
			default:
				return fmt.Errorf("unsupported format %q (csv, pdf or parquet)", format)
			}

			result, err := a.computeFromFlags(cmd)
			if err != nil {
				return err
			}

			switch format {
			case "parquet":
				err = report.WriteParquetFile(out, result)
			case "csv":
				var body []byte
				body, err = report.ABCCSV(result.ABCProducts)
				if err == nil {
					err = os.WriteFile(out, body, 0o644)
				}
			case "pdf":
				var body []byte
				body, err = report.RenderPDF(result, report.PDFOptions{
					Title:    title,
					Location: utils.LoadLocation(a.v.GetString("timezone")),
				})
				if err == nil {
					err = os.WriteFile(out, body, 0o644)
				}
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}

			a.log.Info("report written", zap.String("format", format), zap.String("path", out))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().String("format", "csv", "Output format: csv, pdf or parquet")
	cmd.Flags().String("out", "", "Output file (required)")
	cmd.Flags().String("title", "", "PDF title")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
