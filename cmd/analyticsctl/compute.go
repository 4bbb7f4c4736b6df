package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func (a *app) computeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Print the dashboard metrics of an order dump as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.computeFromFlags(cmd)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(result)
		},
	}
	addQueryFlags(cmd)
	cmd.Flags().Bool("pretty", false, "Indent the JSON output")
	return cmd
}
