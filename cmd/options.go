package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var optionsJSON bool

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the selectable years, months and companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, _, err := newBuilder()
		if err != nil {
			return err
		}
		opts, err := builder.Options(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if optionsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(opts)
		}

		years := make([]string, len(opts.Years))
		for i, y := range opts.Years {
			years[i] = strconv.Itoa(y)
		}
		fmt.Fprintf(out, "Years:     %s\n", strings.Join(years, ", "))
		fmt.Fprintf(out, "Months:    %s\n", strings.Join(opts.Months, ", "))
		fmt.Fprintf(out, "Companies: %s\n", strings.Join(opts.Companies, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
	optionsCmd.Flags().BoolVar(&optionsJSON, "json", false, "Print as JSON")
}
