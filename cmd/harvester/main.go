// harvester runs DJE gazette harvests from the command line.
//
// Usage:
//
//	harvester run --from=13/11/2024 --to=14/11/2024 [--profile=rpv-inss] [--report=out.xlsx]
//	harvester export --from=01/11/2024 --to=30/11/2024 --out=novembro.xlsx
//	harvester enqueue --from=13/11/2024 --to=13/11/2024
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest RPV cases from the São Paulo electronic gazette (DJE)",
	Long:  "harvester searches the DJE for a date range, downloads every result\ndocument once, extracts RPV case records and stores them in postgres.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
