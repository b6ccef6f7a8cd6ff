package sifter

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import records from a JSON document",
	Long: `Import records from a JSON document keyed by entity name:

  {"ticket": [{"id": 1, "title": "Crash on save", "reporter": 2}]}

Documents that are not valid JSON are repaired when possible. Records are
upserted, so importing the same document twice is harmless. Use a persistent
driver (badger, sqlite, neo4j) for the records to outlive the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, "")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.client.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		names := make([]string, 0, len(report.ByEntity))
		for name := range report.ByEntity {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "%-20s %d\n", name, report.ByEntity[name])
		}
		fmt.Fprintf(out, "Imported %d records in %s\n", report.Records, report.Duration.Round(time.Millisecond))
		if report.Repaired {
			fmt.Fprintln(out, "The document was repaired before import.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
