package sifter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var fieldsJSON bool

var fieldsCmd = &cobra.Command{
	Use:   "fields <entity>",
	Short: "List the searchable fields of an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, "")
		if err != nil {
			return err
		}
		defer a.Close()

		view, err := a.client.Fields(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if fieldsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		for _, f := range view.Fields {
			codes := make([]string, 0, len(view.Operators[f.Type]))
			for _, op := range view.Operators[f.Type] {
				codes = append(codes, op.Code+"="+op.Label)
			}
			fmt.Fprintf(out, "%-24s %-9s %-24s [%s]\n", f.Name, f.Type, f.Label, strings.Join(codes, ", "))
			if enc := f.Encoded(); enc != "" {
				fmt.Fprintf(out, "%24s %s\n", "", enc)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().BoolVar(&fieldsJSON, "json", false, "Print the selector view as JSON")
}
