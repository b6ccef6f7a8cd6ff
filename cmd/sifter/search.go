package sifter

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soundprediction/sifter/pkg/search"
	"github.com/soundprediction/sifter/pkg/types"
	"github.com/soundprediction/sifter/pkg/utils"
)

var searchCmd = &cobra.Command{
	Use:   "search <entity>",
	Short: "Search the records of an entity",
	Long: `Search the records of an entity with a criteria list.

The list is given with --criteria in its serialized form
("field||operator||value" joined by "//"). --add appends one criterion built
from --operator and --value; --remove drops the criterion at an index. The
resulting list is printed so it can be passed back on the next call.`,
	Example: `  sifter search ticket --criteria 'status||8||1;2'
  sifter search ticket --add priority --operator 4 --value 3
  sifter search ticket --criteria 'status||8||1//priority||4||3' --remove 0`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchCriteria string
	searchAdd      string
	searchOperator string
	searchValue    string
	searchRemove   int
	searchLimit    int
	searchOffset   int
	searchExport   string
	searchSeed     string
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchCriteria, "criteria", "", "Serialized criteria list")
	searchCmd.Flags().StringVar(&searchAdd, "add", "", "Field of a criterion to append")
	searchCmd.Flags().StringVar(&searchOperator, "operator", "", "Operator code of the appended criterion")
	searchCmd.Flags().StringVar(&searchValue, "value", "", "Value of the appended criterion (ids joined by ';' for lists)")
	searchCmd.Flags().IntVar(&searchRemove, "remove", -1, "Index of a criterion to remove")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of records to print")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Number of matching records to skip")
	searchCmd.Flags().StringVar(&searchExport, "export", "", "Write the matching page to a parquet file")
	searchCmd.Flags().StringVar(&searchSeed, "import", "", "Import document loaded before searching")
	searchCmd.MarkFlagsMutuallyExclusive("add", "remove")
}

func runSearch(cmd *cobra.Command, args []string) error {
	entity := args[0]
	a, err := openApp(cmd, searchSeed)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	params := map[string]string{search.ParamCriteria: searchCriteria}
	switch {
	case searchAdd != "":
		view, err := a.client.Fields(ctx, entity)
		if err != nil {
			return err
		}
		params[search.ParamAction] = search.ActionAdd
		for k, v := range selectionParams(view, searchAdd, searchOperator, searchValue) {
			params[k] = v
		}
	case searchRemove >= 0:
		params[search.ParamAction] = fmt.Sprint(searchRemove)
	}

	page := a.client.ClampPage(types.Page{Limit: searchLimit, Offset: searchOffset})
	result, err := a.client.Search(ctx, entity, params, page)
	if err != nil {
		return err
	}

	plural := entity
	for _, e := range a.client.Entities() {
		if e.Name == entity {
			plural = e.Plural
		}
	}
	printResult(cmd.OutOrStdout(), result, plural)

	if searchExport != "" {
		if err := utils.WriteRecordsParquet(searchExport, result.Records); err != nil {
			return err
		}
		a.logger.Info("Exported records", "path", searchExport, "count", len(result.Records))
	}
	return nil
}

// selectionParams fills the value slot matching the field's type. Fields
// that are not in the view get no value and are ignored by the session.
func selectionParams(view *search.SelectorView, field, operator, value string) map[string]string {
	params := map[string]string{
		search.ParamSelector: field,
		search.ParamOperator: operator,
	}
	for _, f := range view.Fields {
		if f.Name != field {
			continue
		}
		t, _ := types.ParseFieldType(f.Type)
		switch t {
		case types.FieldNumeric:
			params[search.ParamValueFloat] = value
		case types.FieldBoolean:
			params[search.ParamValueBool] = value
		case types.FieldDate, types.FieldDateTime:
			params[search.ParamValueDate] = value
		case types.FieldTime:
			params[search.ParamValueTime] = value
		case types.FieldChoice, types.FieldMultiChoice:
			params[search.ParamValueList] = value
		default:
			params[search.ParamValueStr] = value
		}
	}
	return params
}

func printResult(w io.Writer, result *search.Result, plural string) {
	fmt.Fprintf(w, "Criteria: %s\n", result.Criteria)
	for _, d := range result.Descriptions {
		fmt.Fprintf(w, "  [%d] %s\n", d.Index, d)
	}
	fmt.Fprintln(w)
	for _, r := range result.Records {
		fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Display)
	}
	fmt.Fprintf(w, "\nTotal number of %s: %d\n", plural, result.Count)
}
