package cmd

import (
	"errors"

	"github.com/example/readbot/internal/excel"
	"github.com/spf13/cobra"
)

var importBooksCmd = &cobra.Command{
	Use:   "import-books",
	Short: "Add books from an .xlsx or .csv file to a profile's shelf",
	Long: `Reads one book per row. Columns default to A=Title, B=Author, C=Pages, D=Status
with a header in the first row. Status may be want, reading, finished or paused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("profile")
		file, _ := cmd.Flags().GetString("file")
		sheet, _ := cmd.Flags().GetString("sheet")
		startRow, _ := cmd.Flags().GetInt("start-row")
		if userID == "" || file == "" {
			return errors.New("--profile and --file are required")
		}

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		svc, err := newJournal(store)
		if err != nil {
			return err
		}
		if _, err := svc.Profile(ctx, userID); err != nil {
			return err
		}

		importCfg := excel.DefaultImportConfig()
		importCfg.FilePath = file
		importCfg.SheetName = sheet
		importCfg.StartRow = startRow

		res, err := excel.ImportBooks(ctx, svc, userID, importCfg, logger.WithField("component", "import"))
		if err != nil {
			return err
		}

		cmd.Printf("Processed: %d, created: %d, skipped: %d, errors: %d\n",
			res.TotalProcessed, res.Created, res.Skipped, len(res.Errors))
		for _, e := range res.Errors {
			cmd.Println(" ", e)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importBooksCmd)
	importBooksCmd.Flags().String("profile", "", "profile id to import into")
	importBooksCmd.Flags().String("file", "", "path to the .xlsx or .csv file")
	importBooksCmd.Flags().String("sheet", "", "sheet name (default: active sheet)")
	importBooksCmd.Flags().Int("start-row", 2, "first data row, 1-based")
}
