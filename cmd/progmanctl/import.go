package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <projectId> <file.xlsx>",
	Short: "Import schedule rows from a spreadsheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := apiClient().UploadExcel(cmd.Context(), projectID, filepath.Base(args[1]), f)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}

		fmt.Printf("imported %d rows from sheet %q (%d updated)\n", res.Imported, res.Sheet, res.UpdatedCount)
		cols := make([]string, 0, len(res.Columns))
		for name := range res.Columns {
			cols = append(cols, name)
		}
		sort.Slice(cols, func(i, j int) bool { return res.Columns[cols[i]] < res.Columns[cols[j]] })
		for _, name := range cols {
			fmt.Printf("  column %d -> %s\n", res.Columns[name], name)
		}
		if res.ObjectKey != "" {
			fmt.Printf("archived as %s\n", res.ObjectKey)
		}
		return nil
	},
}

var importHistoryCmd = &cobra.Command{
	Use:   "history <projectId>",
	Short: "List past imports of a project, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		list, err := apiClient().ImportHistory(cmd.Context(), projectID, limit)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tFILE\tSHEET\tROWS")
		for _, r := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.FileName, r.Sheet, r.Imported)
		}
		return w.Flush()
	},
}

func init() {
	importHistoryCmd.Flags().Int("limit", 20, "maximum number of records")
	importCmd.AddCommand(importHistoryCmd)
}
