package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"progman-api/internal/client"
	"progman-api/internal/dto"
	"progman-api/internal/syncstore"
)

var commentCmd = &cobra.Command{
	Use:     "comment",
	Aliases: []string{"comments"},
	Short:   "Dated status-report pages",
}

var commentPagesCmd = &cobra.Command{
	Use:   "pages <projectId>",
	Short: "List a project's comment pages, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		res, err := apiClient().ListPages(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		for _, p := range res.Pages {
			marker := " "
			if res.LatestDate != nil && *res.LatestDate == p.CommentDate {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, p.CommentDate)
		}
		return nil
	},
}

var commentNewPageCmd = &cobra.Command{
	Use:   "new-page <projectId> [date]",
	Short: "Create a comment page for a date (default today)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		date := time.Now().Format("2006-01-02")
		if len(args) == 2 {
			date = args[1]
		}
		page, err := apiClient().CreatePage(cmd.Context(), projectID, date)
		if client.IsConflict(err) {
			return fmt.Errorf("a page for %s already exists", date)
		}
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(page)
		}
		fmt.Printf("created page %s\n", page.CommentDate)
		return nil
	},
}

var commentDeletePageCmd = &cobra.Command{
	Use:   "delete-page <projectId> <date>",
	Short: "Delete a comment page with its comments and progress",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := apiClient().DeletePage(cmd.Context(), projectID, args[1]); err != nil {
			return err
		}
		fmt.Printf("deleted page %s\n", args[1])
		return nil
	},
}

var commentShowCmd = &cobra.Command{
	Use:   "show <projectId> <date>",
	Short: "Print a comment page in section order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		api := apiClient()
		sections, err := api.Sections(cmd.Context())
		if err != nil {
			return err
		}
		board := syncstore.NewCommentBoard(api, autosaveDelay(sections), logger)
		defer board.Close(context.Background())

		if err := board.Open(cmd.Context(), projectID, args[1]); err != nil {
			if client.IsNotFound(err) {
				return fmt.Errorf("no comment page for %s", args[1])
			}
			return err
		}
		return printBoard(board, sections)
	},
}

var commentPutCmd = &cobra.Command{
	Use:   "put <projectId> <date> <owner> <body>",
	Short: "Write one section's comment",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		date, owner, body := args[1], args[2], args[3]

		board := syncstore.NewCommentBoard(apiClient(), 0, logger)
		if err := board.Open(cmd.Context(), projectID, date); err != nil {
			return err
		}
		if err := board.Edit(owner, body); err != nil {
			return err
		}
		if err := board.Close(cmd.Context()); err != nil {
			return err
		}
		if err := board.Err(); err != nil {
			return err
		}
		fmt.Printf("saved %s for %s\n", owner, date)
		return nil
	},
}

var commentStatusCmd = &cobra.Command{
	Use:   "status <projectId> <date> <category> <smooth|caution|danger|idle>",
	Short: "Set a category's progress status on a page",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		res, err := apiClient().UpsertProgress(cmd.Context(), projectID, dto.UpsertProgressRequest{
			ProgressDate: args[1],
			Category:     args[2],
			Status:       args[3],
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("%s is %s on %s\n", res.Category, res.Status, res.ProgressDate)
		return nil
	},
}

func init() {
	commentCmd.AddCommand(commentPagesCmd)
	commentCmd.AddCommand(commentNewPageCmd)
	commentCmd.AddCommand(commentDeletePageCmd)
	commentCmd.AddCommand(commentShowCmd)
	commentCmd.AddCommand(commentPutCmd)
	commentCmd.AddCommand(commentStatusCmd)
}

// autosaveDelay is the server's quiet period, or one second from older servers
func autosaveDelay(sections *dto.CommentSectionsResponse) time.Duration {
	if sections.AutosaveDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(sections.AutosaveDelayMS) * time.Millisecond
}

func printBoard(board *syncstore.CommentBoard, sections *dto.CommentSectionsResponse) error {
	if flagJSON {
		out := map[string]interface{}{"date": board.Date()}
		comments := map[string]string{}
		statuses := map[string]string{}
		for _, owner := range append(append([]string{sections.OverallKey}, sections.Left...), sections.Right...) {
			comments[owner] = board.Body(owner)
			if s := board.Status(owner); s != "" {
				statuses[owner] = s
			}
		}
		out["comments"] = comments
		out["progress"] = statuses
		return printJSON(out)
	}

	fmt.Printf("== %s ==\n", board.Date())
	fmt.Printf("%s: %s\n\n", sections.OverallKey, board.Body(sections.OverallKey))

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tSTATUS\tCOMMENT")
	for _, owner := range append(append([]string{}, sections.Left...), sections.Right...) {
		status := board.Status(owner)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", owner, status, board.Body(owner))
	}
	return w.Flush()
}
