package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"progman-api/internal/dto"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "List and manage projects",
	Args:    cobra.NoArgs,
	RunE:    runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project seeded with the template rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := dto.CreateProjectRequest{Name: args[0]}
		if base, _ := cmd.Flags().GetString("base-date"); base != "" {
			req.BaseDate = &base
		}
		p, err := apiClient().CreateProject(cmd.Context(), req)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(p)
		}
		fmt.Printf("created project %d %q\n", p.ID, p.Name)
		return nil
	},
}

var projectsRebaseCmd = &cobra.Command{
	Use:   "rebase <projectId> <base-date>",
	Short: "Set a project's base date, shifting every row by the difference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		includeActual, _ := cmd.Flags().GetBool("include-actual")
		res, err := apiClient().UpdateProject(cmd.Context(), id, dto.UpdateProjectRequest{
			BaseDate:      dto.Some(args[1]),
			IncludeActual: includeActual,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("shifted %d rows by %d days\n", res.ShiftedRows, res.ShiftedDays)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <projectId>",
	Short: "Delete a project and everything recorded under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := apiClient().DeleteProject(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("deleted project %d\n", id)
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().String("base-date", "", "base date (YYYY-MM-DD)")
	projectsRebaseCmd.Flags().Bool("include-actual", false, "shift actual dates too")

	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsRebaseCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	projects, err := apiClient().ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(projects)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBASE DATE\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, deref(p.BaseDate), p.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
