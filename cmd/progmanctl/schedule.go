package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"progman-api/internal/dto"
	"progman-api/internal/syncstore"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Aliases: []string{"schedules"},
	Short:   "Show and edit schedule rows",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list <projectId>",
	Short: "List a project's rows grouped by category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		rows, err := apiClient().ListSchedules(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(rows)
		}
		return printGroups(syncstore.GroupRows(rows))
	},
}

var scheduleSetCmd = &cobra.Command{
	Use:   "set <projectId> <rowId>",
	Short: "Edit one row; an empty value clears a field",
	Long: `Edit one schedule row. Only the flags given are sent, so
"--owner ''" clears the owner while leaving every other column alone.
A duration of 0 clears the duration and the derived end date.`,
	Args: cobra.ExactArgs(2),
	RunE: runScheduleSet,
}

var scheduleShiftCmd = &cobra.Command{
	Use:   "shift <projectId> <days>",
	Short: "Move every dated row of a project by a number of days",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		var days int
		if _, err := fmt.Sscan(args[1], &days); err != nil {
			return fmt.Errorf("invalid day count %q", args[1])
		}
		includeActual, _ := cmd.Flags().GetBool("include-actual")
		res, err := apiClient().ShiftDates(cmd.Context(), projectID, dto.ShiftDatesRequest{
			DeltaDays:     days,
			IncludeActual: includeActual,
		})
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("shifted %d rows by %d days\n", res.ShiftedRows, res.DeltaDays)
		return nil
	},
}

var scheduleMilestonesCmd = &cobra.Command{
	Use:   "milestones <projectId>",
	Short: "Show milestone rows with their estimate and delay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		list, err := apiClient().ListMilestoneEstimates(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		return printMilestones(list)
	},
}

var scheduleEstimateCmd = &cobra.Command{
	Use:   "estimate <projectId> <rowId> [date]",
	Short: "Set a milestone's estimated date; omit the date to clear it",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID(args[0])
		if err != nil {
			return err
		}
		rowID, err := parseID(args[1])
		if err != nil {
			return err
		}
		var req dto.UpsertMilestoneEstimateRequest
		if len(args) == 3 && args[2] != "" {
			req.EstimateDate = &args[2]
		}
		list, err := apiClient().UpsertMilestoneEstimate(cmd.Context(), projectID, rowID, req)
		if err != nil {
			return err
		}
		return printMilestones(list)
	},
}

func init() {
	addScheduleSetFlags(scheduleSetCmd)

	scheduleShiftCmd.Flags().Bool("include-actual", false, "shift actual dates too")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleSetCmd)
	scheduleCmd.AddCommand(scheduleShiftCmd)
	scheduleCmd.AddCommand(scheduleMilestonesCmd)
	scheduleCmd.AddCommand(scheduleEstimateCmd)
}

func addScheduleSetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("category", "", "category")
	f.String("item", "", "item")
	f.String("owner", "", "owner")
	f.String("start", "", "planned start date (YYYY-MM-DD)")
	f.Int("duration", 0, "planned duration in days")
	f.Float64("progress", 0, "progress percentage")
	f.String("actual-start", "", "actual start date (YYYY-MM-DD)")
	f.Int("actual-duration", 0, "actual duration in days")
	f.Int("sort-order", 0, "position within the category")
	f.Duration("wait", 10*time.Second, "how long to wait for the save")
}

// runScheduleSet sends the edit through the reconciliation store so the
// optimistic row is printed together with the saved one.
func runScheduleSet(cmd *cobra.Command, args []string) error {
	projectID, err := parseID(args[0])
	if err != nil {
		return err
	}
	rowID, err := parseID(args[1])
	if err != nil {
		return err
	}
	req, err := updateRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	api := apiClient()
	store := syncstore.NewStore(api, logger)
	defer store.Close()

	if err := store.Load(cmd.Context(), projectID); err != nil {
		return err
	}
	done, err := store.ApplyLocalEdit(rowID, req)
	if err != nil {
		return err
	}
	optimistic, _ := store.Row(rowID)

	wait, _ := cmd.Flags().GetDuration("wait")
	ctx, cancel := context.WithTimeout(cmd.Context(), wait)
	defer cancel()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("save row %d: %w", rowID, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("save row %d: %w", rowID, ctx.Err())
	}

	saved, err := api.ListSchedules(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	for _, row := range saved {
		if row.ID != rowID {
			continue
		}
		if flagJSON {
			return printJSON(row)
		}
		if deref(optimistic.EndDate) != deref(row.EndDate) {
			fmt.Fprintf(os.Stderr, "server end date %s differs from local %s\n", deref(row.EndDate), deref(optimistic.EndDate))
		}
		return printGroups([]syncstore.Group{{Category: row.Category, Rows: []dto.ScheduleResponse{row}}})
	}
	return fmt.Errorf("row %d disappeared after save", rowID)
}

func updateRequestFromFlags(cmd *cobra.Command) (*dto.UpdateScheduleRequest, error) {
	f := cmd.Flags()
	req := &dto.UpdateScheduleRequest{}

	str := func(name string) dto.Nullable[string] {
		if !f.Changed(name) {
			return dto.Nullable[string]{}
		}
		v, _ := f.GetString(name)
		if v == "" {
			return dto.Null[string]()
		}
		return dto.Some(v)
	}
	num := func(name string) dto.Nullable[int] {
		if !f.Changed(name) {
			return dto.Nullable[int]{}
		}
		v, _ := f.GetInt(name)
		return dto.Some(v)
	}

	req.Category = str("category")
	req.Item = str("item")
	req.Owner = str("owner")
	req.StartDate = str("start")
	req.Duration = num("duration")
	req.ActualStart = str("actual-start")
	req.ActualDuration = num("actual-duration")
	req.SortOrder = num("sort-order")
	if f.Changed("progress") {
		v, _ := f.GetFloat64("progress")
		req.Progress = dto.Some(v)
	}

	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

func printGroups(groups []syncstore.Group) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tITEM\tOWNER\tSTART\tDAYS\tEND\tPROGRESS\tACTUAL\tACTUAL END")
	for _, g := range groups {
		fmt.Fprintf(w, "[%s]\t\t\t\t\t\t\t\t\n", g.Category)
		for _, r := range g.Rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
				r.ID, r.Item, deref(r.Owner), deref(r.StartDate), deref(r.Duration),
				deref(r.EndDate), r.Progress, deref(r.ActualStart), deref(r.ActualEnd))
		}
	}
	return w.Flush()
}

func printMilestones(list []dto.MilestoneEstimateResponse) error {
	if flagJSON {
		return printJSON(list)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMILESTONE\tPLANNED\tESTIMATE\tDELAY")
	for _, m := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", m.ScheduleID, m.Item, deref(m.PlannedDate), deref(m.EstimateDate), m.Label)
	}
	return w.Flush()
}
