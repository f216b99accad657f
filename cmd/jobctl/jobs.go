package main

import (
	"bufio"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/jobtracker/internal/engine"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List jobs in board order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyFilter(a, status); err != nil {
				return err
			}
			if a.source == engine.SourceCache {
				fmt.Fprintln(cmd.ErrOrStderr(), "offline: showing cached jobs")
			}
			printJobs(cmd.OutOrStdout(), a.engine.Filtered())
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "only show jobs with this status")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, ok := a.engine.Job(args[0])
			if a.engine.Online() {
				fresh, err := a.engine.Refresh(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				job, ok = fresh, true
			}
			if !ok {
				return engine.ErrJobNotFound
			}
			printJob(cmd.OutOrStdout(), job)
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var status, salary string
	cmd := &cobra.Command{
		Use:   "add <company> <position>",
		Short: "Track a new job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.CreateJobInput{
				Company:  args[0],
				Position: args[1],
				Status:   models.JobStatus(status),
			}
			if salary != "" {
				in.SalaryExpectations = &salary
			}
			job, err := a.engine.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", job.Company, job.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "initial status (default wishlist)")
	cmd.Flags().StringVar(&salary, "salary", "", "salary expectations")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var company, position, salary string
	var clearSalary bool
	cmd := &cobra.Command{
		Use:   "update <job-id>",
		Short: "Edit a job's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.JobPatch
			flags := cmd.Flags()
			if flags.Changed("company") {
				patch.Company = &company
			}
			if flags.Changed("position") {
				patch.Position = &position
			}
			if flags.Changed("salary") {
				patch.SalaryExpectations = &salary
			}
			patch.ClearSalary = clearSalary

			job, err := a.engine.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", job.Company)
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "new company name")
	cmd.Flags().StringVar(&position, "position", "", "new position")
	cmd.Flags().StringVar(&salary, "salary", "", "new salary expectations")
	cmd.Flags().BoolVar(&clearSalary, "clear-salary", false, "remove salary expectations")
	cmd.MarkFlagsMutuallyExclusive("salary", "clear-salary")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "status <job-id> <status>",
		Short: "Move a job to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := models.ParseJobStatus(args[1])
			if err != nil {
				return err
			}
			job, ok := a.engine.Job(args[0])
			if !ok {
				return engine.ErrJobNotFound
			}
			if job.Status == status {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already %s\n", job.Company, status)
				return nil
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Move %s from %s to %s?", job.Company, job.Status, status)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if _, err := a.engine.Update(cmd.Context(), job.ID, models.JobPatch{Status: &status}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", job.Company, status)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <job-id>",
		Aliases: []string{"delete"},
		Short:   "Stop tracking a job and delete its notes",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	var status, to string
	cmd := &cobra.Command{
		Use:   "move <job-id> <position>",
		Short: "Move a job to a 1-based position within the current view",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFilter(a, status); err != nil {
				return err
			}
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 1 {
				return fmt.Errorf("position must be a positive number, got %q", args[1])
			}
			var target *models.JobStatus
			if to != "" {
				s, err := models.ParseJobStatus(to)
				if err != nil {
					return err
				}
				target = &s
			}

			ordered, err := moveWithin(a.engine.Filtered(), args[0], pos-1, target)
			if err != nil {
				return err
			}
			if err := a.engine.Reorder(cmd.Context(), ordered); err != nil {
				return err
			}
			printJobs(cmd.OutOrStdout(), a.engine.Filtered())
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "view to reorder within")
	cmd.Flags().StringVar(&to, "to", "", "also move the job to this status")
	return cmd
}

// moveWithin returns view with job id moved to index pos (clamped), optionally
// carrying a new status.
func moveWithin(view []models.Job, id string, pos int, status *models.JobStatus) ([]models.Job, error) {
	i := slices.IndexFunc(view, func(j models.Job) bool { return j.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("%w in the current view: %s", engine.ErrJobNotFound, id)
	}
	job := view[i]
	if status != nil {
		job.Status = *status
	}
	rest := slices.Delete(slices.Clone(view), i, i+1)
	return slices.Insert(rest, min(pos, len(rest)), job), nil
}

func newCountsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show how many jobs are in each status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printCounts(cmd.OutOrStdout(), a.engine.Counts())
			return nil
		},
	}
}

func applyFilter(a *app, raw string) error {
	f, err := engine.ParseFilter(raw)
	if err != nil {
		return err
	}
	return a.engine.SetActiveFilter(f)
}

// confirm asks a y/N question on the command's streams.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
