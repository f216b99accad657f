package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

var statusStyles = map[models.JobStatus]lipgloss.Style{
	models.StatusWishlist:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	models.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	models.StatusArchived:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func statusLabel(s models.JobStatus) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

func printJobs(w io.Writer, jobs []models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tCOMPANY\tPOSITION\tSTATUS\tSALARY\tNOTES")
	for i, j := range jobs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			i+1, j.ID, j.Company, j.Position, statusLabel(j.Status), salary(j), len(j.Comments))
	}
	tw.Flush()
}

func printJob(w io.Writer, j models.Job) {
	fmt.Fprintln(w, headerStyle.Render(j.Company+" / "+j.Position))
	fmt.Fprintf(w, "id:      %s\n", j.ID)
	fmt.Fprintf(w, "status:  %s\n", statusLabel(j.Status))
	fmt.Fprintf(w, "salary:  %s\n", salary(j))
	fmt.Fprintf(w, "updated: %s\n", j.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if len(j.Comments) == 0 {
		return
	}
	fmt.Fprintln(w, "notes:")
	for _, c := range j.Comments {
		fmt.Fprintf(w, "  [%s] %s  (%s)\n", c.ID, c.Content, c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func printCounts(w io.Writer, counts map[models.JobStatus]int) {
	total := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range models.Statuses {
		fmt.Fprintf(tw, "%s\t%d\n", statusLabel(s), counts[s])
		total += counts[s]
	}
	fmt.Fprintf(tw, "%s\t%d\n", "total", total)
	tw.Flush()
}

func salary(j models.Job) string {
	if j.SalaryExpectations == nil || strings.TrimSpace(*j.SalaryExpectations) == "" {
		return "-"
	}
	return *j.SalaryExpectations
}
