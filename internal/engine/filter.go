package engine

import (
	"fmt"

	"github.com/kiranshivaraju/jobtracker/pkg/models"
)

// Filter is the active status view: FilterAll or one JobStatus.
type Filter string

const FilterAll Filter = "all"

// ParseFilter accepts "all", "" (same as all) or a job status.
func ParseFilter(raw string) (Filter, error) {
	if raw == "" || raw == string(FilterAll) {
		return FilterAll, nil
	}
	s, err := models.ParseJobStatus(raw)
	if err != nil {
		return "", fmt.Errorf("invalid filter: %w", err)
	}
	return Filter(s), nil
}

// Matches reports whether j is visible under f.
func (f Filter) Matches(j models.Job) bool {
	return f == FilterAll || models.JobStatus(f) == j.Status
}
