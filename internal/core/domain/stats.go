package domain

import (
	"fmt"
	"time"
)

// RunStats are the counters a harvest run accumulates.
type RunStats struct {
	RepositoriesCrawled  int       `json:"repositories_crawled"`
	OrganizationsCrawled int       `json:"organizations_crawled"`
	UsersCrawled         int       `json:"users_crawled"`
	ChildRepositories    int       `json:"child_repositories"`
	FilesSaved           int       `json:"files_saved"`
	Errors               int       `json:"errors"`
	StartedAt            time.Time `json:"started_at"`
	EndedAt              time.Time `json:"ended_at"`
}

// Processed returns the number of backlog identifiers that succeeded.
func (s RunStats) Processed() int {
	return s.RepositoriesCrawled + s.OrganizationsCrawled + s.UsersCrawled
}

// Crawled returns the counter for a backlog pass.
func (s RunStats) Crawled(kind EntityKind) int {
	switch kind {
	case KindRepository:
		return s.RepositoriesCrawled
	case KindOrganization:
		return s.OrganizationsCrawled
	case KindUser:
		return s.UsersCrawled
	}
	return 0
}

// Elapsed returns the run's wall time, or zero before it ends.
func (s RunStats) Elapsed() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Summary returns the one-line statistics message logged at run end.
func (s RunStats) Summary() string {
	return fmt.Sprintf(
		"Harvest statistics: %d repositories, %d organizations, %d users, "+
			"%d child repositories, %d files saved, %d errors, %d seconds execution time",
		s.RepositoriesCrawled, s.OrganizationsCrawled, s.UsersCrawled,
		s.ChildRepositories, s.FilesSaved, s.Errors, int(s.Elapsed().Seconds()))
}
