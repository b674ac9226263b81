package domain

import "time"

// HarvestConfig tunes a harvest run.
type HarvestConfig struct {
	// RepositoryCap, OrganizationCap and UserCap bound each backlog pass.
	RepositoryCap   int
	OrganizationCap int
	UserCap         int

	// StaleAfter is the staleness threshold.
	StaleAfter time.Duration

	// ChildRepositoryCap bounds the repositories harvested per organization or user.
	ChildRepositoryCap int

	// GraphPageSize is the page size of repository graph queries.
	GraphPageSize int

	// RequestDelay is the pause between consecutive per-entity calls.
	RequestDelay time.Duration

	// MaxRetries is how often a retryable call is repeated.
	MaxRetries int

	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration

	// FetchReadmes enables README harvesting for repositories.
	FetchReadmes bool

	// FetchProfileReadmes enables profile README harvesting for users and organizations.
	FetchProfileReadmes bool
}

// Cap returns the backlog cap for a kind.
func (c HarvestConfig) Cap(kind EntityKind) int {
	switch kind {
	case KindRepository:
		return c.RepositoryCap
	case KindOrganization:
		return c.OrganizationCap
	case KindUser:
		return c.UserCap
	}
	return 0
}

// DefaultHarvestConfig returns the defaults used when nothing is configured.
func DefaultHarvestConfig() HarvestConfig {
	return HarvestConfig{
		RepositoryCap:       100,
		OrganizationCap:     50,
		UserCap:             50,
		StaleAfter:          48 * time.Hour,
		ChildRepositoryCap:  100,
		GraphPageSize:       30,
		RequestDelay:        100 * time.Millisecond,
		MaxRetries:          2,
		RetryBackoff:        time.Second,
		FetchReadmes:        true,
		FetchProfileReadmes: true,
	}
}

// ScheduleConfig tunes the automatic runner.
type ScheduleConfig struct {
	// Interval is the minimum time between the completion of one
	// automatic run and the creation of the next.
	Interval time.Duration

	// CheckSpec is the cron expression for how often the runner checks
	// whether a run is due.
	CheckSpec string
}

// DefaultScheduleConfig returns the automatic runner defaults.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Interval:  48 * time.Hour,
		CheckSpec: "@every 1m",
	}
}
