// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The harvest engine lives here: RunScheduler owns the run state machine,
// StalenessPolicy selects backlogs, Harvester executes runs and RunLog
// records what happened. AutoRunner ties them to a cron schedule.
package services
