package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var trackCmd = &cobra.Command{
	Use:   "track [kind] [key...]",
	Short: "Register entities for harvesting",
	Long: `Registers repositories, organizations or users so the next run harvests
them. Repositories are given as owner/name, organizations and users by login.

Examples:
  harvester track repository golang/go
  harvester track organization kubernetes
  harvester track user octocat torvalds`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	if harvestService == nil {
		return errors.New("harvest service not configured")
	}

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}

	for _, key := range args[1:] {
		created, err := harvestService.Track(cmd.Context(), kind, key)
		if err != nil {
			return fmt.Errorf("failed to track %s %s: %w", kind, key, err)
		}
		if created {
			cmd.Printf("Tracking %s %s\n", kind, key)
		} else {
			cmd.Printf("Already tracking %s %s\n", kind, key)
		}
	}
	return nil
}

// parseKind accepts a kind name, its plural, or a short alias.
func parseKind(s string) (domain.EntityKind, error) {
	switch strings.ToLower(s) {
	case "repository", "repositories", "repo", "repos":
		return domain.KindRepository, nil
	case "organization", "organizations", "org", "orgs":
		return domain.KindOrganization, nil
	case "user", "users":
		return domain.KindUser, nil
	}
	return "", fmt.Errorf("unknown kind %q (want repository, organization or user): %w",
		s, domain.ErrUnsupportedType)
}
