package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// GraphRepository is the JSON shape of a repository node returned by the
// graph query connector. Field names follow the GraphQL schema.
type GraphRepository struct {
	ID             string     `json:"id"`
	DatabaseID     int64      `json:"databaseId"`
	Name           string     `json:"name"`
	NameWithOwner  string     `json:"nameWithOwner"`
	Owner          GraphOwner `json:"owner"`
	Description    string     `json:"description"`
	URL            string     `json:"url"`
	HomepageURL    string     `json:"homepageUrl"`
	StargazerCount int        `json:"stargazerCount"`
	ForkCount      int        `json:"forkCount"`
	Watchers       GraphCount `json:"watchers"`
	Issues         GraphCount `json:"issues"`
	PullRequests   GraphCount `json:"pullRequests"`
	IsFork         bool       `json:"isFork"`
	IsArchived     bool       `json:"isArchived"`

	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`

	LicenseInfo *struct {
		Key    string `json:"key"`
		Name   string `json:"name"`
		SpdxID string `json:"spdxId"`
	} `json:"licenseInfo"`

	RepositoryTopics struct {
		Nodes []struct {
			Topic struct {
				Name string `json:"name"`
			} `json:"topic"`
		} `json:"nodes"`
	} `json:"repositoryTopics"`

	DefaultBranchRef *struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	PushedAt  *time.Time `json:"pushedAt"`
}

// GraphOwner is the owner of a graph repository node.
type GraphOwner struct {
	Login string `json:"login"`
}

// GraphCount is a connection reduced to its total count.
type GraphCount struct {
	TotalCount int `json:"totalCount"`
}

func (n *Normaliser) restRepository(payload json.RawMessage, ownerLogin string) (*domain.Repository, error) {
	var r gh.Repository
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: decode repository: %w", domain.ErrMalformed, err)
	}

	owner := r.GetOwner()
	repo := &domain.Repository{
		GitHubID:      r.GetID(),
		NodeID:        r.GetNodeID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		OwnerLogin:    owner.GetLogin(),
		OwnerGitHubID: owner.GetID(),
		OwnerKind:     domain.ParseOwnerKind(owner.GetType()),
		Description:   r.GetDescription(),
		HTMLURL:       r.GetHTMLURL(),
		Homepage:      r.GetHomepage(),
		Language:      r.GetLanguage(),
		Topics:        topics(r.Topics),
		Stargazers:    r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		Watchers:      r.GetSubscribersCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		IsFork:        r.GetFork(),
		IsArchived:    r.GetArchived(),
		DefaultBranch: r.GetDefaultBranch(),
		CreatedAt:     timestamp(r.CreatedAt),
		UpdatedAt:     timestamp(r.UpdatedAt),
		PushedAt:      timestamp(r.PushedAt),
	}
	if l := r.GetLicense(); l != nil {
		repo.License = &domain.License{Key: l.GetKey(), Name: l.GetName(), SPDXID: l.GetSPDXID()}
	}
	return complete(repo, ownerLogin)
}

func (n *Normaliser) graphRepository(payload json.RawMessage, ownerLogin string) (*domain.Repository, error) {
	var r GraphRepository
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("%w: decode repository node: %w", domain.ErrMalformed, err)
	}

	repo := &domain.Repository{
		GitHubID:    r.DatabaseID,
		NodeID:      r.ID,
		Name:        r.Name,
		FullName:    r.NameWithOwner,
		OwnerLogin:  r.Owner.Login,
		OwnerKind:   domain.OwnerUnknown,
		Description: r.Description,
		HTMLURL:     r.URL,
		Homepage:    r.HomepageURL,
		Stargazers:  r.StargazerCount,
		Forks:       r.ForkCount,
		Watchers:    r.Watchers.TotalCount,
		OpenIssues:  r.Issues.TotalCount + r.PullRequests.TotalCount,
		IsFork:      r.IsFork,
		IsArchived:  r.IsArchived,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.PrimaryLanguage != nil {
		repo.Language = r.PrimaryLanguage.Name
	}
	if r.LicenseInfo != nil {
		repo.License = &domain.License{Key: r.LicenseInfo.Key, Name: r.LicenseInfo.Name, SPDXID: r.LicenseInfo.SpdxID}
	}
	if r.DefaultBranchRef != nil {
		repo.DefaultBranch = r.DefaultBranchRef.Name
	}
	if r.PushedAt != nil {
		repo.PushedAt = r.PushedAt.UTC()
	}
	names := make([]string, 0, len(r.RepositoryTopics.Nodes))
	for _, node := range r.RepositoryTopics.Nodes {
		names = append(names, node.Topic.Name)
	}
	repo.Topics = topics(names)
	return complete(repo, ownerLogin)
}

// complete fills derivable identity fields and rejects records without one.
func complete(repo *domain.Repository, ownerLogin string) (*domain.Repository, error) {
	if repo.OwnerLogin == "" {
		if owner, _, ok := domain.SplitFullName(repo.FullName); ok {
			repo.OwnerLogin = owner
		} else {
			repo.OwnerLogin = ownerLogin
		}
	}
	if repo.Name == "" {
		if _, name, ok := domain.SplitFullName(repo.FullName); ok {
			repo.Name = name
		}
	}
	if repo.FullName == "" && repo.OwnerLogin != "" && repo.Name != "" {
		repo.FullName = repo.OwnerLogin + "/" + repo.Name
	}
	if _, _, ok := domain.SplitFullName(repo.FullName); !ok {
		return nil, fmt.Errorf("%w: repository without owner/name", domain.ErrMalformed)
	}
	return repo, nil
}

// topics drops blanks and always returns a non-nil slice.
func topics(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
