package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shurcooL/githubv4"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// MaxGraphPageSize is the largest page the repositories connection accepts.
const MaxGraphPageSize = 100

// repositoryNode mirrors normalisers/github.GraphRepository. The json tags
// define the payload handed to the normaliser.
type repositoryNode struct {
	ID            string `graphql:"id" json:"id"`
	DatabaseID    int64  `graphql:"databaseId" json:"databaseId"`
	Name          string `graphql:"name" json:"name"`
	NameWithOwner string `graphql:"nameWithOwner" json:"nameWithOwner"`
	Owner         struct {
		Login string `graphql:"login" json:"login"`
	} `graphql:"owner" json:"owner"`
	Description    string     `graphql:"description" json:"description"`
	URL            string     `graphql:"url" json:"url"`
	HomepageURL    string     `graphql:"homepageUrl" json:"homepageUrl"`
	StargazerCount int        `graphql:"stargazerCount" json:"stargazerCount"`
	ForkCount      int        `graphql:"forkCount" json:"forkCount"`
	Watchers       totalCount `graphql:"watchers" json:"watchers"`
	Issues         totalCount `graphql:"issues(states: OPEN)" json:"issues"`
	PullRequests   totalCount `graphql:"pullRequests(states: OPEN)" json:"pullRequests"`
	IsFork         bool       `graphql:"isFork" json:"isFork"`
	IsArchived     bool       `graphql:"isArchived" json:"isArchived"`

	PrimaryLanguage *struct {
		Name string `graphql:"name" json:"name"`
	} `graphql:"primaryLanguage" json:"primaryLanguage"`

	LicenseInfo *struct {
		Key    string `graphql:"key" json:"key"`
		Name   string `graphql:"name" json:"name"`
		SpdxID string `graphql:"spdxId" json:"spdxId"`
	} `graphql:"licenseInfo" json:"licenseInfo"`

	RepositoryTopics struct {
		Nodes []struct {
			Topic struct {
				Name string `graphql:"name" json:"name"`
			} `graphql:"topic" json:"topic"`
		} `graphql:"nodes" json:"nodes"`
	} `graphql:"repositoryTopics(first: 20)" json:"repositoryTopics"`

	DefaultBranchRef *struct {
		Name string `graphql:"name" json:"name"`
	} `graphql:"defaultBranchRef" json:"defaultBranchRef"`

	CreatedAt time.Time  `graphql:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `graphql:"updatedAt" json:"updatedAt"`
	PushedAt  *time.Time `graphql:"pushedAt" json:"pushedAt"`
}

type totalCount struct {
	TotalCount int `graphql:"totalCount" json:"totalCount"`
}

type repositoryConnection struct {
	Nodes    []repositoryNode `graphql:"nodes"`
	PageInfo struct {
		HasNextPage bool   `graphql:"hasNextPage"`
		EndCursor   string `graphql:"endCursor"`
	} `graphql:"pageInfo"`
}

type organizationRepositoriesQuery struct {
	Organization *struct {
		Repositories repositoryConnection `graphql:"repositories(first: $first, after: $after, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"organization(login: $login)"`
}

type userRepositoriesQuery struct {
	User *struct {
		Repositories repositoryConnection `graphql:"repositories(first: $first, after: $after, ownerAffiliations: OWNER, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"user(login: $login)"`
}

// Paginate fetches one page of the repositories owned by root.
// pageSize is clamped to 1..MaxGraphPageSize.
func (c *Client) Paginate(
	ctx context.Context,
	root string,
	kind domain.EntityKind,
	pageSize int,
	cursor string,
) (*domain.GraphPage, error) {
	pageSize = max(1, min(pageSize, MaxGraphPageSize))
	variables := map[string]any{
		"login": githubv4.String(root),
		"first": githubv4.Int(pageSize),
		"after": (*githubv4.String)(nil),
	}
	if cursor != "" {
		variables["after"] = githubv4.NewString(githubv4.String(cursor))
	}

	var conn *repositoryConnection
	switch kind {
	case domain.KindOrganization:
		var q organizationRepositoriesQuery
		if err := c.query(ctx, &q, variables); err != nil {
			return nil, err
		}
		if q.Organization != nil {
			conn = &q.Organization.Repositories
		}
	case domain.KindUser:
		var q userRepositoriesQuery
		if err := c.query(ctx, &q, variables); err != nil {
			return nil, err
		}
		if q.User != nil {
			conn = &q.User.Repositories
		}
	default:
		return nil, fmt.Errorf("%w: graph root kind %q", domain.ErrUnsupportedType, kind)
	}
	if conn == nil {
		return nil, &GraphQLError{Message: fmt.Sprintf("%s %q not found", kind, root)}
	}

	page := &domain.GraphPage{
		Nodes:       make([]domain.RawNode, 0, len(conn.Nodes)),
		HasNextPage: conn.PageInfo.HasNextPage,
		EndCursor:   conn.PageInfo.EndCursor,
	}
	for i := range conn.Nodes {
		payload, err := json.Marshal(&conn.Nodes[i])
		if err != nil {
			return nil, fmt.Errorf("%w: encode repository node: %w", domain.ErrMalformed, err)
		}
		page.Nodes = append(page.Nodes, domain.RawNode{
			Origin:  domain.OriginGraph,
			Kind:    domain.KindRepository,
			Payload: payload,
		})
	}
	return page, nil
}

// query runs a graph query and classifies its failure using the HTTP
// status the transport recorded.
func (c *Client) query(ctx context.Context, q any, variables map[string]any) error {
	ctx, status := withResponseStatus(ctx)
	err := c.graph.Query(ctx, q, variables)
	if err == nil {
		return nil
	}

	switch {
	case status.rateLimit != nil:
		return status.rateLimit
	case status.code == 0:
		return &TransportError{Op: "graphql", Err: err}
	case status.code != http.StatusOK:
		return &APIError{StatusCode: status.code, Message: err.Error(), URL: "graphql"}
	case isDecodeError(err):
		return fmt.Errorf("%w: graphql: %w", domain.ErrMalformed, err)
	default:
		return &GraphQLError{Message: err.Error()}
	}
}
