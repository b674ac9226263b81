package github

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func graphHandler(t *testing.T, requests *[]graphRequest, status int, response string) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		var req graphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	})
	return mux
}

const organizationPage = `{"data": {"organization": {"repositories": {
	"nodes": [
		{
			"id": "R_1", "databaseId": 1, "name": "api", "nameWithOwner": "acme/api",
			"owner": {"login": "acme"}, "description": null, "url": "https://github.com/acme/api",
			"homepageUrl": null, "stargazerCount": 12, "forkCount": 2,
			"watchers": {"totalCount": 4}, "issues": {"totalCount": 1},
			"pullRequests": {"totalCount": 3}, "isFork": false, "isArchived": false,
			"primaryLanguage": {"name": "Go"}, "licenseInfo": null,
			"repositoryTopics": {"nodes": [{"topic": {"name": "http"}}]},
			"defaultBranchRef": {"name": "main"},
			"createdAt": "2020-01-01T00:00:00Z", "updatedAt": "2024-01-01T00:00:00Z", "pushedAt": null
		}
	],
	"pageInfo": {"hasNextPage": true, "endCursor": "Y3Vyc29yOjE="}
}}}}`

func TestClient_Paginate_Organization(t *testing.T) {
	var requests []graphRequest
	client := newTestClient(t, graphHandler(t, &requests, http.StatusOK, organizationPage), nil)

	page, err := client.Paginate(context.Background(), "acme", domain.KindOrganization, 30, "")
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Query, "organization(login: $login)")
	assert.Equal(t, "acme", requests[0].Variables["login"])
	assert.EqualValues(t, 30, requests[0].Variables["first"])
	assert.Nil(t, requests[0].Variables["after"])

	assert.True(t, page.HasNextPage)
	assert.Equal(t, "Y3Vyc29yOjE=", page.EndCursor)
	require.Len(t, page.Nodes, 1)
	assert.Equal(t, domain.OriginGraph, page.Nodes[0].Origin)

	var node map[string]any
	require.NoError(t, json.Unmarshal(page.Nodes[0].Payload, &node))
	assert.Equal(t, "acme/api", node["nameWithOwner"])
	assert.EqualValues(t, 12, node["stargazerCount"])
	assert.Equal(t, map[string]any{"totalCount": float64(3)}, node["pullRequests"])
	assert.Contains(t, requests[0].Query, "pullRequests(states: OPEN)")
	assert.Equal(t, map[string]any{"name": "Go"}, node["primaryLanguage"])
	assert.Nil(t, node["licenseInfo"])
}

func TestClient_Paginate_UserWithCursor(t *testing.T) {
	var requests []graphRequest
	response := `{"data": {"user": {"repositories": {"nodes": [], "pageInfo": {"hasNextPage": false, "endCursor": null}}}}}`
	client := newTestClient(t, graphHandler(t, &requests, http.StatusOK, response), nil)

	page, err := client.Paginate(context.Background(), "octocat", domain.KindUser, 500, "abc")
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Query, "user(login: $login)")
	assert.EqualValues(t, MaxGraphPageSize, requests[0].Variables["first"])
	assert.Equal(t, "abc", requests[0].Variables["after"])
	assert.False(t, page.HasNextPage)
	assert.Empty(t, page.Nodes)
}

func TestClient_Paginate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("graphql errors", func(t *testing.T) {
		var requests []graphRequest
		response := `{"data": {"organization": null}, "errors": [{"message": "Could not resolve to an Organization with the login of 'nope'."}]}`
		client := newTestClient(t, graphHandler(t, &requests, http.StatusOK, response), nil)

		_, err := client.Paginate(ctx, "nope", domain.KindOrganization, 30, "")
		require.Error(t, err)
		var gqlErr *GraphQLError
		assert.ErrorAs(t, err, &gqlErr)
		assert.ErrorIs(t, err, domain.ErrProtocol)
	})

	t.Run("http status", func(t *testing.T) {
		var requests []graphRequest
		client := newTestClient(t, graphHandler(t, &requests, http.StatusBadGateway, `{}`), nil)

		_, err := client.Paginate(ctx, "acme", domain.KindOrganization, 30, "")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, domain.StatusCode(err))
		assert.True(t, domain.IsRetryable(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		var requests []graphRequest
		client := newTestClient(t, graphHandler(t, &requests, http.StatusOK, `{"data": `), nil)

		_, err := client.Paginate(ctx, "acme", domain.KindOrganization, 30, "")
		assert.ErrorIs(t, err, domain.ErrMalformed)
	})

	t.Run("unsupported root", func(t *testing.T) {
		var requests []graphRequest
		client := newTestClient(t, graphHandler(t, &requests, http.StatusOK, `{}`), nil)

		_, err := client.Paginate(ctx, "acme/api", domain.KindRepository, 30, "")
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
		assert.Empty(t, requests)
	})
}
