package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// SourceAPI is the remote metadata source.
// Errors match the domain taxonomy (ErrTransport, ErrProtocol, ErrMalformed)
// through errors.Is. Implementations never retry internally.
type SourceAPI interface {
	// GetRepository returns the REST detail object for owner/name.
	GetRepository(ctx context.Context, owner, name string) (json.RawMessage, error)

	// GetOrganization returns the REST detail object for an organization login.
	GetOrganization(ctx context.Context, login string) (json.RawMessage, error)

	// GetUser returns the REST detail object for a user login.
	GetUser(ctx context.Context, login string) (json.RawMessage, error)

	// GetReadme returns the decoded README of a repository.
	// Returns an empty string and no error when the repository has none.
	GetReadme(ctx context.Context, owner, name string) (string, error)

	// GetFile returns the decoded contents of a file in a repository.
	// Returns an empty string and no error when the file does not exist.
	GetFile(ctx context.Context, owner, name, path string) (string, error)

	// Paginate fetches one page of repositories owned by root.
	// kind selects the graph root (organization or user).
	// An empty cursor requests the first page.
	Paginate(ctx context.Context, root string, kind domain.EntityKind, pageSize int, cursor string) (*domain.GraphPage, error)
}
