package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// entityStore implements driven.EntityStore.
type entityStore struct {
	store *Store
}

var _ driven.EntityStore = (*entityStore)(nil)

// entityTable describes the table and natural key column of a kind.
type entityTable struct {
	name string
	key  string
}

var entityTables = map[domain.EntityKind]entityTable{
	domain.KindRepository:   {name: "repositories", key: "full_name"},
	domain.KindOrganization: {name: "organizations", key: "login"},
	domain.KindUser:         {name: "users", key: "login"},
}

func tableFor(kind domain.EntityKind) (entityTable, error) {
	t, ok := entityTables[kind]
	if !ok {
		return entityTable{}, fmt.Errorf("%w: entity kind %q", domain.ErrUnsupportedType, kind)
	}
	return t, nil
}

// ==================== Repositories ====================

const repositoryColumns = `id, full_name, owner_login, name, github_id, node_id, owner_github_id, owner_kind,
	description, html_url, homepage, language, license_key, license_name, license_spdx_id, topics,
	stargazers, forks, watchers, open_issues, is_fork, is_archived, default_branch,
	created_at, updated_at, pushed_at, last_harvested_at`

// UpsertRepository inserts or updates a repository by full name.
// The harvest timestamp is left untouched.
func (s *entityStore) UpsertRepository(ctx context.Context, repo *domain.Repository) (int64, error) {
	if repo == nil || repo.FullName == "" {
		return 0, domain.ErrInvalidInput
	}

	topics := repo.Topics
	if topics == nil {
		topics = []string{}
	}
	topicsJSON, err := json.Marshal(topics)
	if err != nil {
		return 0, fmt.Errorf("marshalling topics: %w", err)
	}

	var licenseKey, licenseName, licenseSPDX any
	if repo.License != nil {
		licenseKey = repo.License.Key
		licenseName = repo.License.Name
		licenseSPDX = repo.License.SPDXID
	}

	var id int64
	err = s.store.db.QueryRowContext(ctx, `
		INSERT INTO repositories (full_name, owner_login, name, github_id, node_id, owner_github_id, owner_kind,
			description, html_url, homepage, language, license_key, license_name, license_spdx_id, topics,
			stargazers, forks, watchers, open_issues, is_fork, is_archived, default_branch,
			created_at, updated_at, pushed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(full_name) DO UPDATE SET
			full_name = excluded.full_name,
			owner_login = excluded.owner_login,
			name = excluded.name,
			github_id = excluded.github_id,
			node_id = excluded.node_id,
			owner_github_id = excluded.owner_github_id,
			owner_kind = excluded.owner_kind,
			description = excluded.description,
			html_url = excluded.html_url,
			homepage = excluded.homepage,
			language = excluded.language,
			license_key = excluded.license_key,
			license_name = excluded.license_name,
			license_spdx_id = excluded.license_spdx_id,
			topics = excluded.topics,
			stargazers = excluded.stargazers,
			forks = excluded.forks,
			watchers = excluded.watchers,
			open_issues = excluded.open_issues,
			is_fork = excluded.is_fork,
			is_archived = excluded.is_archived,
			default_branch = excluded.default_branch,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			pushed_at = excluded.pushed_at
		RETURNING id
	`, repo.FullName, repo.OwnerLogin, repo.Name, repo.GitHubID, repo.NodeID, repo.OwnerGitHubID,
		string(repo.OwnerKind), repo.Description, repo.HTMLURL, repo.Homepage, repo.Language,
		licenseKey, licenseName, licenseSPDX, string(topicsJSON),
		repo.Stargazers, repo.Forks, repo.Watchers, repo.OpenIssues,
		boolToInt(repo.IsFork), boolToInt(repo.IsArchived), repo.DefaultBranch,
		nullableTime(repo.CreatedAt), nullableTime(repo.UpdatedAt), nullableTime(repo.PushedAt),
	).Scan(&id)
	if err != nil {
		return 0, storageErr("upserting repository", err)
	}
	return id, nil
}

// FindRepository returns a repository by full name.
// Returns nil and no error if the repository does not exist.
func (s *entityStore) FindRepository(ctx context.Context, fullName string) (*domain.Repository, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+repositoryColumns+" FROM repositories WHERE full_name = ?", fullName)

	var (
		repo                                     domain.Repository
		ownerKind, topicsJSON                    string
		licenseKey, licenseName, licenseSPDX     sql.NullString
		isFork, isArchived                       int
		createdAt, updatedAt, pushedAt, lastSeen sql.NullInt64
	)
	err := row.Scan(&repo.ID, &repo.FullName, &repo.OwnerLogin, &repo.Name, &repo.GitHubID, &repo.NodeID,
		&repo.OwnerGitHubID, &ownerKind, &repo.Description, &repo.HTMLURL, &repo.Homepage, &repo.Language,
		&licenseKey, &licenseName, &licenseSPDX, &topicsJSON,
		&repo.Stargazers, &repo.Forks, &repo.Watchers, &repo.OpenIssues, &isFork, &isArchived,
		&repo.DefaultBranch, &createdAt, &updatedAt, &pushedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scanning repository", err)
	}

	repo.OwnerKind = domain.OwnerKind(ownerKind)
	repo.IsFork = isFork == 1
	repo.IsArchived = isArchived == 1
	if licenseKey.Valid || licenseName.Valid || licenseSPDX.Valid {
		repo.License = &domain.License{Key: licenseKey.String, Name: licenseName.String, SPDXID: licenseSPDX.String}
	}
	if err := json.Unmarshal([]byte(topicsJSON), &repo.Topics); err != nil {
		return nil, fmt.Errorf("unmarshalling topics: %w", err)
	}
	repo.CreatedAt = parseNullableTime(createdAt)
	repo.UpdatedAt = parseNullableTime(updatedAt)
	repo.PushedAt = parseNullableTime(pushedAt)
	repo.LastHarvestedAt = parseNullableTime(lastSeen)
	return &repo, nil
}

// ==================== Organizations ====================

// UpsertOrganization inserts or updates an organization by login.
func (s *entityStore) UpsertOrganization(ctx context.Context, org *domain.Organization) (int64, error) {
	if org == nil || org.Login == "" {
		return 0, domain.ErrInvalidInput
	}

	var id int64
	err := s.store.db.QueryRowContext(ctx, `
		INSERT INTO organizations (login, github_id, node_id, name, description, blog, location, email,
			avatar_url, html_url, public_repos, followers, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(login) DO UPDATE SET
			login = excluded.login,
			github_id = excluded.github_id,
			node_id = excluded.node_id,
			name = excluded.name,
			description = excluded.description,
			blog = excluded.blog,
			location = excluded.location,
			email = excluded.email,
			avatar_url = excluded.avatar_url,
			html_url = excluded.html_url,
			public_repos = excluded.public_repos,
			followers = excluded.followers,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		RETURNING id
	`, org.Login, org.GitHubID, org.NodeID, org.Name, org.Description, org.Blog, org.Location, org.Email,
		org.AvatarURL, org.HTMLURL, org.PublicRepos, org.Followers,
		nullableTime(org.CreatedAt), nullableTime(org.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, storageErr("upserting organization", err)
	}
	return id, nil
}

// FindOrganization returns an organization by login.
// Returns nil and no error if the organization does not exist.
func (s *entityStore) FindOrganization(ctx context.Context, login string) (*domain.Organization, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, login, github_id, node_id, name, description, blog, location, email,
			avatar_url, html_url, public_repos, followers, created_at, updated_at, last_harvested_at
		FROM organizations WHERE login = ?
	`, login)

	var (
		org                            domain.Organization
		createdAt, updatedAt, lastSeen sql.NullInt64
	)
	err := row.Scan(&org.ID, &org.Login, &org.GitHubID, &org.NodeID, &org.Name, &org.Description,
		&org.Blog, &org.Location, &org.Email, &org.AvatarURL, &org.HTMLURL, &org.PublicRepos,
		&org.Followers, &createdAt, &updatedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scanning organization", err)
	}
	org.CreatedAt = parseNullableTime(createdAt)
	org.UpdatedAt = parseNullableTime(updatedAt)
	org.LastHarvestedAt = parseNullableTime(lastSeen)
	return &org, nil
}

// ==================== Users ====================

// UpsertUser inserts or updates a user by login.
func (s *entityStore) UpsertUser(ctx context.Context, user *domain.User) (int64, error) {
	if user == nil || user.Login == "" {
		return 0, domain.ErrInvalidInput
	}

	var id int64
	err := s.store.db.QueryRowContext(ctx, `
		INSERT INTO users (login, github_id, node_id, name, company, blog, location, email, bio,
			avatar_url, html_url, public_repos, public_gists, followers, following, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(login) DO UPDATE SET
			login = excluded.login,
			github_id = excluded.github_id,
			node_id = excluded.node_id,
			name = excluded.name,
			company = excluded.company,
			blog = excluded.blog,
			location = excluded.location,
			email = excluded.email,
			bio = excluded.bio,
			avatar_url = excluded.avatar_url,
			html_url = excluded.html_url,
			public_repos = excluded.public_repos,
			public_gists = excluded.public_gists,
			followers = excluded.followers,
			following = excluded.following,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		RETURNING id
	`, user.Login, user.GitHubID, user.NodeID, user.Name, user.Company, user.Blog, user.Location,
		user.Email, user.Bio, user.AvatarURL, user.HTMLURL, user.PublicRepos, user.PublicGists,
		user.Followers, user.Following, nullableTime(user.CreatedAt), nullableTime(user.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return 0, storageErr("upserting user", err)
	}
	return id, nil
}

// FindUser returns a user by login.
// Returns nil and no error if the user does not exist.
func (s *entityStore) FindUser(ctx context.Context, login string) (*domain.User, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, login, github_id, node_id, name, company, blog, location, email, bio,
			avatar_url, html_url, public_repos, public_gists, followers, following,
			created_at, updated_at, last_harvested_at
		FROM users WHERE login = ?
	`, login)

	var (
		user                           domain.User
		createdAt, updatedAt, lastSeen sql.NullInt64
	)
	err := row.Scan(&user.ID, &user.Login, &user.GitHubID, &user.NodeID, &user.Name, &user.Company,
		&user.Blog, &user.Location, &user.Email, &user.Bio, &user.AvatarURL, &user.HTMLURL,
		&user.PublicRepos, &user.PublicGists, &user.Followers, &user.Following,
		&createdAt, &updatedAt, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scanning user", err)
	}
	user.CreatedAt = parseNullableTime(createdAt)
	user.UpdatedAt = parseNullableTime(updatedAt)
	user.LastHarvestedAt = parseNullableTime(lastSeen)
	return &user, nil
}

// ==================== Harvest bookkeeping ====================

// ListStale returns never-harvested entities first, then the oldest
// harvests, then the lowest ids.
func (s *entityStore) ListStale(
	ctx context.Context,
	kind domain.EntityKind,
	cutoff time.Time,
	limit int,
) ([]domain.EntityRef, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // table and column names come from entityTables
	query := fmt.Sprintf(`
		SELECT id, %s, last_harvested_at FROM %s
		WHERE last_harvested_at IS NULL OR last_harvested_at <= ?
		ORDER BY last_harvested_at IS NOT NULL, last_harvested_at, id
		LIMIT ?
	`, table.key, table.name)

	rows, err := s.store.db.QueryContext(ctx, query, cutoff.UnixNano(), sqlLimit(limit))
	if err != nil {
		return nil, storageErr("querying stale "+table.name, err)
	}
	defer rows.Close()

	refs := make([]domain.EntityRef, 0)
	for rows.Next() {
		var (
			ref      = domain.EntityRef{Kind: kind}
			lastSeen sql.NullInt64
		)
		if err := rows.Scan(&ref.ID, &ref.Key, &lastSeen); err != nil {
			return nil, storageErr("scanning stale "+table.name, err)
		}
		ref.LastHarvestedAt = parseNullableTime(lastSeen)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating stale "+table.name, err)
	}
	return refs, nil
}

// TouchHarvested records a harvest time. The stored value never decreases.
func (s *entityStore) TouchHarvested(ctx context.Context, kind domain.EntityKind, id int64, at time.Time) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	//nolint:gosec // table name comes from entityTables
	query := fmt.Sprintf(
		"UPDATE %s SET last_harvested_at = MAX(COALESCE(last_harvested_at, 0), ?) WHERE id = ?", table.name)
	result, err := s.store.db.ExecContext(ctx, query, at.UnixNano(), id)
	if err != nil {
		return storageErr("touching "+table.name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storageErr("touching "+table.name, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

// Track inserts a never-harvested stub for key unless one exists.
func (s *entityStore) Track(ctx context.Context, kind domain.EntityKind, key string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	if key == "" {
		return false, domain.ErrInvalidInput
	}

	var result sql.Result
	if kind == domain.KindRepository {
		owner, name, ok := domain.SplitFullName(key)
		if !ok {
			return false, fmt.Errorf("%w: repository %q", domain.ErrInvalidInput, key)
		}
		result, err = s.store.db.ExecContext(ctx, `
			INSERT INTO repositories (full_name, owner_login, name) VALUES (?, ?, ?)
			ON CONFLICT(full_name) DO NOTHING
		`, key, owner, name)
	} else {
		//nolint:gosec // table name comes from entityTables
		query := fmt.Sprintf("INSERT INTO %s (login) VALUES (?) ON CONFLICT(login) DO NOTHING", table.name)
		result, err = s.store.db.ExecContext(ctx, query, key)
	}
	if err != nil {
		return false, storageErr("tracking "+string(kind), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("tracking "+string(kind), err)
	}
	return n == 1, nil
}

// ==================== Content ====================

// PutContent stores content, replacing any previous version.
func (s *entityStore) PutContent(ctx context.Context, content *domain.Content) error {
	if content == nil || content.Filename == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO contents (kind, entity_id, filename, raw, rendered, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, entity_id, filename) DO UPDATE SET
			raw = excluded.raw,
			rendered = excluded.rendered,
			fetched_at = excluded.fetched_at
	`, string(content.Kind), content.EntityID, content.Filename, content.Raw, content.Rendered,
		content.FetchedAt.UnixNano())
	if err != nil {
		return storageErr("saving content", err)
	}
	return nil
}

// GetContent returns stored content.
// Returns nil and no error if there is none.
func (s *entityStore) GetContent(
	ctx context.Context,
	kind domain.EntityKind,
	entityID int64,
	filename string,
) (*domain.Content, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT raw, rendered, fetched_at FROM contents
		WHERE kind = ? AND entity_id = ? AND filename = ?
	`, string(kind), entityID, filename)

	content := domain.Content{Kind: kind, EntityID: entityID, Filename: filename}
	var fetchedAt int64
	err := row.Scan(&content.Raw, &content.Rendered, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("scanning content", err)
	}
	content.FetchedAt = unixTime(fetchedAt)
	return &content, nil
}
