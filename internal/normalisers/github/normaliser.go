package github

import (
	"encoding/json"
	"fmt"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser converts GitHub payloads into domain records. It is stateless.
type Normaliser struct{}

// New creates a GitHub normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise converts a repository payload from either protocol.
func (n *Normaliser) Normalise(raw domain.RawNode, ownerLogin string) (*domain.Repository, error) {
	if len(raw.Payload) == 0 {
		return nil, fmt.Errorf("%w: empty repository payload", domain.ErrMalformed)
	}
	switch raw.Origin {
	case domain.OriginREST:
		return n.restRepository(raw.Payload, ownerLogin)
	case domain.OriginGraph:
		return n.graphRepository(raw.Payload, ownerLogin)
	default:
		return nil, fmt.Errorf("%w: payload origin %q", domain.ErrUnsupportedType, raw.Origin)
	}
}

// Organization converts a REST organization payload.
func (n *Normaliser) Organization(raw domain.RawNode) (*domain.Organization, error) {
	var org gh.Organization
	if err := decode(raw, &org); err != nil {
		return nil, err
	}
	if org.GetLogin() == "" {
		return nil, fmt.Errorf("%w: organization without login", domain.ErrMalformed)
	}
	return &domain.Organization{
		GitHubID:    org.GetID(),
		NodeID:      org.GetNodeID(),
		Login:       org.GetLogin(),
		Name:        org.GetName(),
		Description: org.GetDescription(),
		Blog:        org.GetBlog(),
		Location:    org.GetLocation(),
		Email:       org.GetEmail(),
		AvatarURL:   org.GetAvatarURL(),
		HTMLURL:     org.GetHTMLURL(),
		PublicRepos: org.GetPublicRepos(),
		Followers:   org.GetFollowers(),
		CreatedAt:   timestamp(org.CreatedAt),
		UpdatedAt:   timestamp(org.UpdatedAt),
	}, nil
}

// User converts a REST user payload.
func (n *Normaliser) User(raw domain.RawNode) (*domain.User, error) {
	var user gh.User
	if err := decode(raw, &user); err != nil {
		return nil, err
	}
	if user.GetLogin() == "" {
		return nil, fmt.Errorf("%w: user without login", domain.ErrMalformed)
	}
	return &domain.User{
		GitHubID:    user.GetID(),
		NodeID:      user.GetNodeID(),
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		Company:     user.GetCompany(),
		Blog:        user.GetBlog(),
		Location:    user.GetLocation(),
		Email:       user.GetEmail(),
		Bio:         user.GetBio(),
		AvatarURL:   user.GetAvatarURL(),
		HTMLURL:     user.GetHTMLURL(),
		PublicRepos: user.GetPublicRepos(),
		PublicGists: user.GetPublicGists(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		CreatedAt:   timestamp(user.CreatedAt),
		UpdatedAt:   timestamp(user.UpdatedAt),
	}, nil
}

// decode unmarshals a REST payload.
func decode(raw domain.RawNode, v any) error {
	if raw.Origin != domain.OriginREST {
		return fmt.Errorf("%w: %s payload origin %q", domain.ErrUnsupportedType, raw.Kind, raw.Origin)
	}
	if err := json.Unmarshal(raw.Payload, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrMalformed, raw.Kind, err)
	}
	return nil
}

func timestamp(ts *gh.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.UTC()
}
