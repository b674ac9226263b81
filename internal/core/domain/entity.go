package domain

import (
	"strings"
	"time"
)

// EntityKind identifies one of the harvested entity types.
type EntityKind string

const (
	KindRepository   EntityKind = "repository"
	KindOrganization EntityKind = "organization"
	KindUser         EntityKind = "user"
)

// HarvestOrder is the order in which backlog passes run.
var HarvestOrder = []EntityKind{KindRepository, KindOrganization, KindUser}

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindRepository, KindOrganization, KindUser:
		return true
	}
	return false
}

// Plural returns the kind's plural label used in log lines.
func (k EntityKind) Plural() string {
	switch k {
	case KindRepository:
		return "repositories"
	case KindOrganization:
		return "organizations"
	case KindUser:
		return "users"
	}
	return string(k)
}

// OwnerKind is the account type that owns a repository.
type OwnerKind string

const (
	OwnerUser         OwnerKind = "User"
	OwnerOrganization OwnerKind = "Organization"

	// OwnerUnknown marks a record whose owner type the API did not report.
	// It must be resolved before the record is stored.
	OwnerUnknown OwnerKind = ""
)

// ParseOwnerKind maps the API's owner type string to an OwnerKind.
// Bots and unrecognised values are treated as users.
func ParseOwnerKind(s string) OwnerKind {
	switch strings.ToLower(s) {
	case "organization":
		return OwnerOrganization
	case "":
		return OwnerUnknown
	default:
		return OwnerUser
	}
}

// EntityKind returns the entity kind an owner of this type is stored as.
func (o OwnerKind) EntityKind() EntityKind {
	if o == OwnerOrganization {
		return KindOrganization
	}
	return KindUser
}

// EntityRef identifies a stored entity for a backlog pass.
type EntityRef struct {
	// Kind is the entity kind.
	Kind EntityKind

	// ID is the local store identifier.
	ID int64

	// Key is the natural key: login, or owner/name for repositories.
	Key string

	// LastHarvestedAt is zero when the entity was never harvested.
	LastHarvestedAt time.Time
}

// SplitFullName splits "owner/name" into its parts.
func SplitFullName(fullName string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

// License is a repository's detected license.
type License struct {
	Key    string
	Name   string
	SPDXID string
}

// Repository is the canonical repository record.
type Repository struct {
	ID            int64
	GitHubID      int64
	NodeID        string
	FullName      string
	OwnerLogin    string
	Name          string
	OwnerGitHubID int64
	OwnerKind     OwnerKind
	Description   string
	HTMLURL       string
	Homepage      string
	Language      string
	License       *License
	Topics        []string
	Stargazers    int
	Forks         int
	// Watchers counts subscribers, not stargazers.
	Watchers int
	// OpenIssues counts open issues and open pull requests together.
	OpenIssues    int
	IsFork        bool
	IsArchived    bool
	DefaultBranch string

	// CreatedAt, UpdatedAt and PushedAt are the remote timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
	PushedAt  time.Time

	// LastHarvestedAt is owned by the store and only moves forward.
	LastHarvestedAt time.Time
}

// Organization is the canonical organization record.
type Organization struct {
	ID              int64
	GitHubID        int64
	NodeID          string
	Login           string
	Name            string
	Description     string
	Blog            string
	Location        string
	Email           string
	AvatarURL       string
	HTMLURL         string
	PublicRepos     int
	Followers       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHarvestedAt time.Time
}

// User is the canonical user record.
type User struct {
	ID              int64
	GitHubID        int64
	NodeID          string
	Login           string
	Name            string
	Company         string
	Blog            string
	Location        string
	Email           string
	Bio             string
	AvatarURL       string
	HTMLURL         string
	PublicRepos     int
	PublicGists     int
	Followers       int
	Following       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHarvestedAt time.Time
}
