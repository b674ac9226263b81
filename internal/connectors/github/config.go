package github

import (
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the REST API root.
	DefaultBaseURL = "https://api.github.com/"

	// DefaultGraphURL is the GraphQL endpoint.
	DefaultGraphURL = "https://api.github.com/graphql"

	// DefaultAPIVersion is sent as X-GitHub-Api-Version.
	DefaultAPIVersion = "2022-11-28"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// Config holds the client identity and limits.
type Config struct {
	// Token is a personal access token or OAuth access token.
	// Empty means unauthenticated.
	Token string

	// BaseURL is the REST API root. Default: DefaultBaseURL.
	BaseURL string

	// GraphURL is the GraphQL endpoint. Default: DefaultGraphURL.
	GraphURL string

	// APIVersion is sent as X-GitHub-Api-Version. Default: DefaultAPIVersion.
	APIVersion string

	// UserAgent is sent with every request. Default: repo-harvester/<version>.
	UserAgent string

	// Timeout bounds each HTTP request. Default: DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond paces all requests. Default: DefaultRequestsPerSecond.
	RequestsPerSecond float64

	// MinBuffer is how many requests of a pool are held back before waiting
	// for it to reset. Default: DefaultReserve.
	MinBuffer int
}

// DefaultUserAgent returns the User-Agent for a build version.
func DefaultUserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return "repo-harvester/" + version
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.GraphURL == "" {
		c.GraphURL = DefaultGraphURL
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent("")
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.MinBuffer <= 0 {
		c.MinBuffer = DefaultReserve
	}
	return c
}
