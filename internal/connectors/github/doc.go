// Package github implements the harvester's GitHub API client.
//
// The client serves two protocols through one HTTP transport:
//
//   - REST v3 via go-github: repository, organization and user detail
//     objects, READMEs and repository files
//   - GraphQL v4 via githubv4: cursor-paginated repository listings of an
//     organization or user
//
// # Identity
//
// The token, X-GitHub-Api-Version and User-Agent are fixed at construction
// and applied to every request. Requests without a token are sent
// unauthenticated and are limited to 60 per hour; graph queries require a
// token.
//
// # Rate Limiting
//
// All requests share one pace (RequestsPerSecond) so a long harvest spreads
// its calls over the hour. REST and GraphQL draw from separate quota pools;
// each pool is tracked from the X-RateLimit-* headers of its responses, and
// a request waits for its pool's reset once only the reserve is left. The
// client never retries; the harvester decides.
//
// # Errors
//
// Errors match the domain taxonomy through errors.Is:
//
//   - TransportError: the request could not complete (domain.ErrTransport)
//   - APIError: a non-success HTTP status (domain.ErrProtocol)
//   - RateLimitError: the rate limit was exceeded (domain.ErrRateLimited)
//   - GraphQLError: the graph query returned errors (domain.ErrProtocol)
//   - undecodable bodies wrap domain.ErrMalformed
//
// # Audit
//
// Every request is reported to an optional driven.RequestAuditor with its
// method, endpoint, status, duration and transport error.
package github
