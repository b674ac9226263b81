// Package github converts GitHub API payloads into canonical entity records.
//
// Repository payloads arrive in two shapes:
//   - REST objects (GET /repos/{owner}/{repo}), decoded with go-github types
//   - graph query nodes from the repositories connection, see GraphRepository
//
// Both yield identical domain.Repository values. Graph nodes do not carry
// the owner's account type, so OwnerKind is left unknown for the caller to
// resolve.
package github
