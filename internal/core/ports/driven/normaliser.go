package driven

import "github.com/custodia-labs/harvester/internal/core/domain"

// Normaliser converts raw API payloads into canonical entity records.
// Payloads that lack the expected shape yield an error wrapping domain.ErrMalformed.
type Normaliser interface {
	// Normalise converts a REST or graph repository payload.
	// ownerLogin is used when the payload does not name its owner.
	Normalise(raw domain.RawNode, ownerLogin string) (*domain.Repository, error)

	// Organization converts a REST organization payload.
	Organization(raw domain.RawNode) (*domain.Organization, error)

	// User converts a REST user payload.
	User(raw domain.RawNode) (*domain.User, error)
}
