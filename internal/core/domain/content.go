package domain

import "time"

// ReadmeFilename is the filename READMEs are stored under.
const ReadmeFilename = "README.md"

// Content is an ancillary file attached to an entity.
// One version is kept per (Kind, EntityID, Filename).
type Content struct {
	Kind      EntityKind
	EntityID  int64
	Filename  string
	Raw       string
	Rendered  string
	FetchedAt time.Time
}
