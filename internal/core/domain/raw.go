package domain

import "encoding/json"

// Origin identifies which API protocol produced a payload.
type Origin string

const (
	// OriginREST marks flat REST objects.
	OriginREST Origin = "rest"
	// OriginGraph marks cursor-paginated graph query nodes.
	OriginGraph Origin = "graph"
)

// RawNode is an undecoded API payload handed to the normaliser.
type RawNode struct {
	// Origin is the protocol that produced Payload.
	Origin Origin

	// Kind is the entity kind the payload describes.
	Kind EntityKind

	// Payload is the JSON object as returned by the API.
	Payload json.RawMessage
}

// GraphPage is one page of a graph query connection.
type GraphPage struct {
	// Nodes are the raw repository nodes on this page.
	Nodes []RawNode

	// HasNextPage reports whether another page exists.
	HasNextPage bool

	// EndCursor is passed back to fetch the next page.
	EndCursor string
}
