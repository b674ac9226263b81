package driven

// Renderer converts markdown to HTML.
type Renderer interface {
	Render(markdown string) (string, error)
}
