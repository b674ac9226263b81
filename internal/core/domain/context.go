package domain

import "context"

type runContextKey struct{}

// ContextWithRun returns a context that attributes work to runID.
// The API client's audit hook uses it to correlate requests with runs.
func ContextWithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runContextKey{}, runID)
}

// RunFromContext returns the run id attached to ctx, if any.
func RunFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runContextKey{}).(string)
	return id, ok && id != ""
}
