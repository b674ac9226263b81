package github

import (
	"context"
	"net/http"
	"time"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

const (
	headerAPIVersion = "X-GitHub-Api-Version"
	headerUserAgent  = "User-Agent"
)

// responseStatus records what the transport saw for one request. The graph
// client reads it because githubv4 does not expose the HTTP response.
type responseStatus struct {
	code      int
	rateLimit error
}

type responseStatusKey struct{}

func withResponseStatus(ctx context.Context) (context.Context, *responseStatus) {
	st := &responseStatus{}
	return context.WithValue(ctx, responseStatusKey{}, st), st
}

// transport applies the client identity, throttles, and audits each request.
type transport struct {
	base       http.RoundTripper
	apiVersion string
	userAgent  string
	limiter    *RateLimiter
	auditor    driven.RequestAuditor
}

// RoundTrip implements http.RoundTripper.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()
	res := resourceOf(req)

	if err := t.limiter.Wait(ctx, res); err != nil {
		t.audit(ctx, req, 0, time.Since(start), err)
		return nil, err
	}

	req = req.Clone(ctx)
	req.Header.Set(headerAPIVersion, t.apiVersion)
	req.Header.Set(headerUserAgent, t.userAgent)

	resp, err := t.base.RoundTrip(req)
	status := 0
	var limitErr error
	if resp != nil {
		status = resp.StatusCode
		limitErr = t.limiter.Observe(res, resp)
	}
	if st, ok := ctx.Value(responseStatusKey{}).(*responseStatus); ok {
		st.code = status
		st.rateLimit = limitErr
	}

	t.audit(ctx, req, status, time.Since(start), err)
	return resp, err
}

func (t *transport) audit(ctx context.Context, req *http.Request, status int, d time.Duration, err error) {
	if t.auditor == nil {
		return
	}
	t.auditor.RecordRequest(ctx, domain.RequestRecord{
		Method:   req.Method,
		Endpoint: req.URL.Path,
		Status:   status,
		Duration: d,
		Err:      err,
	})
}
