package driven

import (
	"context"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

// RequestAuditor receives one record per outbound API request.
// ctx is the request context; it may carry a run id (domain.RunFromContext).
type RequestAuditor interface {
	RecordRequest(ctx context.Context, rec domain.RequestRecord)
}
