package driven

import (
	"context"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

// ConduitClient defines the driven port for the token-authenticated
// Conduit API.
type ConduitClient interface {
	// LookupRevisionPHID resolves a numeric revision id to its PHID.
	// Returns ErrNotFound when the revision does not exist.
	LookupRevisionPHID(ctx context.Context, revisionID int) (string, error)

	// SearchTransactions returns every transaction recorded on the object,
	// following the result cursor until exhausted.
	SearchTransactions(ctx context.Context, objectPHID string) ([]model.Transaction, error)

	// LookupUser resolves a user PHID to a display name. Implementations
	// never fail a run over this; an unresolvable PHID comes back as an error
	// and the caller decides the fallback.
	LookupUser(ctx context.Context, userPHID string) (string, error)

	// LatestDiffID returns the newest diff id attached to the revision.
	// Returns ErrNotFound when the revision has no diffs.
	LatestDiffID(ctx context.Context, revisionID int) (int64, error)
}
