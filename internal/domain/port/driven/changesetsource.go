package driven

import (
	"context"

	"github.com/ericfisherdev/phabdigest/internal/domain/model"
)

// ChangesetSource defines the driven port for fetching rendered changeset
// fragments from the cookie-authenticated endpoint.
type ChangesetSource interface {
	// FetchFragment returns the rendered diff view for one changeset
	// reference. A response that arrives but cannot be decoded wraps
	// ErrMalformedPayload; transport failures return as-is.
	FetchFragment(ctx context.Context, ref int64) (*model.ChangesetFragment, error)
}
