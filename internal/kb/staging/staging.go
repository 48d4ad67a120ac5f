// Package staging provides the TTL-bound staging store for drafts.
//
// Drafts live only here until finalization promotes them into the relational
// store. Every Put refreshes the TTL, giving drafts a sliding inactivity
// window rather than a fixed lifetime.
package staging

import (
	"context"
	"time"

	"github.com/kart-io/sentinel-kb/internal/model"
)

// DefaultTTL is the draft inactivity window applied when options leave it unset.
const DefaultTTL = 24 * time.Hour

// Store is the draft staging store.
type Store interface {
	// Put creates or replaces a draft and refreshes its TTL.
	// The draft's ExpiresAt is updated to reflect the new deadline.
	Put(ctx context.Context, draft *model.Draft) error

	// Get returns the draft by id. Expired or missing drafts return
	// errors.ErrDraftNotFound; the caller cannot distinguish the two.
	Get(ctx context.Context, id string) (*model.Draft, error)

	// Delete removes the draft. Deleting a missing draft is not an error.
	Delete(ctx context.Context, id string) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
