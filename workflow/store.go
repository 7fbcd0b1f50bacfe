package workflow

import (
	"context"
	"errors"

	"backend/models"
)

// Sentinel errors a Store implementation reports back to the engine. The
// engine translates them into the tagged workflow error taxonomy.
var (
	// ErrNotFound means the indent id does not resolve.
	ErrNotFound = errors.New("indent not found")
	// ErrStatusConflict means the conditional write lost a race: the row's
	// status no longer matched the status the transition was computed from.
	ErrStatusConflict = errors.New("indent status changed concurrently")
)

// ListFilter narrows a Store.List call. Zero values mean "no constraint".
type ListFilter struct {
	RequestorID  int
	Statuses     []models.IndentStatus
	ExcludeTypes []models.IndentType
}

// Store is the persistence collaborator injected into the engine. Save must
// be an atomic compare-and-swap keyed on the expected prior status: the
// status update and any newly appended ledger entries commit together or not
// at all. That per-record atomicity is what prevents two concurrent
// approvals from both landing on the same indent.
type Store interface {
	Load(ctx context.Context, id string) (*models.Indent, error)
	Create(ctx context.Context, ind *models.Indent) error
	Save(ctx context.Context, ind *models.Indent, expected models.IndentStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]models.Indent, error)
}

// Notifier is the fire-and-forget notification collaborator. Implementations
// must never block the transition on delivery and must swallow their own
// failures.
type Notifier interface {
	IndentDecided(ind *models.Indent, decision models.Decision, actorName string)
}
