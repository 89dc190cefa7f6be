package trial

import (
	"context"

	"github.com/trialsync/trialsync/pkg/types/common"
)

// Repository is the persistence contract for trial records.
type Repository interface {
	// Create inserts a new record and fills in its generated ID.
	Create(ctx context.Context, rec *Record) error

	// GetByID fetches a single record. Returns a not-found error when absent.
	GetByID(ctx context.Context, id common.ID) (*Record, error)

	// GetByNCTID fetches a record by its public registry identifier.
	GetByNCTID(ctx context.Context, nctID string) (*Record, error)

	// List returns all stored trials, most recently created first.
	List(ctx context.Context, page common.Pagination) ([]*Record, error)

	// Update rewrites the mutable columns of an existing record.
	Update(ctx context.Context, rec *Record) error

	// UpsertByTitle inserts the record, or updates the stored row carrying
	// the same title. Used by registry sync, where titles are the stable key.
	UpsertByTitle(ctx context.Context, rec *Record) (*Record, error)

	// UpdateEligibility replaces the persisted match summaries for a trial.
	UpdateEligibility(ctx context.Context, id common.ID, eligible, future []PatientMatch) error

	// Delete removes a record.
	Delete(ctx context.Context, id common.ID) error
}
