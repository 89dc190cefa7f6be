package patient

import (
	"context"

	"github.com/trialsync/trialsync/pkg/types/common"
)

// Repository is the persistence contract for patient profiles.
type Repository interface {
	// Create inserts a new profile and fills in its generated ID.
	Create(ctx context.Context, p *Profile) error

	// GetByID fetches a single profile. Returns a not-found error when absent.
	GetByID(ctx context.Context, id common.ID) (*Profile, error)

	// GetByPhone fetches the profile carrying the given phone number.
	GetByPhone(ctx context.Context, phone string) (*Profile, error)

	// GetByEmail fetches the profile carrying the given contact email.
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// List returns all stored profiles, most recently created first.
	List(ctx context.Context, page common.Pagination) ([]*Profile, error)

	// Update rewrites the mutable columns of an existing profile.
	Update(ctx context.Context, p *Profile) error

	// UpsertByPhone inserts the profile, or merges it into the stored row
	// carrying the same phone number. Used by intake, where phone numbers
	// are the stable key across calls.
	UpsertByPhone(ctx context.Context, p *Profile) (*Profile, error)

	// UpdateEligibility replaces the persisted match summaries for a patient.
	UpdateEligibility(ctx context.Context, id common.ID, current, future []TrialMatch) error

	// UpdatePredictions replaces the progression oracle's predicted
	// conditions alongside the future-trial summary they produced.
	UpdatePredictions(ctx context.Context, id common.ID, conditions []string, future []TrialMatch) error

	// Delete removes a profile.
	Delete(ctx context.Context, id common.ID) error
}
