package patient

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows the ward list. Status "ALL" disables the status
// filter; Search matches hospital number and names case-insensitively.
type ListFilter struct {
	Search string
	Status string
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	Upsert(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByHN(ctx context.Context, hn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*WithAdmissions, error)
	VisitsByHN(ctx context.Context, hn string) ([]*VisitSummary, error)

	CreateAdmission(ctx context.Context, a *Admission) error
	GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error)
	ActiveAdmission(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	UpdateAdmission(ctx context.Context, a *Admission) error
	ListAdmissions(ctx context.Context, patientID uuid.UUID, withNotes bool) ([]*Admission, error)
	AdmissionNumberTaken(ctx context.Context, an string, excludeID uuid.UUID) (bool, error)

	CreateNote(ctx context.Context, n *ProgressNote) error
	GetNote(ctx context.Context, id uuid.UUID) (*ProgressNote, error)
	ListNotes(ctx context.Context, admissionID uuid.UUID) ([]*ProgressNote, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error
}
