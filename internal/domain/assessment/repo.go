package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows assessment queries. Search matches hospital number and
// patient names case-insensitively; zero time bounds and an empty diagnosis
// disable their filters. Limit 0 means unbounded.
type ListFilter struct {
	Search    string
	Diagnosis string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	Update(ctx context.Context, a *Assessment) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	List(ctx context.Context, f ListFilter) ([]*Assessment, error)
	Count(ctx context.Context, f ListFilter) (int, error)

	CountAll(ctx context.Context) (int, error)
	CountPatients(ctx context.Context) (int, error)
	CountSince(ctx context.Context, t time.Time) (int, error)
	DiagnosisBreakdown(ctx context.Context) (map[string]int, error)
}
