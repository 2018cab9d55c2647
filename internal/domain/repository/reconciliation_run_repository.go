package repository

import (
	"context"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
)

// ReconciliationRunRepository stores the outcome report of each cycle
type ReconciliationRunRepository interface {
	Save(ctx context.Context, report *entity.ReconciliationReport) error
	FindRecent(ctx context.Context, limit int) ([]*entity.ReconciliationReport, error)
}
