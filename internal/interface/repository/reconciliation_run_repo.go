package repository

import (
	"context"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/domain/repository"

	"gorm.io/gorm"
)

// GormReconciliationRunRepository implements the ReconciliationRunRepository interface
type GormReconciliationRunRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRunRepository creates a new GORM run history repository
func NewGormReconciliationRunRepository(db *gorm.DB) *GormReconciliationRunRepository {
	return &GormReconciliationRunRepository{
		db: db,
	}
}

var _ repository.ReconciliationRunRepository = (*GormReconciliationRunRepository)(nil)

// ReconciliationRuns GORM model for database mapping
type ReconciliationRuns struct {
	ID           uint      `gorm:"primaryKey"`
	RunID        string    `gorm:"column:run_id;uniqueIndex"`
	StartedAt    time.Time `gorm:"column:started_at;index"`
	FinishedAt   time.Time `gorm:"column:finished_at"`
	Candidates   int       `gorm:"column:candidates"`
	Transitioned int       `gorm:"column:transitioned"`
	Unchanged    int       `gorm:"column:unchanged"`
	Failed       int       `gorm:"column:failed"`
	Skipped      int       `gorm:"column:skipped"`
	Aborted      bool      `gorm:"column:aborted"`
	CreatedAt    time.Time
}

// TableName overrides the default table name
func (ReconciliationRuns) TableName() string {
	return "reconciliation_runs"
}

// Migrate creates or updates the run history table
func (r *GormReconciliationRunRepository) Migrate() error {
	return r.db.AutoMigrate(&ReconciliationRuns{})
}

// Save inserts one cycle report
func (r *GormReconciliationRunRepository) Save(ctx context.Context, report *entity.ReconciliationReport) error {
	model := ReconciliationRuns{
		RunID:        report.RunID,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Candidates:   report.Candidates,
		Transitioned: report.Transitioned,
		Unchanged:    report.Unchanged,
		Failed:       report.Failed,
		Skipped:      report.Skipped,
		Aborted:      report.Aborted,
	}

	return r.db.WithContext(ctx).Create(&model).Error
}

// FindRecent returns the latest cycle reports, newest first
func (r *GormReconciliationRunRepository) FindRecent(ctx context.Context, limit int) ([]*entity.ReconciliationReport, error) {
	var runs []ReconciliationRuns
	result := r.db.WithContext(ctx).
		Order("started_at desc").
		Limit(limit).
		Find(&runs)

	if result.Error != nil {
		return nil, result.Error
	}

	// Convert to domain entities
	reports := make([]*entity.ReconciliationReport, 0, len(runs))
	for _, run := range runs {
		reports = append(reports, &entity.ReconciliationReport{
			RunID:        run.RunID,
			StartedAt:    run.StartedAt,
			FinishedAt:   run.FinishedAt,
			Candidates:   run.Candidates,
			Transitioned: run.Transitioned,
			Unchanged:    run.Unchanged,
			Failed:       run.Failed,
			Skipped:      run.Skipped,
			Aborted:      run.Aborted,
		})
	}

	return reports, nil
}

// NoopReconciliationRunRepository is used when run history is not configured
type NoopReconciliationRunRepository struct{}

func (NoopReconciliationRunRepository) Save(ctx context.Context, report *entity.ReconciliationReport) error {
	return nil
}

func (NoopReconciliationRunRepository) FindRecent(ctx context.Context, limit int) ([]*entity.ReconciliationReport, error) {
	return []*entity.ReconciliationReport{}, nil
}
