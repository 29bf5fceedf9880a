package postgres

import (
	"context"
	"time"

	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

// Upsert writes the latest-attempt row in a single statement. On conflict
// with the (student, unit, round) key the row is overwritten and the counter
// is bumped inside the same statement, so two racing completions cannot both
// observe the same attempt_count. RETURNING feeds the post-update counter
// back into the model.
func (p ProgressPostgreSQL) Upsert(ctx context.Context, progress *models.StudentRoundProgress) (int, error) {
	progress.AttemptCount = 1

	err := p.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "unit_id"}, {Name: "round_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":         progress.Score,
				"attempts":      progress.Attempts,
				"completed":     progress.Completed,
				"completed_at":  progress.CompletedAt,
				"attempt_count": gorm.Expr("student_round_progress.attempt_count + 1"),
				"updated_at":    time.Now(),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "attempt_count"}}},
	).Create(progress).Error
	if err != nil {
		return 0, err
	}

	return progress.AttemptCount, nil
}

func (p ProgressPostgreSQL) GetByKey(ctx context.Context, studentID string, unitID, roundID uint) (*models.StudentRoundProgress, error) {
	var progress models.StudentRoundProgress
	if err := p.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ? AND round_id = ?", studentID, unitID, roundID).
		First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

func (p ProgressPostgreSQL) ListByUnit(ctx context.Context, studentID string, unitID uint) ([]*models.StudentRoundProgress, error) {
	var rows []*models.StudentRoundProgress
	if err := p.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		Order("round_id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (p ProgressPostgreSQL) AppendHistory(ctx context.Context, entry *models.StudentAttemptHistory) error {
	return p.db.WithContext(ctx).Create(entry).Error
}

func (p ProgressPostgreSQL) ListHistory(ctx context.Context, studentID string, filters repositories.HistoryFilters) ([]*models.StudentAttemptHistory, int64, error) {
	var rows []*models.StudentAttemptHistory
	var total int64

	query := p.db.WithContext(ctx).Model(&models.StudentAttemptHistory{}).
		Where("student_id = ?", studentID)
	query = p.applyHistoryFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = p.applyPaginationAndSort(query, filters)

	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func (p ProgressPostgreSQL) applyHistoryFilters(query *gorm.DB, filters repositories.HistoryFilters) *gorm.DB {
	if filters.UnitID != nil {
		query = query.Where("unit_id = ?", *filters.UnitID)
	}
	if filters.RoundID != nil {
		query = query.Where("round_id = ?", *filters.RoundID)
	}
	if filters.DateFrom != nil {
		query = query.Where("completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("completed_at <= ?", *filters.DateTo)
	}
	return query
}

func (p ProgressPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.HistoryFilters) *gorm.DB {
	order := "attempt_number desc"
	if filters.SortOrder == "asc" {
		order = "attempt_number asc"
	}
	query = query.Order(order)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
