package postgres

import (
	"context"
	"time"

	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OnlineTestResultPostgreSQL struct {
	db *gorm.DB
}

func NewOnlineTestResultPostgreSQL(db *gorm.DB) repositories.OnlineTestResultRepository {
	return &OnlineTestResultPostgreSQL{db: db}
}

func (r OnlineTestResultPostgreSQL) GetByID(ctx context.Context, id uint) (*models.OnlineTestResult, error) {
	var result models.OnlineTestResult
	if err := r.db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r OnlineTestResultPostgreSQL) GetByKey(ctx context.Context, studentID string, testID uint) (*models.OnlineTestResult, error) {
	var result models.OnlineTestResult
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND online_test_id = ?", studentID, testID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// Upsert stores a submission. A conflicting row for the same (student, test)
// is overwritten and its grading fields are reset to null, returning the row
// to the pending state.
func (r OnlineTestResultPostgreSQL) Upsert(ctx context.Context, result *models.OnlineTestResult) error {
	return r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "online_test_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":            result.Score,
				"answers":          result.Answers,
				"completed_at":     result.CompletedAt,
				"duration_seconds": result.DurationSeconds,
				"is_passed":        nil,
				"grade":            nil,
				"teacher_notes":    nil,
				"updated_at":       time.Now(),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "id"}}},
	).Create(result).Error
}

// Grade overlays teacher judgments onto an existing row. completed_at is
// left untouched.
func (r OnlineTestResultPostgreSQL) Grade(ctx context.Context, id uint, fields repositories.GradingFields) error {
	res := r.db.WithContext(ctx).Model(&models.OnlineTestResult{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":         fields.Score,
			"answers":       fields.Answers,
			"is_passed":     fields.IsPassed,
			"grade":         fields.Grade,
			"teacher_notes": fields.TeacherNotes,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r OnlineTestResultPostgreSQL) ClearResult(ctx context.Context, studentID string, testID uint) error {
	res := r.db.WithContext(ctx).
		Where("student_id = ? AND online_test_id = ?", studentID, testID).
		Delete(&models.OnlineTestResult{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r OnlineTestResultPostgreSQL) ListByTest(ctx context.Context, testID uint) ([]*models.OnlineTestResult, error) {
	var results []*models.OnlineTestResult
	if err := r.db.WithContext(ctx).
		Where("online_test_id = ?", testID).
		Order("completed_at desc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
