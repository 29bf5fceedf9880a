package postgres

import (
	"context"
	"errors"

	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"gorm.io/gorm"
)

type OfflineScorePostgreSQL struct {
	db *gorm.DB
}

func NewOfflineScorePostgreSQL(db *gorm.DB) repositories.OfflineScoreRepository {
	return &OfflineScorePostgreSQL{db: db}
}

func (o OfflineScorePostgreSQL) Create(ctx context.Context, score *models.OfflineTestScore) error {
	return o.db.WithContext(ctx).Create(score).Error
}

func (o OfflineScorePostgreSQL) ListByStudent(ctx context.Context, studentID string, filters repositories.RecordFilters) ([]*models.OfflineTestScore, error) {
	var scores []*models.OfflineTestScore

	query := o.db.WithContext(ctx).Where("student_id = ?", studentID)
	if filters.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filters.TeacherID)
	}
	if filters.DateFrom != nil {
		query = query.Where("date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("date <= ?", *filters.DateTo)
	}
	query = query.Order("date desc")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

type UnitGradePostgreSQL struct {
	db *gorm.DB
}

func NewUnitGradePostgreSQL(db *gorm.DB) repositories.UnitGradeRepository {
	return &UnitGradePostgreSQL{db: db}
}

// Save keeps unit grades unique per (student, unit): an existing row is
// updated in place rather than duplicated.
func (u UnitGradePostgreSQL) Save(ctx context.Context, grade *models.StudentUnitGrade) error {
	var existing models.StudentUnitGrade
	err := u.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", grade.StudentID, grade.UnitID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return u.db.WithContext(ctx).Create(grade).Error
		}
		return err
	}

	existing.TeacherID = grade.TeacherID
	existing.Grade = grade.Grade
	existing.Notes = grade.Notes
	existing.Date = grade.Date
	if err := u.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	*grade = existing
	return nil
}

func (u UnitGradePostgreSQL) GetByKey(ctx context.Context, studentID string, unitID uint) (*models.StudentUnitGrade, error) {
	var grade models.StudentUnitGrade
	if err := u.db.WithContext(ctx).
		Where("student_id = ? AND unit_id = ?", studentID, unitID).
		First(&grade).Error; err != nil {
		return nil, err
	}
	return &grade, nil
}

func (u UnitGradePostgreSQL) ListByStudent(ctx context.Context, studentID string) ([]*models.StudentUnitGrade, error) {
	var grades []*models.StudentUnitGrade
	if err := u.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("unit_id asc").
		Find(&grades).Error; err != nil {
		return nil, err
	}
	return grades, nil
}

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u UserPostgreSQL) ListStudents(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := u.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleStudent, true).
		Order("full_name asc").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
