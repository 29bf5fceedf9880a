package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/wordpath/learning-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type HistoryFilters struct {
	UnitID    *uint      `json:"unit_id"`
	RoundID   *uint      `json:"round_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type RecordFilters struct {
	TeacherID *string    `json:"teacher_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// GradingFields is the set of columns a teacher's grading writes onto an
// existing result row. CompletedAt is deliberately absent.
type GradingFields struct {
	Score        int     `json:"score"`
	Answers      []byte  `json:"answers"`
	IsPassed     bool    `json:"is_passed"`
	Grade        int     `json:"grade"`
	TeacherNotes *string `json:"teacher_notes"`
}

// ===== REPOSITORY INTERFACES =====

// ProgressRepository owns the "latest attempt" rows and their append-only
// history.
type ProgressRepository interface {
	// Upsert inserts the progress row or overwrites it in place, bumping
	// attempt_count atomically in the same statement. It returns the
	// post-update counter.
	Upsert(ctx context.Context, progress *models.StudentRoundProgress) (int, error)
	GetByKey(ctx context.Context, studentID string, unitID, roundID uint) (*models.StudentRoundProgress, error)
	ListByUnit(ctx context.Context, studentID string, unitID uint) ([]*models.StudentRoundProgress, error)

	AppendHistory(ctx context.Context, entry *models.StudentAttemptHistory) error
	ListHistory(ctx context.Context, studentID string, filters HistoryFilters) ([]*models.StudentAttemptHistory, int64, error)
}

// OnlineTestResultRepository owns one row per (student, test).
type OnlineTestResultRepository interface {
	GetByID(ctx context.Context, id uint) (*models.OnlineTestResult, error)
	GetByKey(ctx context.Context, studentID string, testID uint) (*models.OnlineTestResult, error)
	// Upsert overwrites an existing row for the same (student, test) and
	// resets the grading fields to null.
	Upsert(ctx context.Context, result *models.OnlineTestResult) error
	// Grade applies grading fields to an existing row without touching
	// completed_at.
	Grade(ctx context.Context, id uint, fields GradingFields) error
	// ClearResult removes the stored row so the student can retake the test.
	ClearResult(ctx context.Context, studentID string, testID uint) error
	ListByTest(ctx context.Context, testID uint) ([]*models.OnlineTestResult, error)
}

type OfflineScoreRepository interface {
	Create(ctx context.Context, score *models.OfflineTestScore) error
	ListByStudent(ctx context.Context, studentID string, filters RecordFilters) ([]*models.OfflineTestScore, error)
}

type UnitGradeRepository interface {
	// Save inserts a grade or, when one already exists for the same
	// (student, unit), updates that row.
	Save(ctx context.Context, grade *models.StudentUnitGrade) error
	GetByKey(ctx context.Context, studentID string, unitID uint) (*models.StudentUnitGrade, error)
	ListByStudent(ctx context.Context, studentID string) ([]*models.StudentUnitGrade, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ListStudents(ctx context.Context) ([]*models.User, error)
}

// Repository aggregates all repositories, mirrors the storage boundary.
type Repository interface {
	Progress() ProgressRepository
	OnlineTestResult() OnlineTestResultRepository
	OfflineScore() OfflineScoreRepository
	UnitGrade() UnitGradeRepository
	User() UserRepository
}

// ===== ERROR HELPERS =====

func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
