package postgres

import (
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB

	progress     repositories.ProgressRepository
	testResult   repositories.OnlineTestResultRepository
	offlineScore repositories.OfflineScoreRepository
	unitGrade    repositories.UnitGradeRepository
	user         repositories.UserRepository
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &Repository{
		db:           db,
		progress:     NewProgressPostgreSQL(db),
		testResult:   NewOnlineTestResultPostgreSQL(db),
		offlineScore: NewOfflineScorePostgreSQL(db),
		unitGrade:    NewUnitGradePostgreSQL(db),
		user:         NewUserPostgreSQL(db),
	}
}

func (r *Repository) Progress() repositories.ProgressRepository {
	return r.progress
}

func (r *Repository) OnlineTestResult() repositories.OnlineTestResultRepository {
	return r.testResult
}

func (r *Repository) OfflineScore() repositories.OfflineScoreRepository {
	return r.offlineScore
}

func (r *Repository) UnitGrade() repositories.UnitGradeRepository {
	return r.unitGrade
}

func (r *Repository) User() repositories.UserRepository {
	return r.user
}

// AutoMigrate provisions all persisted tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.StudentRoundProgress{},
		&models.StudentAttemptHistory{},
		&models.OnlineTestResult{},
		&models.OfflineTestScore{},
		&models.StudentUnitGrade{},
	)
}
