package services

import (
	"context"
	"fmt"
	"time"

	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

// RecordsService covers the teacher-authored records: offline test scores
// and per-unit grades.
type RecordsService interface {
	AddOfflineScore(ctx context.Context, req *OfflineScoreRequest, actor models.Actor) (*models.OfflineTestScore, error)
	ListOfflineScores(ctx context.Context, studentID string, filters repositories.RecordFilters, actor models.Actor) ([]*models.OfflineTestScore, error)
	AssignUnitGrade(ctx context.Context, req *UnitGradeRequest, actor models.Actor) (*models.StudentUnitGrade, error)
	ListUnitGrades(ctx context.Context, studentID string, actor models.Actor) ([]*models.StudentUnitGrade, error)
}

type OfflineScoreRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Score     int     `json:"score" validate:"required,grade_value"`
	Passed    bool    `json:"passed"`
	Notes     *string `json:"notes"`
	Date      *time.Time `json:"date"`
}

type UnitGradeRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	UnitID    uint    `json:"unit_id" validate:"required"`
	Grade     int     `json:"grade" validate:"required,grade_value"`
	Notes     *string `json:"notes"`
	Date      *time.Time `json:"date"`
}

type recordsService struct {
	repo       repositories.Repository
	curriculum *curriculum.Store
	publisher  events.EventPublisher
	logger     utils.Logger
	validator  *utils.Validator
}

func NewRecordsService(
	repo repositories.Repository,
	store *curriculum.Store,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) RecordsService {
	return &recordsService{
		repo:       repo,
		curriculum: store,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
	}
}

func (s *recordsService) AddOfflineScore(ctx context.Context, req *OfflineScoreRequest, actor models.Actor) (*models.OfflineTestScore, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "offline_score", "create", "teachers only")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if _, err := s.repo.User().GetByID(ctx, req.StudentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	score := &models.OfflineTestScore{
		StudentID: req.StudentID,
		TeacherID: actor.ID,
		Score:     req.Score,
		Passed:    req.Passed,
		Notes:     req.Notes,
		Date:      date,
	}
	if err := s.repo.OfflineScore().Create(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to create offline score: %w", err)
	}

	event := events.NewOfflineScoreAddedEvent(req.StudentID, actor.ID, req.Score, req.Passed)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish offline score event", "student_id", req.StudentID, "error", err)
	}

	s.logger.Info("Offline score recorded",
		"student_id", req.StudentID,
		"teacher_id", actor.ID,
		"score", req.Score)
	return score, nil
}

func (s *recordsService) ListOfflineScores(ctx context.Context, studentID string, filters repositories.RecordFilters, actor models.Actor) ([]*models.OfflineTestScore, error) {
	if !actor.IsTeacher() && actor.ID != studentID {
		return nil, NewPermissionError(actor.ID, "offline_scores", "list", "students may only read their own scores")
	}
	scores, err := s.repo.OfflineScore().ListByStudent(ctx, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline scores: %w", err)
	}
	return scores, nil
}

// AssignUnitGrade keeps one grade per (student, unit): grading an already
// graded unit updates the stored row.
func (s *recordsService) AssignUnitGrade(ctx context.Context, req *UnitGradeRequest, actor models.Actor) (*models.StudentUnitGrade, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "unit_grade", "assign", "teachers only")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if _, err := s.curriculum.Unit(req.UnitID); err != nil {
		return nil, ErrUnitNotFound
	}
	if _, err := s.repo.User().GetByID(ctx, req.StudentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	grade := &models.StudentUnitGrade{
		StudentID: req.StudentID,
		UnitID:    req.UnitID,
		TeacherID: actor.ID,
		Grade:     req.Grade,
		Notes:     req.Notes,
		Date:      date,
	}
	if err := s.repo.UnitGrade().Save(ctx, grade); err != nil {
		return nil, fmt.Errorf("failed to save unit grade: %w", err)
	}

	event := events.NewUnitGradeAssignedEvent(req.StudentID, req.UnitID, actor.ID, req.Grade)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish unit grade event", "student_id", req.StudentID, "error", err)
	}

	s.logger.Info("Unit grade assigned",
		"student_id", req.StudentID,
		"unit_id", req.UnitID,
		"teacher_id", actor.ID,
		"grade", req.Grade)
	return grade, nil
}

func (s *recordsService) ListUnitGrades(ctx context.Context, studentID string, actor models.Actor) ([]*models.StudentUnitGrade, error) {
	if !actor.IsTeacher() && actor.ID != studentID {
		return nil, NewPermissionError(actor.ID, "unit_grades", "list", "students may only read their own grades")
	}
	grades, err := s.repo.UnitGrade().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit grades: %w", err)
	}
	return grades, nil
}
