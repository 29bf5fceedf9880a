package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

// GradingService is the teacher-side workflow over submitted online tests:
// result listing across the full roster, per-answer correctness marking and
// the retake reset.
type GradingService interface {
	ListResults(ctx context.Context, testID uint, actor models.Actor) ([]models.ResultListEntry, error)
	GradeResult(ctx context.Context, testID uint, studentID string, req *GradeResultRequest, actor models.Actor) (*models.OnlineTestResult, error)
	// AllowRetake clears a stored result so the student can take the test
	// again. This is the only path back from "submitted".
	AllowRetake(ctx context.Context, testID uint, studentID string, actor models.Actor) error
}

type AnswerMark struct {
	WordID  uint  `json:"word_id" validate:"required"`
	Correct *bool `json:"correct" validate:"required"`
}

type GradeResultRequest struct {
	Marks        []AnswerMark `json:"marks" validate:"dive"`
	Grade        int          `json:"grade" validate:"required,grade_value"`
	IsPassed     bool         `json:"is_passed"`
	TeacherNotes *string      `json:"teacher_notes"`
}

type gradingService struct {
	repo       repositories.Repository
	curriculum *curriculum.Store
	publisher  events.EventPublisher
	logger     utils.Logger
	validator  *utils.Validator
}

func NewGradingService(
	repo repositories.Repository,
	store *curriculum.Store,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) GradingService {
	return &gradingService{
		repo:       repo,
		curriculum: store,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
	}
}

// ListResults cross-joins stored results against the student roster, so
// students who never submitted appear as explicit placeholders instead of
// being invisible. Placeholders are a read-side construct only.
func (s *gradingService) ListResults(ctx context.Context, testID uint, actor models.Actor) ([]models.ResultListEntry, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "online_test_results", "list", "teachers only")
	}
	if _, err := s.curriculum.OnlineTest(testID); err != nil {
		return nil, ErrTestNotFound
	}

	results, err := s.repo.OnlineTestResult().ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	byStudent := make(map[string]*models.OnlineTestResult, len(results))
	for _, r := range results {
		byStudent[r.StudentID] = r
	}

	students, err := s.repo.User().ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	entries := make([]models.ResultListEntry, 0, len(students))
	for _, student := range students {
		entries = append(entries, models.ResultListEntry{
			StudentID:    student.ID,
			StudentName:  student.FullName,
			OnlineTestID: testID,
			Submitted:    byStudent[student.ID],
		})
	}
	return entries, nil
}

// GradeResult validates everything before any write, materializes an empty
// submission when the student never submitted, recomputes the score from the
// teacher's marks and overlays the grading fields onto the row. The stored
// completed_at is never touched and is_passed is taken from the teacher, not
// derived from a threshold.
func (s *gradingService) GradeResult(ctx context.Context, testID uint, studentID string, req *GradeResultRequest, actor models.Actor) (*models.OnlineTestResult, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "online_test_result", "grade", "teachers only")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.Grade < 2 || req.Grade > 5 {
		return nil, ErrGradeOutOfRange
	}
	if _, err := s.curriculum.OnlineTest(testID); err != nil {
		return nil, ErrTestNotFound
	}

	result, err := s.repo.OnlineTestResult().GetByKey(ctx, studentID, testID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get result: %w", err)
		}
		result, err = s.materializeEmptySubmission(ctx, studentID, testID)
		if err != nil {
			return nil, err
		}
	}

	var answers []models.OnlineTestAnswer
	if err := json.Unmarshal(result.Answers, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode stored answers: %w", err)
	}

	// Every stored answer needs a mark before anything is written.
	marks := make(map[uint]bool, len(req.Marks))
	for _, m := range req.Marks {
		marks[m.WordID] = *m.Correct
	}
	for i := range answers {
		correct, ok := marks[answers[i].WordID]
		if !ok {
			return nil, ErrIncompleteGrading
		}
		c := correct
		answers[i].Correct = &c
	}

	score := ScoreGradedAnswers(answers)
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graded answers: %w", err)
	}

	fields := repositories.GradingFields{
		Score:        score,
		Answers:      answersJSON,
		IsPassed:     req.IsPassed,
		Grade:        req.Grade,
		TeacherNotes: req.TeacherNotes,
	}
	if err := s.repo.OnlineTestResult().Grade(ctx, result.ID, fields); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to persist grading: %w", err)
	}

	result.Score = score
	result.Answers = answersJSON
	isPassed := req.IsPassed
	grade := req.Grade
	result.IsPassed = &isPassed
	result.Grade = &grade
	result.TeacherNotes = req.TeacherNotes

	event := events.NewTestGradedEvent(result.ID, testID, studentID, actor.ID, score, req.Grade, req.IsPassed)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish test graded event", "result_id", result.ID, "error", err)
	}

	s.logger.Info("Online test graded",
		"result_id", result.ID,
		"test_id", testID,
		"student_id", studentID,
		"teacher_id", actor.ID,
		"score", score,
		"grade", req.Grade)

	return result, nil
}

func (s *gradingService) AllowRetake(ctx context.Context, testID uint, studentID string, actor models.Actor) error {
	if !actor.IsTeacher() {
		return NewPermissionError(actor.ID, "online_test_result", "reset", "teachers only")
	}

	if err := s.repo.OnlineTestResult().ClearResult(ctx, studentID, testID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResultNotFound
		}
		return fmt.Errorf("failed to clear result: %w", err)
	}

	s.logger.Info("Online test result cleared for retake",
		"test_id", testID,
		"student_id", studentID,
		"teacher_id", actor.ID)
	return nil
}

// materializeEmptySubmission turns a roster placeholder into a real row so
// grading has something to write onto: no answers, zero duration, completed
// now. The student must exist on the roster; a mistyped id must not create
// an orphan result.
func (s *gradingService) materializeEmptySubmission(ctx context.Context, studentID string, testID uint) (*models.OnlineTestResult, error) {
	if _, err := s.repo.User().GetByID(ctx, studentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}

	answersJSON, err := json.Marshal([]models.OnlineTestAnswer{})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal empty answers: %w", err)
	}

	result := &models.OnlineTestResult{
		StudentID:       studentID,
		OnlineTestID:    testID,
		Score:           0,
		Answers:         answersJSON,
		CompletedAt:     time.Now(),
		DurationSeconds: 0,
	}
	if err := s.repo.OnlineTestResult().Upsert(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to materialize empty submission: %w", err)
	}

	s.logger.Info("Materialized empty submission for grading",
		"test_id", testID,
		"student_id", studentID,
		"result_id", result.ID)
	return result, nil
}
