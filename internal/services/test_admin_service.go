package services

import (
	"context"
	"fmt"

	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/events"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
	"github.com/xuri/excelize/v2"
)

// TestAdminService is the teacher-side management of online tests: creating
// and announcing a test, and exporting the grade book.
type TestAdminService interface {
	CreateTest(ctx context.Context, req *CreateTestRequest, actor models.Actor) (*models.OnlineTest, error)
	ExportResults(ctx context.Context, testID uint, actor models.Actor) ([]byte, error)
	ExportUnitGrades(ctx context.Context, unitID uint, actor models.Actor) ([]byte, error)
}

type CreateTestRequest struct {
	Title           string `json:"title" validate:"required,min=1,max=200"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,test_duration"`
	WordIDs         []uint `json:"word_ids" validate:"required,min=1"`
}

type testAdminService struct {
	repo       repositories.Repository
	curriculum *curriculum.Store
	publisher  events.EventPublisher
	logger     utils.Logger
	validator  *utils.Validator
}

func NewTestAdminService(
	repo repositories.Repository,
	store *curriculum.Store,
	publisher events.EventPublisher,
	logger utils.Logger,
	validator *utils.Validator,
) TestAdminService {
	return &testAdminService{
		repo:       repo,
		curriculum: store,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
	}
}

// CreateTest registers the test and broadcasts the announcement to every
// active student.
func (s *testAdminService) CreateTest(ctx context.Context, req *CreateTestRequest, actor models.Actor) (*models.OnlineTest, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "online_test", "create", "teachers only")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	test, err := s.curriculum.RegisterOnlineTest(&models.OnlineTest{
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
		WordIDs:         req.WordIDs,
		CreatedBy:       actor.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register test: %w", err)
	}

	studentIDs := []string{}
	if students, err := s.repo.User().ListStudents(ctx); err == nil {
		for _, student := range students {
			studentIDs = append(studentIDs, student.ID)
		}
	} else {
		s.logger.Warn("Failed to list students for announcement", "test_id", test.ID, "error", err)
	}

	event := events.NewTestPublishedEvent(test.ID, test.Title, test.DurationMinutes, len(test.WordIDs), actor.ID, studentIDs)
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish test announcement", "test_id", test.ID, "error", err)
	}

	s.logger.Info("Online test created",
		"test_id", test.ID,
		"teacher_id", actor.ID,
		"word_count", len(test.WordIDs),
		"duration_minutes", test.DurationMinutes)
	return test, nil
}

// ExportResults writes the roster-wide result list for a test to an xlsx
// grade book.
func (s *testAdminService) ExportResults(ctx context.Context, testID uint, actor models.Actor) ([]byte, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "online_test_results", "export", "teachers only")
	}
	test, err := s.curriculum.OnlineTest(testID)
	if err != nil {
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

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Student ID", "Student Name", "Status", "Submitted At",
		"Duration (s)", "Score", "Grade", "Passed", "Notes",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, student := range students {
		row := s.resultToRow(student, byStudent[student.ID])
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	s.logger.Info("Exported test results", "test_id", testID, "test_title", test.Title, "rows", len(students))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *testAdminService) resultToRow(student *models.User, result *models.OnlineTestResult) []interface{} {
	if result == nil {
		return []interface{}{student.ID, student.FullName, "not submitted", "", "", "", "", "", ""}
	}

	status := "pending"
	grade, passed, notes := "", "", ""
	if result.IsGraded() {
		status = "graded"
		grade = fmt.Sprintf("%d", *result.Grade)
		if result.IsPassed != nil {
			passed = fmt.Sprintf("%t", *result.IsPassed)
		}
		if result.TeacherNotes != nil {
			notes = *result.TeacherNotes
		}
	}

	return []interface{}{
		student.ID,
		student.FullName,
		status,
		result.CompletedAt.Format("2006-01-02 15:04:05"),
		result.DurationSeconds,
		result.Score,
		grade,
		passed,
		notes,
	}
}

// ExportUnitGrades writes every student's grade for a unit to xlsx.
func (s *testAdminService) ExportUnitGrades(ctx context.Context, unitID uint, actor models.Actor) ([]byte, error) {
	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "unit_grades", "export", "teachers only")
	}
	unit, err := s.curriculum.Unit(unitID)
	if err != nil {
		return nil, ErrUnitNotFound
	}

	students, err := s.repo.User().ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Unit Grades"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Student ID", "Student Name", "Grade", "Date", "Notes"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, student := range students {
		row := []interface{}{student.ID, student.FullName, "", "", ""}
		if grade, err := s.repo.UnitGrade().GetByKey(ctx, student.ID, unitID); err == nil {
			row[2] = grade.Grade
			row[3] = grade.Date.Format("2006-01-02")
			if grade.Notes != nil {
				row[4] = *grade.Notes
			}
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	s.logger.Info("Exported unit grades", "unit_id", unitID, "unit_title", unit.Title, "rows", len(students))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
