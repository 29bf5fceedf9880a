package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const eventSource = "learning-service"

// EventType represents different types of notification events
type EventType string

const (
	// Round test events
	EventRoundCompleted EventType = "round.completed"

	// Online test events
	EventTestPublished EventType = "test.published"
	EventTestSubmitted EventType = "test.submitted"
	EventTestGraded    EventType = "test.graded"

	// Teacher record events
	EventUnitGradeAssigned EventType = "unit.grade_assigned"
	EventOfflineScoreAdded EventType = "offline_score.added"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Round test event payloads

type RoundCompletedEvent struct {
	StudentID     string    `json:"student_id"`
	UnitID        uint      `json:"unit_id"`
	RoundID       uint      `json:"round_id"`
	Score         int       `json:"score"`
	AttemptNumber int       `json:"attempt_number"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Online test event payloads

// TestPublishedEvent is the teacher's broadcast announcement of a new timed
// test; the notification consumer fans it out to the group chat.
type TestPublishedEvent struct {
	TestID          uint     `json:"test_id"`
	TestTitle       string   `json:"test_title"`
	DurationMinutes int      `json:"duration_minutes"`
	WordCount       int      `json:"word_count"`
	CreatedBy       string   `json:"created_by"`
	StudentIDs      []string `json:"student_ids"`
}

type TestSubmittedEvent struct {
	ResultID        uint      `json:"result_id"`
	TestID          uint      `json:"test_id"`
	TestTitle       string    `json:"test_title"`
	StudentID       string    `json:"student_id"`
	DurationSeconds int       `json:"duration_seconds"`
	CompletedAt     time.Time `json:"completed_at"`
}

type TestGradedEvent struct {
	ResultID  uint   `json:"result_id"`
	TestID    uint   `json:"test_id"`
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	Score     int    `json:"score"`
	Grade     int    `json:"grade"`
	IsPassed  bool   `json:"is_passed"`
}

// Teacher record event payloads

type UnitGradeAssignedEvent struct {
	StudentID string `json:"student_id"`
	UnitID    uint   `json:"unit_id"`
	TeacherID string `json:"teacher_id"`
	Grade     int    `json:"grade"`
}

type OfflineScoreAddedEvent struct {
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	Score     int    `json:"score"`
	Passed    bool   `json:"passed"`
}

// ===== EVENT CONSTRUCTORS =====

func newEvent(eventType EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}

func NewRoundCompletedEvent(studentID string, unitID, roundID uint, score, attemptNumber int, completedAt time.Time) *NotificationEvent {
	return newEvent(EventRoundCompleted, RoundCompletedEvent{
		StudentID:     studentID,
		UnitID:        unitID,
		RoundID:       roundID,
		Score:         score,
		AttemptNumber: attemptNumber,
		CompletedAt:   completedAt,
	})
}

func NewTestPublishedEvent(testID uint, title string, durationMinutes, wordCount int, createdBy string, studentIDs []string) *NotificationEvent {
	return newEvent(EventTestPublished, TestPublishedEvent{
		TestID:          testID,
		TestTitle:       title,
		DurationMinutes: durationMinutes,
		WordCount:       wordCount,
		CreatedBy:       createdBy,
		StudentIDs:      studentIDs,
	})
}

func NewTestSubmittedEvent(resultID, testID uint, title, studentID string, durationSeconds int, completedAt time.Time) *NotificationEvent {
	return newEvent(EventTestSubmitted, TestSubmittedEvent{
		ResultID:        resultID,
		TestID:          testID,
		TestTitle:       title,
		StudentID:       studentID,
		DurationSeconds: durationSeconds,
		CompletedAt:     completedAt,
	})
}

func NewTestGradedEvent(resultID, testID uint, studentID, teacherID string, score, grade int, isPassed bool) *NotificationEvent {
	return newEvent(EventTestGraded, TestGradedEvent{
		ResultID:  resultID,
		TestID:    testID,
		StudentID: studentID,
		TeacherID: teacherID,
		Score:     score,
		Grade:     grade,
		IsPassed:  isPassed,
	})
}

func NewUnitGradeAssignedEvent(studentID string, unitID uint, teacherID string, grade int) *NotificationEvent {
	return newEvent(EventUnitGradeAssigned, UnitGradeAssignedEvent{
		StudentID: studentID,
		UnitID:    unitID,
		TeacherID: teacherID,
		Grade:     grade,
	})
}

func NewOfflineScoreAddedEvent(studentID, teacherID string, score int, passed bool) *NotificationEvent {
	return newEvent(EventOfflineScoreAdded, OfflineScoreAddedEvent{
		StudentID: studentID,
		TeacherID: teacherID,
		Score:     score,
		Passed:    passed,
	})
}
