package models

import (
	"time"

	"gorm.io/datatypes"
)

// OnlineTestAnswer captures one word's submitted answer. Correct stays nil
// until a teacher grades the submission.
type OnlineTestAnswer struct {
	WordID     uint   `json:"word_id"`
	UserAnswer string `json:"user_answer"`
	Correct    *bool  `json:"correct"`
}

// OnlineTestResult holds a student's submission for a timed online test.
// At most one row exists per (student, test); grading fills IsPassed, Grade
// and TeacherNotes in place. All three nil means the submission is pending.
type OnlineTestResult struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	StudentID    string         `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_online_test_result_key,priority:1"`
	OnlineTestID uint           `json:"online_test_id" gorm:"not null;uniqueIndex:idx_online_test_result_key,priority:2"`
	Score        int            `json:"score" gorm:"not null"`
	Answers      datatypes.JSON `json:"answers" gorm:"type:jsonb"` // []OnlineTestAnswer

	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds int       `json:"duration_seconds" gorm:"not null"`

	// Grading fields, null until a teacher grades the row.
	IsPassed     *bool   `json:"is_passed"`
	Grade        *int    `json:"grade"`
	TeacherNotes *string `json:"teacher_notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (OnlineTestResult) TableName() string {
	return "online_test_results"
}

func (r *OnlineTestResult) IsGraded() bool {
	return r.Grade != nil
}

// ResultListEntry is the read-boundary variant for the teacher's result
// list: either a real submission or a roster placeholder for a student who
// never attempted the test. Placeholders are never persisted.
type ResultListEntry struct {
	StudentID    string            `json:"student_id"`
	StudentName  string            `json:"student_name"`
	OnlineTestID uint              `json:"online_test_id"`
	Submitted    *OnlineTestResult `json:"submitted,omitempty"`
}

func (e ResultListEntry) HasSubmitted() bool {
	return e.Submitted != nil
}
