package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoundAttempt holds the two independently scored sub-answers a word collects
// during a round test: the typed translation and the multiple-choice pick.
// The choice fields stay nil when the test was abandoned before stage two.
type RoundAttempt struct {
	WordID         uint    `json:"word_id"`
	WrittenAnswer  string  `json:"written_answer"`
	WrittenCorrect bool    `json:"written_correct"`
	ChoiceAnswer   *string `json:"choice_answer"`
	ChoiceCorrect  *bool   `json:"choice_correct"`
}

// StudentRoundProgress is the "latest attempt" record, one logical row per
// (student, unit, round). A repeat completion overwrites it in place;
// attempt_count only ever increases.
type StudentRoundProgress struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	StudentID string         `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_round_progress_key,priority:1"`
	UnitID    uint           `json:"unit_id" gorm:"not null;uniqueIndex:idx_round_progress_key,priority:2"`
	RoundID   uint           `json:"round_id" gorm:"not null;uniqueIndex:idx_round_progress_key,priority:3"`
	Score     int            `json:"score" gorm:"not null"`
	Attempts  datatypes.JSON `json:"attempts" gorm:"type:jsonb"` // []RoundAttempt
	Completed bool           `json:"completed" gorm:"not null;default:false"`

	AttemptCount int       `json:"attempt_count" gorm:"not null;default:1"`
	CompletedAt  time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StudentRoundProgress) TableName() string {
	return "student_round_progress"
}

// StudentAttemptHistory is the append-only completion log. Rows are never
// mutated or deleted; attempt_number mirrors the progress row's counter at
// the time of that completion.
type StudentAttemptHistory struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	StudentID     string         `json:"student_id" gorm:"not null;size:255;index:idx_attempt_history_key"`
	UnitID        uint           `json:"unit_id" gorm:"not null;index:idx_attempt_history_key"`
	RoundID       uint           `json:"round_id" gorm:"not null;index:idx_attempt_history_key"`
	Score         int            `json:"score" gorm:"not null"`
	Attempts      datatypes.JSON `json:"attempts" gorm:"type:jsonb"` // []RoundAttempt
	AttemptNumber int            `json:"attempt_number" gorm:"not null"`
	CompletedAt   time.Time      `json:"completed_at"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (StudentAttemptHistory) TableName() string {
	return "student_attempt_history"
}
