package models

import (
	"time"

	"gorm.io/gorm"
)

// OfflineTestScore is a teacher-authored score for work done outside the app.
type OfflineTestScore struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	StudentID string  `json:"student_id" gorm:"not null;size:255;index"`
	TeacherID string  `json:"teacher_id" gorm:"not null;size:255"`
	Score     int     `json:"score" gorm:"not null"` // 2-5
	Passed    bool    `json:"passed" gorm:"not null;default:false"`
	Notes     *string `json:"notes" gorm:"type:text"`

	Date time.Time `json:"date"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (OfflineTestScore) TableName() string {
	return "offline_test_scores"
}

// StudentUnitGrade is the teacher's grade for a whole unit, unique per
// (student, unit). Re-grading the same pair updates the existing row.
type StudentUnitGrade struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	StudentID string  `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_unit_grade_key,priority:1"`
	UnitID    uint    `json:"unit_id" gorm:"not null;uniqueIndex:idx_unit_grade_key,priority:2"`
	TeacherID string  `json:"teacher_id" gorm:"not null;size:255"`
	Grade     int     `json:"grade" gorm:"not null"` // 2-5
	Notes     *string `json:"notes" gorm:"type:text"`

	Date time.Time `json:"date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StudentUnitGrade) TableName() string {
	return "student_unit_grades"
}
