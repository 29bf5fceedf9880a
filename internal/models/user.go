package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20;index"`

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Actor identifies the authenticated caller of a core operation. The auth
// layer resolves it at the HTTP boundary; services receive it explicitly
// instead of reading ambient session state.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

func (a Actor) IsTeacher() bool {
	return a.Role == RoleTeacher
}

func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}
