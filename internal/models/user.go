package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a dashboard account. Email is the login identifier.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:100;not null" json:"name"`
	Email         string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FacultyNumber *string    `gorm:"size:50" json:"faculty_number"`
	Password      string     `gorm:"size:255" json:"-"`                // bcrypt hash
	Role          string     `gorm:"size:20;default:user" json:"role"` // admin, user
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	LastLogin     *time.Time `json:"last_login"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
