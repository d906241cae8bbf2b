package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin   = "Admin"
	RoleStaff   = "Staff"
	RoleStudent = "Student"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
