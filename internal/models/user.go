package models

import (
	"fmt"
	"time"
)

// User represents a user account in the system.
type User struct {
	ID             int64     `json:"id"`
	FirstName      *string   `json:"first_name"`
	Surname        *string   `json:"surname"`
	Email          string    `json:"email"`
	IsAdmin        bool      `json:"is_admin"`
	HashedPassword string    `json:"-"` // Never expose this to the client
	CreatedAt      time.Time `json:"created_at"`
}

// PrimaryKey returns the surrogate key of the row.
func (u User) PrimaryKey() int64 { return u.ID }

// FullName joins first name and surname with a space.
func (u User) FullName() string {
	return fmt.Sprintf("%s %s", deref(u.FirstName), deref(u.Surname))
}

// String keeps the password hash out of log lines and %v output.
func (u User) String() string {
	return fmt.Sprintf("<User(id=%d, email=%s)>", u.ID, u.Email)
}

// UserCreate is the signup payload.
type UserCreate struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=256"`
	Surname   *string `json:"surname" validate:"omitempty,max=256"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,maxbytes=72"`
	IsAdmin   bool    `json:"is_admin"`
}

// Validate checks the struct tags of the payload.
func (u *UserCreate) Validate() error {
	return validateStruct(u)
}

// UserUpdate carries a partial update. Nil fields are left untouched.
type UserUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=256"`
	Surname   *string `json:"surname" validate:"omitempty,max=256"`
	Email     *string `json:"email" validate:"omitempty,email"`
	IsAdmin   *bool   `json:"is_admin"`
}

// Validate checks the struct tags of the payload.
func (u *UserUpdate) Validate() error {
	return validateStruct(u)
}

// Changes returns the column values present in the update.
func (u UserUpdate) Changes() map[string]any {
	changes := make(map[string]any)
	if u.FirstName != nil {
		changes["first_name"] = *u.FirstName
	}
	if u.Surname != nil {
		changes["surname"] = *u.Surname
	}
	if u.Email != nil {
		changes["email"] = *u.Email
	}
	if u.IsAdmin != nil {
		changes["is_admin"] = *u.IsAdmin
	}
	return changes
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
