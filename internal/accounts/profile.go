package accounts

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// Profile is a stored account.
type Profile struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"fullName"`
	Role           Role      `json:"role"`
	PhoneNumber    string    `json:"phoneNumber"`
	Address        string    `json:"address"`
	PassportNumber string    `json:"passportNumber,omitempty"`
	DateOfBirth    string    `json:"dateOfBirth,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	CreatedBy      *int64    `json:"createdBy,omitempty"`
	Status         Status    `json:"status"`
}

// User is the session view of a profile.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

func (p Profile) User() User {
	return User{ID: p.ID, Email: p.Email, FullName: p.FullName, Role: p.Role}
}

// CreateInput is the payload for a new account.
type CreateInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"fullName"`
	Role           Role   `json:"role"`
	PhoneNumber    string `json:"phoneNumber"`
	Address        string `json:"address"`
	PassportNumber string `json:"passportNumber,omitempty"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
}

func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return errors.Join(ErrInvalidAccount, errors.New("email must be valid"))
	}
	if in.Password == "" {
		return errors.Join(ErrInvalidAccount, errors.New("password is required"))
	}
	if len(in.Password) > 72 {
		return errors.Join(ErrInvalidAccount, errors.New("password too long (max 72 bytes)"))
	}
	if strings.TrimSpace(in.FullName) == "" {
		return errors.Join(ErrInvalidAccount, errors.New("fullName is required"))
	}
	switch in.Role {
	case RoleAdmin, RoleOperator, RoleUser:
	default:
		return errors.Join(ErrInvalidAccount, errors.New("role must be admin, operator or user"))
	}
	return nil
}

// CanCreate reports whether an account with role creator may create one with role target.
func CanCreate(creator, target Role) bool {
	switch creator {
	case RoleAdmin:
		return true
	case RoleOperator:
		return target == RoleUser
	default:
		return false
	}
}
