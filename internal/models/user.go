package models

import (
	"errors"
	"fmt"
)

// ErrInvalid marks a payload from the backend that does not match the expected shape.
var ErrInvalid = errors.New("invalid payload")

// Role is a user's permission level.
type Role string

const (
	RoleManager  Role = "manager"
	RoleEngineer Role = "engineer"
	RoleObserver Role = "observer"
	// RoleAdmin is only known to the backend's authorization checks; it is never assignable from the client.
	RoleAdmin Role = "admin"
)

// AssignableRoles lists the roles a manager can hand out.
var AssignableRoles = []Role{RoleManager, RoleEngineer, RoleObserver}

// Valid reports whether r is a role the backend knows.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleEngineer, RoleObserver, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the backend user record.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

func (u User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user id missing", ErrInvalid)
	}
	if u.Username == "" {
		return fmt.Errorf("%w: user %d has no username", ErrInvalid, u.ID)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: user %d has unknown role %q", ErrInvalid, u.ID, u.Role)
	}
	return nil
}

// HasRole reports whether the user holds one of roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (t Token) Validate() error {
	if t.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrInvalid)
	}
	return nil
}

// RegisterInput is the registration form. The server always assigns the observer role.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// RoleUpdate is the body of a role change.
type RoleUpdate struct {
	NewRole Role `json:"new_role"`
}
