package auth

import (
	"encoding/json"
	"strconv"
	"strings"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// ParseRole lowercases the backend spelling. Unknown roles pass through.
func ParseRole(s string) UserRole {
	return UserRole(strings.ToLower(strings.TrimSpace(s)))
}

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User is the dashboard account as the backend describes it.
type User struct {
	ID       string   `json:"id" validate:"required"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	Status   string   `json:"status,omitempty"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	var w struct {
		ID        json.RawMessage `json:"id"`
		FullName  string          `json:"fullName"`
		FullName2 string          `json:"full_name"`
		Name      string          `json:"name"`
		Email     string          `json:"email"`
		Role      string          `json:"role"`
		Status    string          `json:"status"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	id := strings.TrimSpace(string(w.ID))
	if unq, err := strconv.Unquote(id); err == nil {
		id = unq
	}
	if id == "null" {
		id = ""
	}

	u.ID = id
	u.FullName = w.FullName
	if u.FullName == "" {
		u.FullName = w.FullName2
	}
	if u.FullName == "" {
		u.FullName = w.Name
	}
	u.Email = w.Email
	u.Role = ParseRole(w.Role)
	u.Status = w.Status
	return nil
}
