package interest

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an interest request
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// ParseStatus maps backend spellings onto the three known statuses.
// Empty input means the request has not been handled yet.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending":
		return StatusPending
	case "accepted", "approved":
		return StatusAccepted
	case "rejected", "refused":
		return StatusRejected
	default:
		return Status(strings.ToLower(strings.TrimSpace(s)))
	}
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Formation is the course summary embedded in every interest.
type Formation struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug,omitempty"`
	Image       *string  `json:"image"`
	Description string   `json:"description"`
	Duration    int      `json:"duration"`
	Level       string   `json:"level"`
	Price       float64  `json:"price"`
	Category    Category `json:"category"`
}

// Record is one prospective-student inquiry about a formation.
// ID is the only key used for dedup and read tracking.
type Record struct {
	ID        string    `json:"id" validate:"required"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	Status    Status    `json:"status" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Formation Formation `json:"formation"`
}

// IsPending returns true if nobody has accepted or rejected the request yet
func (r *Record) IsPending() bool {
	return r.Status == StatusPending
}

// Matches reports whether query is contained in the requester or formation name.
func (r *Record) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.FullName), q) ||
		strings.Contains(strings.ToLower(r.Formation.Name), q)
}
