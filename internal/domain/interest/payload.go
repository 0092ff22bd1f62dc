package interest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"zetta/internal/pkg/validator"
)

// Shape tells which of the two wire layouts a payload used.
type Shape int

const (
	// ShapeFlat is the REST layout: the record fields at top level.
	ShapeFlat Shape = iota + 1
	// ShapeNested is the broadcast layout: {"interest": {...}}.
	ShapeNested
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// Payload is an interest as it arrived on the wire, before normalization.
type Payload struct {
	Shape Shape
	wire  wireRecord
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return fmt.Errorf("decode interest payload: %w", err)
	}
	if len(probe) == 0 {
		return ErrEmptyPayload
	}

	if inner, ok := probe["interest"]; ok && !isNull(inner) {
		p.Shape = ShapeNested
		return json.Unmarshal(inner, &p.wire)
	}

	p.Shape = ShapeFlat
	return json.Unmarshal(b, &p.wire)
}

// Record converts the payload into the canonical record.
func (p *Payload) Record() (Record, error) {
	w := p.wire

	r := Record{
		ID:        strings.TrimSpace(string(w.ID)),
		FullName:  firstNonEmpty(w.FullName, w.FullNameSnake),
		Email:     w.Email,
		Phone:     w.Phone,
		Message:   w.Message,
		Status:    ParseStatus(w.Status),
		CreatedAt: parseTime(w.CreatedAt),
		UpdatedAt: parseTime(w.UpdatedAt),
	}
	if w.Formation != nil {
		r.Formation = Formation{
			ID:          string(w.Formation.ID),
			Name:        w.Formation.Name,
			Slug:        w.Formation.Slug,
			Image:       w.Formation.Image,
			Description: w.Formation.Description,
			Duration:    int(w.Formation.Duration),
			Level:       w.Formation.Level,
			Price:       float64(w.Formation.Price),
		}
		if w.Formation.Category != nil {
			r.Formation.Category = Category{
				ID:   string(w.Formation.Category.ID),
				Name: w.Formation.Category.Name,
			}
		}
	}

	if err := validator.Check(r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return r, nil
}

// Normalize decodes either payload shape into a Record. A JSON string holding
// the payload (how Pusher frames event data) is unwrapped first.
func Normalize(raw []byte) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return Record{}, ErrEmptyPayload
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return Record{}, fmt.Errorf("decode interest payload: %w", err)
		}
		raw = []byte(inner)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Record{}, err
	}
	return p.Record()
}

type wireRecord struct {
	ID            flexString     `json:"id"`
	FullName      string         `json:"fullName"`
	FullNameSnake string         `json:"full_name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Message       string         `json:"message"`
	Status        string         `json:"status"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
	Formation     *wireFormation `json:"formation"`
}

type wireFormation struct {
	ID          flexString    `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Image       *string       `json:"image"`
	Description string        `json:"description"`
	Duration    flexNumber    `json:"duration"`
	Level       string        `json:"level"`
	Price       flexNumber    `json:"price"`
	Category    *wireCategory `json:"category"`
}

type wireCategory struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

// flexString accepts a JSON string or number (Laravel ids come as either).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexNumber accepts a JSON number or a numeric string (decimal casts).
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*f = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
