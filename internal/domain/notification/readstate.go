package notification

import (
	"context"
	"sort"
)

// Snapshot is the persisted half of the feed.
type Snapshot struct {
	ReadIDs      []string
	SoundEnabled bool
}

// Persister stores read-state per owner. AddRead must be idempotent. Clear
// forgets read ids only; the sound preference outlives it.
type Persister interface {
	Load(ctx context.Context, ownerID string) (Snapshot, error)
	AddRead(ctx context.Context, ownerID string, ids ...string) error
	SetSound(ctx context.Context, ownerID string, enabled bool) error
	Clear(ctx context.Context, ownerID string) error
}

// ReadState is the set of acknowledged interest ids plus the sound flag.
// Ids are only ever added; a fresh ReadState is the only way to forget.
type ReadState struct {
	ids          map[string]struct{}
	SoundEnabled bool
}

func NewReadState() *ReadState {
	return &ReadState{ids: make(map[string]struct{}), SoundEnabled: true}
}

func readStateFrom(s Snapshot) *ReadState {
	rs := &ReadState{ids: make(map[string]struct{}, len(s.ReadIDs)), SoundEnabled: s.SoundEnabled}
	for _, id := range s.ReadIDs {
		rs.ids[id] = struct{}{}
	}
	return rs
}

func (s *ReadState) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// add reports whether id was new.
func (s *ReadState) add(id string) bool {
	if s.Has(id) {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *ReadState) Len() int { return len(s.ids) }

// IDs returns the set sorted.
func (s *ReadState) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
