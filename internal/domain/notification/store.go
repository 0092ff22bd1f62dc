package notification

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"zetta/internal/domain/interest"
	"zetta/internal/pkg/metrics"
)

const DefaultRecentLimit = 5

// InterestSource is the REST side the store reconciles against.
type InterestSource interface {
	List(ctx context.Context) ([]interest.Record, error)
	Approve(ctx context.Context, id string) (interest.ApproveResult, error)
}

// Effects receives the user-visible consequences of store changes. Calls are
// made after the store lock is released.
type Effects interface {
	Arrived(r interest.Record, sound bool)
	Updated(r interest.Record)
	UnreadChanged(unread int)
}

type nopEffects struct{}

func (nopEffects) Arrived(interest.Record, bool) {}
func (nopEffects) Updated(interest.Record)       {}
func (nopEffects) UnreadChanged(int)             {}

// Feed is a point-in-time copy of what the bell shows.
type Feed struct {
	OwnerID      string
	Unread       int
	Recent       []interest.Record
	SoundEnabled bool
}

// SearchResult is one row of the interest list with its read flag.
type SearchResult struct {
	interest.Record
	IsRead bool `json:"is_read"`
}

// Store owns the authoritative interest list, the recent-arrivals projection
// and the read-state of one dashboard owner.
//
// The unread counter is the size of the set of ids currently counted as
// unread, so it can never go negative and a second markAsRead is a no-op.
type Store struct {
	source      InterestSource
	persister   Persister
	effects     Effects
	log         *zap.Logger
	recentLimit int

	mu        sync.Mutex
	owner     string
	interests []interest.Record
	recent    []interest.Record
	counted   map[string]struct{}
	selected  *interest.Record
	state     *ReadState
}

type StoreOption func(*Store)

func WithRecentLimit(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

func WithEffects(e Effects) StoreOption {
	return func(s *Store) {
		if e != nil {
			s.effects = e
		}
	}
}

func NewStore(source InterestSource, persister Persister, log *zap.Logger, opts ...StoreOption) *Store {
	s := &Store{
		source:      source,
		persister:   persister,
		effects:     nopEffects{},
		log:         log,
		recentLimit: DefaultRecentLimit,
		counted:     make(map[string]struct{}),
		state:       NewReadState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted read-state for ownerID. On failure the owner
// starts with an empty read-state and the error is returned.
func (s *Store) Hydrate(ctx context.Context, ownerID string) error {
	snap, err := s.persister.Load(ctx, ownerID)

	s.mu.Lock()
	s.owner = ownerID
	if err != nil {
		s.state = NewReadState()
	} else {
		s.state = readStateFrom(snap)
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("hydrate read-state: %w", err)
	}
	return nil
}

// FetchAll replaces the authoritative list with the backend's and recomputes
// the unread projection. On error nothing changes.
func (s *Store) FetchAll(ctx context.Context) error {
	records, err := s.source.List(ctx)
	if err != nil {
		metrics.InterestFetches.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	metrics.InterestFetches.WithLabelValues(metrics.ResultOK).Inc()

	s.mu.Lock()
	s.interests = append([]interest.Record(nil), records...)
	s.recent = s.recent[:0:0]
	s.counted = make(map[string]struct{})
	for _, r := range records {
		if r.IsPending() && !s.state.Has(r.ID) {
			if _, dup := s.counted[r.ID]; dup {
				continue
			}
			s.recent = append(s.recent, r)
			s.counted[r.ID] = struct{}{}
		}
	}
	if s.selected != nil {
		if i := indexOf(s.interests, s.selected.ID); i >= 0 {
			sel := s.interests[i]
			s.selected = &sel
		}
	}
	unread := len(s.counted)
	s.mu.Unlock()

	s.effects.UnreadChanged(unread)
	return nil
}

// Arrive merges a newly broadcast interest. It reports whether the interest
// became a new unread notification.
func (s *Store) Arrive(r interest.Record) bool {
	s.mu.Lock()
	s.interests = upsertFront(s.interests, r)

	_, counted := s.counted[r.ID]
	fresh := r.IsPending() && !s.state.Has(r.ID) && !counted
	if fresh {
		s.recent = append([]interest.Record{r}, s.recent...)
		if len(s.recent) > s.recentLimit {
			s.recent = s.recent[:s.recentLimit]
		}
		s.counted[r.ID] = struct{}{}
	} else if i := indexOf(s.recent, r.ID); i >= 0 {
		s.recent[i] = r
	}
	sound := s.state.SoundEnabled
	unread := len(s.counted)
	s.mu.Unlock()

	if fresh {
		s.effects.Arrived(r, sound)
		s.effects.UnreadChanged(unread)
	}
	return fresh
}

// Update replaces the record with the same id wherever it is shown.
// The unread counter is untouched.
func (s *Store) Update(r interest.Record) {
	s.mu.Lock()
	if i := indexOf(s.interests, r.ID); i >= 0 {
		s.interests[i] = r
	} else {
		s.interests = append([]interest.Record{r}, s.interests...)
	}
	if i := indexOf(s.recent, r.ID); i >= 0 {
		s.recent[i] = r
	}
	if s.selected != nil && s.selected.ID == r.ID {
		sel := r
		s.selected = &sel
	}
	s.mu.Unlock()

	s.effects.Updated(r)
}

// MarkAsRead acknowledges id. Calling it again changes nothing.
func (s *Store) MarkAsRead(ctx context.Context, id string) {
	s.mu.Lock()
	added := s.state.add(id)
	_, wasCounted := s.counted[id]
	delete(s.counted, id)
	if i := indexOf(s.recent, id); i >= 0 {
		s.recent = append(s.recent[:i], s.recent[i+1:]...)
	}
	owner := s.owner
	unread := len(s.counted)
	s.mu.Unlock()

	if added {
		s.persist(ctx, owner, id)
	}
	if wasCounted {
		s.effects.UnreadChanged(unread)
	}
}

// MarkAllAsRead acknowledges everything counted as unread and empties the
// recent projection.
func (s *Store) MarkAllAsRead(ctx context.Context) {
	s.mu.Lock()
	var added []string
	for _, r := range s.recent {
		if s.state.add(r.ID) {
			added = append(added, r.ID)
		}
	}
	for id := range s.counted {
		if s.state.add(id) {
			added = append(added, id)
		}
	}
	s.recent = nil
	s.counted = make(map[string]struct{})
	owner := s.owner
	s.mu.Unlock()

	if len(added) > 0 {
		s.persist(ctx, owner, added...)
	}
	s.effects.UnreadChanged(0)
}

// Dismiss drops the recent arrival at index without marking it read.
func (s *Store) Dismiss(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.recent) {
		s.mu.Unlock()
		return ErrIndexOutOfRange
	}
	id := s.recent[index].ID
	s.recent = append(s.recent[:index], s.recent[index+1:]...)
	delete(s.counted, id)
	unread := len(s.counted)
	s.mu.Unlock()

	s.effects.UnreadChanged(unread)
	return nil
}

// Approve asks the backend to accept id. On success the local copy is
// patched and the list refetched; a failed refetch is only logged.
// On failure nothing local changes and the error carries the server message.
func (s *Store) Approve(ctx context.Context, id string) (string, error) {
	res, err := s.source.Approve(ctx, id)
	if err != nil {
		metrics.InterestApprovals.WithLabelValues(metrics.ResultError).Inc()
		return "", err
	}
	metrics.InterestApprovals.WithLabelValues(metrics.ResultOK).Inc()

	s.mu.Lock()
	var patched *interest.Record
	if i := indexOf(s.interests, id); i >= 0 {
		s.interests[i].Status = interest.StatusAccepted
		r := s.interests[i]
		patched = &r
	}
	if i := indexOf(s.recent, id); i >= 0 {
		s.recent[i].Status = interest.StatusAccepted
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected.Status = interest.StatusAccepted
	}
	s.mu.Unlock()

	if patched != nil {
		s.effects.Updated(*patched)
	}

	if err := s.FetchAll(ctx); err != nil {
		s.log.Warn("refetch after approve failed", zap.String("interest_id", id), zap.Error(err))
	}
	return res.Message, nil
}

// Reset forgets the session: list, projections, selection and counter.
// With clearReadState the persisted read ids go too; the sound preference
// is kept.
func (s *Store) Reset(ctx context.Context, clearReadState bool) error {
	s.mu.Lock()
	owner := s.owner
	s.owner = ""
	s.interests = nil
	s.recent = nil
	s.counted = make(map[string]struct{})
	s.selected = nil
	if clearReadState {
		sound := s.state.SoundEnabled
		s.state = NewReadState()
		s.state.SoundEnabled = sound
	}
	s.mu.Unlock()

	s.effects.UnreadChanged(0)

	if clearReadState && owner != "" {
		if err := s.persister.Clear(ctx, owner); err != nil {
			return fmt.Errorf("clear read-state: %w", err)
		}
	}
	return nil
}

// ToggleSound flips the sound preference and returns the new value.
func (s *Store) ToggleSound(ctx context.Context) bool {
	s.mu.Lock()
	s.state.SoundEnabled = !s.state.SoundEnabled
	enabled := s.state.SoundEnabled
	owner := s.owner
	s.mu.Unlock()

	if owner != "" {
		if err := s.persister.SetSound(ctx, owner, enabled); err != nil {
			s.log.Warn("persist sound preference failed", zap.String("owner_id", owner), zap.Error(err))
		}
	}
	return enabled
}

// Select shows the interest with id in the detail view.
func (s *Store) Select(id string) (interest.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.interests, id)
	if i < 0 {
		return interest.Record{}, interest.ErrInterestNotFound
	}
	sel := s.interests[i]
	s.selected = &sel
	return sel, nil
}

func (s *Store) SelectRecord(r interest.Record) {
	s.mu.Lock()
	s.selected = &r
	s.mu.Unlock()
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = nil
	s.mu.Unlock()
}

func (s *Store) Selected() (interest.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return interest.Record{}, false
	}
	return *s.selected, true
}

// Search filters the authoritative list by name or formation and status tab.
// An empty tab or "all" keeps every status.
func (s *Store) Search(query, tab string) []SearchResult {
	var want interest.Status
	if tab != "" && tab != "all" {
		want = interest.ParseStatus(tab)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SearchResult, 0, len(s.interests))
	for _, r := range s.interests {
		if want != "" && r.Status != want {
			continue
		}
		if !r.Matches(query) {
			continue
		}
		out = append(out, SearchResult{Record: r, IsRead: s.state.Has(r.ID)})
	}
	return out
}

func (s *Store) Feed() Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Feed{
		OwnerID:      s.owner,
		Unread:       len(s.counted),
		Recent:       append([]interest.Record(nil), s.recent...),
		SoundEnabled: s.state.SoundEnabled,
	}
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counted)
}

func (s *Store) Interests() []interest.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interest.Record(nil), s.interests...)
}

// ReadIDs returns the acknowledged ids, sorted.
func (s *Store) ReadIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IDs()
}

func (s *Store) IsRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Has(id)
}

func (s *Store) persist(ctx context.Context, owner string, ids ...string) {
	if owner == "" {
		return
	}
	if err := s.persister.AddRead(ctx, owner, ids...); err != nil {
		s.log.Warn("persist read markers failed",
			zap.String("owner_id", owner),
			zap.Strings("interest_ids", ids),
			zap.Error(err),
		)
	}
}

func indexOf(list []interest.Record, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// upsertFront replaces the record with the same id in place, or prepends it.
func upsertFront(list []interest.Record, r interest.Record) []interest.Record {
	if i := indexOf(list, r.ID); i >= 0 {
		list[i] = r
		return list
	}
	return append([]interest.Record{r}, list...)
}
