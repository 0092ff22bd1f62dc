package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"zetta/internal/domain/interest"
	"zetta/internal/pkg/apiclient"
)

// fakeBackend serves the two interest endpoints from memory.
type fakeBackend struct {
	mu       sync.Mutex
	records  []interest.Record
	failList bool
	// failListAfterApprove makes every list call after a successful approve fail.
	failListAfterApprove bool
	failApprove          bool
	approved             bool
	listCalls            int
}

func (b *fakeBackend) set(records ...interest.Record) {
	b.mu.Lock()
	b.records = records
	b.mu.Unlock()
}

func (b *fakeBackend) status(id string) interest.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.records {
		if r.ID == id {
			return r.Status
		}
	}
	return ""
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")

	switch {
	case r.Method == http.MethodGet && path == "/admin/interests":
		b.listCalls++
		if b.failList || (b.failListAfterApprove && b.approved) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"interests": b.records})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/approve"):
		if b.failApprove {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/admin/interests/"), "/approve")
		for i := range b.records {
			if b.records[i].ID == id {
				b.records[i].Status = interest.StatusAccepted
				b.approved = true
				_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Interest approved"})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "not found"})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newBackendSource(t *testing.T, b *fakeBackend) *interest.Client {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return interest.NewClient(apiclient.New(srv.URL, "/api/v1", "tok", time.Second), zap.NewNop())
}

// memPersister is an in-memory Persister.
type memPersister struct {
	mu      sync.Mutex
	ids     map[string]map[string]struct{}
	sound   map[string]bool
	loadErr error
	addErr  error
	adds    int
}

func newMemPersister() *memPersister {
	return &memPersister{ids: make(map[string]map[string]struct{}), sound: make(map[string]bool)}
}

func (m *memPersister) Load(_ context.Context, owner string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Snapshot{}, m.loadErr
	}
	snap := Snapshot{SoundEnabled: true}
	if v, ok := m.sound[owner]; ok {
		snap.SoundEnabled = v
	}
	for id := range m.ids[owner] {
		snap.ReadIDs = append(snap.ReadIDs, id)
	}
	return snap, nil
}

func (m *memPersister) AddRead(_ context.Context, owner string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds++
	if m.addErr != nil {
		return m.addErr
	}
	if m.ids[owner] == nil {
		m.ids[owner] = make(map[string]struct{})
	}
	for _, id := range ids {
		m.ids[owner][id] = struct{}{}
	}
	return nil
}

func (m *memPersister) SetSound(_ context.Context, owner string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sound[owner] = enabled
	return nil
}

func (m *memPersister) Clear(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, owner)
	return nil
}

func (m *memPersister) has(owner, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[owner][id]
	return ok
}

// recordingEffects captures what the store asked the presenter to do.
type recordingEffects struct {
	mu      sync.Mutex
	arrived []string
	sounds  []bool
	updated []string
	unread  []int
}

func (e *recordingEffects) Arrived(r interest.Record, sound bool) {
	e.mu.Lock()
	e.arrived = append(e.arrived, r.ID)
	e.sounds = append(e.sounds, sound)
	e.mu.Unlock()
}

func (e *recordingEffects) Updated(r interest.Record) {
	e.mu.Lock()
	e.updated = append(e.updated, r.ID)
	e.mu.Unlock()
}

func (e *recordingEffects) UnreadChanged(n int) {
	e.mu.Lock()
	e.unread = append(e.unread, n)
	e.mu.Unlock()
}

func (e *recordingEffects) arrivals() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.arrived...)
}

func (e *recordingEffects) lastUnread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.unread) == 0 {
		return -1
	}
	return e.unread[len(e.unread)-1]
}

type storeFixture struct {
	store     *Store
	backend   *fakeBackend
	persister *memPersister
	effects   *recordingEffects
}

const testOwner = "admin-1"

func newStoreFixture(t *testing.T, opts ...StoreOption) *storeFixture {
	t.Helper()
	f := &storeFixture{
		backend:   &fakeBackend{},
		persister: newMemPersister(),
		effects:   &recordingEffects{},
	}
	opts = append([]StoreOption{WithEffects(f.effects)}, opts...)
	f.store = NewStore(newBackendSource(t, f.backend), f.persister, zaptest.NewLogger(t), opts...)
	if err := f.store.Hydrate(context.Background(), testOwner); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return f
}

func pending(id string) interest.Record {
	return interest.Record{ID: id, FullName: "Student " + id, Status: interest.StatusPending}
}

func recentIDs(s *Store) []string {
	feed := s.Feed()
	out := make([]string, 0, len(feed.Recent))
	for _, r := range feed.Recent {
		out = append(out, r.ID)
	}
	return out
}

var errBoom = errors.New("boom")
