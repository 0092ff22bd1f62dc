package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zetta/internal/domain/interest"
)

var ctx = context.Background()

func TestStore_ScenarioWalkthrough(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	// A: a new interest arrives on an empty store.
	sophie := interest.Record{
		ID:        "1",
		FullName:  "Sophie Martin",
		Status:    interest.StatusPending,
		Formation: interest.Formation{Name: "Web Dev"},
	}
	assert.True(t, s.Arrive(sophie))
	assert.Equal(t, 1, s.UnreadCount())
	assert.Equal(t, []string{"1"}, recentIDs(s))

	// B: reading it clears the bell and remembers the id.
	s.MarkAsRead(ctx, "1")
	assert.Equal(t, 0, s.UnreadCount())
	assert.Empty(t, recentIDs(s))
	assert.True(t, s.IsRead("1"))
	assert.True(t, f.persister.has(testOwner, "1"))

	// C: a refetch does not resurrect the read id.
	f.backend.set(pending("1"), pending("2"))
	require.NoError(t, s.FetchAll(ctx))
	assert.Equal(t, []string{"2"}, recentIDs(s))
	assert.Equal(t, 1, s.UnreadCount())

	// D: approving succeeds and the refetch confirms it.
	msg, err := s.Approve(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Interest approved", msg)
	assert.Equal(t, interest.StatusAccepted, f.backend.status("2"))
	for _, r := range s.Interests() {
		if r.ID == "2" {
			assert.Equal(t, interest.StatusAccepted, r.Status)
		}
	}
	assert.Equal(t, 0, s.UnreadCount())

	// E: approving an unknown id surfaces the server message, nothing moves.
	before := s.Interests()
	beforeFeed := s.Feed()
	_, err = s.Approve(ctx, "3")
	require.Error(t, err)
	assert.Equal(t, "not found", err.Error())
	assert.Equal(t, before, s.Interests())
	assert.Equal(t, beforeFeed, s.Feed())
}

func TestStore_MarkAsReadIsIdempotent(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	s.Arrive(pending("1"))
	s.Arrive(pending("2"))

	s.MarkAsRead(ctx, "1")
	once := s.Feed()
	onceIDs := s.ReadIDs()

	s.MarkAsRead(ctx, "1")
	assert.Equal(t, once, s.Feed())
	assert.Equal(t, onceIDs, s.ReadIDs())
	assert.Equal(t, 1, s.UnreadCount())
	assert.Equal(t, 1, f.persister.adds)
}

func TestStore_ReadSetOnlyGrows(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	var seen []string
	check := func(step string) {
		ids := s.ReadIDs()
		for _, id := range seen {
			assert.Contains(t, ids, id, "lost %s after %s", id, step)
		}
		seen = ids
	}

	s.Arrive(pending("1"))
	s.Arrive(pending("2"))
	s.MarkAsRead(ctx, "1")
	check("markAsRead")

	f.backend.set(pending("1"), pending("2"), pending("3"))
	require.NoError(t, s.FetchAll(ctx))
	check("fetchAll")

	s.MarkAllAsRead(ctx)
	check("markAllAsRead")

	s.Update(interest.Record{ID: "1", Status: interest.StatusRejected})
	check("update")

	s.Arrive(pending("4"))
	require.NoError(t, s.Dismiss(0))
	check("dismiss")

	require.NoError(t, s.Reset(ctx, false))
	check("reset without clearing")

	assert.ElementsMatch(t, []string{"1", "2", "3"}, s.ReadIDs())
}

func TestStore_FetchAllAgreesWithReadState(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	s.Arrive(pending("a"))
	s.Arrive(pending("b"))
	s.MarkAsRead(ctx, "b")
	s.MarkAsRead(ctx, "z")

	list := []interest.Record{
		pending("a"), pending("b"), pending("c"),
		{ID: "d", Status: interest.StatusAccepted},
		{ID: "e", Status: interest.StatusRejected},
		pending("z"), pending("f"),
	}
	f.backend.set(list...)
	require.NoError(t, s.FetchAll(ctx))

	var want []string
	for _, r := range list {
		if r.Status == interest.StatusPending && !s.IsRead(r.ID) {
			want = append(want, r.ID)
		}
	}
	got := recentIDs(s)
	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
	assert.Equal(t, len(want), s.UnreadCount())
	assert.Equal(t, len(want), f.effects.lastUnread())
}

func TestStore_FetchAllFailureKeepsState(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	f.backend.set(pending("1"))
	require.NoError(t, s.FetchAll(ctx))

	f.backend.failList = true
	before := s.Feed()
	err := s.FetchAll(ctx)
	assert.Error(t, err)
	assert.Equal(t, before, s.Feed())
	assert.Len(t, s.Interests(), 1)
}

func TestStore_UpdateDeduplicates(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	s.Arrive(pending("7"))

	s.Update(interest.Record{ID: "7", FullName: "first", Status: interest.StatusPending})
	s.Update(interest.Record{ID: "7", FullName: "second", Status: interest.StatusPending})

	var matches []interest.Record
	for _, r := range s.Interests() {
		if r.ID == "7" {
			matches = append(matches, r)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "second", matches[0].FullName)
	assert.Equal(t, "second", s.Feed().Recent[0].FullName)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestStore_UpdateOfUnknownIDInsertsOnce(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	s.Update(interest.Record{ID: "9", FullName: "a", Status: interest.StatusAccepted})
	s.Update(interest.Record{ID: "9", FullName: "b", Status: interest.StatusAccepted})
	require.Len(t, s.Interests(), 1)
	assert.Equal(t, "b", s.Interests()[0].FullName)
	assert.Equal(t, 0, s.UnreadCount())
}

func TestStore_CounterFloor(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	s.MarkAsRead(ctx, "ghost")
	assert.ErrorIs(t, s.Dismiss(0), ErrIndexOutOfRange)
	assert.Equal(t, 0, s.UnreadCount())

	s.Arrive(pending("1"))
	require.NoError(t, s.Dismiss(0))
	s.MarkAsRead(ctx, "1")
	s.MarkAsRead(ctx, "1")
	assert.Equal(t, 0, s.UnreadCount())
	assert.ErrorIs(t, s.Dismiss(-1), ErrIndexOutOfRange)

	for _, n := range f.effects.unread {
		assert.GreaterOrEqual(t, n, 0)
	}
}

func TestStore_DismissDoesNotMarkRead(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	s.Arrive(pending("1"))
	s.Arrive(pending("2"))

	require.NoError(t, s.Dismiss(1))
	assert.Equal(t, []string{"2"}, recentIDs(s))
	assert.Equal(t, 1, s.UnreadCount())
	assert.False(t, s.IsRead("1"))
}

func TestStore_ArrivalDeduplicatesAndSkipsRead(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	assert.True(t, s.Arrive(pending("1")))
	assert.False(t, s.Arrive(pending("1")))
	assert.Equal(t, 1, s.UnreadCount())

	s.MarkAsRead(ctx, "1")
	assert.False(t, s.Arrive(pending("1")))
	assert.Equal(t, 0, s.UnreadCount())

	assert.False(t, s.Arrive(interest.Record{ID: "2", Status: interest.StatusAccepted}))
	assert.Equal(t, []string{"1"}, f.effects.arrivals())
	assert.Len(t, s.Interests(), 2)
}

func TestStore_RecentIsCappedNewestFirst(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	for i := 1; i <= 7; i++ {
		s.Arrive(pending(fmt.Sprint(i)))
	}
	assert.Equal(t, []string{"7", "6", "5", "4", "3"}, recentIDs(s))
	assert.Equal(t, 7, s.UnreadCount())
	assert.Equal(t, "7", s.Interests()[0].ID)

	// a capped-off arrival is still counted once
	assert.False(t, s.Arrive(pending("1")))
	assert.Equal(t, 7, s.UnreadCount())

	s.MarkAllAsRead(ctx)
	assert.Equal(t, 0, s.UnreadCount())
	assert.Empty(t, recentIDs(s))
	for i := 1; i <= 7; i++ {
		assert.True(t, s.IsRead(fmt.Sprint(i)))
	}
}

func TestStore_RecentLimitOption(t *testing.T) {
	f := newStoreFixture(t, WithRecentLimit(2))
	for i := 1; i <= 3; i++ {
		f.store.Arrive(pending(fmt.Sprint(i)))
	}
	assert.Equal(t, []string{"3", "2"}, recentIDs(f.store))
}

func TestStore_SoundFlagReachesEffects(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store

	s.Arrive(pending("1"))
	assert.False(t, s.ToggleSound(ctx))
	s.Arrive(pending("2"))

	assert.Equal(t, []bool{true, false}, f.effects.sounds)
	assert.False(t, f.persister.sound[testOwner])
}

func TestStore_ApproveRefetchFailureIsNotAnError(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	f.backend.set(pending("2"))
	require.NoError(t, s.FetchAll(ctx))
	_, err := s.Select("2")
	require.NoError(t, err)

	f.backend.failListAfterApprove = true
	msg, err := s.Approve(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Interest approved", msg)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, interest.StatusAccepted, sel.Status)
	assert.Equal(t, interest.StatusAccepted, s.Interests()[0].Status)
}

func TestStore_Selection(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	s.Arrive(pending("1"))

	_, err := s.Select("404")
	assert.ErrorIs(t, err, interest.ErrInterestNotFound)

	_, err = s.Select("1")
	require.NoError(t, err)
	s.Update(interest.Record{ID: "1", FullName: "renamed", Status: interest.StatusPending})
	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "renamed", sel.FullName)

	s.SelectRecord(interest.Record{ID: "x"})
	sel, _ = s.Selected()
	assert.Equal(t, "x", sel.ID)

	s.ClearSelection()
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestStore_Search(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	f.backend.set(
		interest.Record{ID: "1", FullName: "Sophie Martin", Status: interest.StatusPending, Formation: interest.Formation{Name: "Web Dev"}},
		interest.Record{ID: "2", FullName: "Ali Ben", Status: interest.StatusAccepted, Formation: interest.Formation{Name: "Data"}},
		interest.Record{ID: "3", FullName: "Nadia", Status: interest.StatusPending, Formation: interest.Formation{Name: "Web Design"}},
	)
	require.NoError(t, s.FetchAll(ctx))
	s.MarkAsRead(ctx, "3")

	all := s.Search("", "all")
	assert.Len(t, all, 3)

	web := s.Search("web", "")
	require.Len(t, web, 2)
	assert.False(t, web[0].IsRead)
	assert.True(t, web[1].IsRead)

	accepted := s.Search("", "accepted")
	require.Len(t, accepted, 1)
	assert.Equal(t, "2", accepted[0].ID)

	assert.Empty(t, s.Search("sophie", "rejected"))
}

func TestStore_Reset(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	s.Arrive(pending("1"))
	s.Arrive(pending("2"))
	s.MarkAsRead(ctx, "1")
	_, _ = s.Select("2")

	require.NoError(t, s.Reset(ctx, false))
	assert.Empty(t, s.Interests())
	assert.Equal(t, 0, s.UnreadCount())
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.True(t, s.IsRead("1"))
	assert.True(t, f.persister.has(testOwner, "1"))
	assert.Equal(t, 0, f.effects.lastUnread())

	require.NoError(t, s.Hydrate(ctx, testOwner))
	require.NoError(t, s.Reset(ctx, true))
	assert.False(t, s.IsRead("1"))
	assert.False(t, f.persister.has(testOwner, "1"))
}

func TestStore_ResetKeepsSoundPreference(t *testing.T) {
	f := newStoreFixture(t)
	s := f.store
	s.Arrive(pending("1"))
	s.MarkAsRead(ctx, "1")
	require.False(t, s.ToggleSound(ctx))

	require.NoError(t, s.Reset(ctx, true))
	assert.False(t, s.Feed().SoundEnabled)

	require.NoError(t, s.Hydrate(ctx, testOwner))
	assert.False(t, s.IsRead("1"))
	assert.False(t, s.Feed().SoundEnabled)
}

func TestStore_HydrateRestoresPersistedState(t *testing.T) {
	persister := newMemPersister()
	require.NoError(t, persister.AddRead(ctx, "u", "1", "2"))
	require.NoError(t, persister.SetSound(ctx, "u", false))

	s := NewStore(nil, persister, zaptest.NewLogger(t))
	require.NoError(t, s.Hydrate(ctx, "u"))
	assert.Equal(t, []string{"1", "2"}, s.ReadIDs())
	assert.False(t, s.Feed().SoundEnabled)
	assert.Equal(t, "u", s.Feed().OwnerID)

	persister.loadErr = errBoom
	assert.ErrorIs(t, s.Hydrate(ctx, "u"), errBoom)
	assert.Empty(t, s.ReadIDs())
	assert.True(t, s.Feed().SoundEnabled)
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	f := newStoreFixture(t)
	f.persister.addErr = errBoom
	f.store.Arrive(pending("1"))

	f.store.MarkAsRead(ctx, "1")
	assert.True(t, f.store.IsRead("1"))
	assert.Equal(t, 0, f.store.UnreadCount())
}

func TestStore_ConcurrentArrivalsAndReads(t *testing.T) {
	f := newStoreFixture(t, WithRecentLimit(100))
	s := f.store

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := fmt.Sprint(i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Arrive(pending(id))
		}()
		go func() {
			defer wg.Done()
			s.MarkAsRead(ctx, id)
		}()
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.True(t, s.IsRead(fmt.Sprint(i)))
	}
	assert.Equal(t, 0, s.UnreadCount())
	assert.Len(t, s.Interests(), 50)
}
