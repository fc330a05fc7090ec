package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/denguewatch/denguewatch/internal/aggregate"
	"github.com/denguewatch/denguewatch/internal/logging"
	"github.com/denguewatch/denguewatch/internal/records"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func rec(id, loc string) records.CaseRecord {
	return records.CaseRecord{ID: records.ID(id), Location: loc, Cases: 1, Date: "2024-01-0" + id, Region: "R"}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	recs := []records.CaseRecord{rec("1", "Manila"), rec("2", "Mandaue"), rec("3", "Cebu City"), rec("4", "ROMAN")}
	got := Search(recs, "man")
	var locs []string
	for _, r := range got {
		locs = append(locs, r.Location)
	}
	assert.Equal(t, []string{"Manila", "Mandaue", "ROMAN"}, locs)

	assert.Len(t, Search(recs, "  "), len(recs))
	assert.Empty(t, Search(recs, "davao"))
}

func TestSearchFoldsUnicode(t *testing.T) {
	recs := []records.CaseRecord{rec("1", "Parañaque"), rec("2", "Pasig")}
	got := Search(recs, "PARAÑ")
	require.Len(t, got, 1)
	assert.Equal(t, "Parañaque", got[0].Location)
}

func TestSearchAppliesBeforePagination(t *testing.T) {
	var recs []records.CaseRecord
	for i := 1; i <= 9; i++ {
		loc := "Cebu"
		if i%3 == 0 {
			loc = "Manila"
		}
		recs = append(recs, rec(string(rune('0'+i)), loc))
	}
	p := List(recs, Query{Search: "manila", Page: 1, Size: 2})
	assert.Equal(t, 3, p.TotalItems)
	assert.Equal(t, 2, p.TotalPages)
	require.Len(t, p.Items, 2)
	for _, r := range p.Items {
		assert.Equal(t, "Manila", r.Location)
	}

	p = List(recs, Query{Search: "manila", Page: 2, Size: 2})
	require.Len(t, p.Items, 1)
	assert.Equal(t, records.ID("9"), p.Items[0].ID)
}

func TestPaginateClamps(t *testing.T) {
	recs := []records.CaseRecord{rec("1", "a"), rec("2", "b"), rec("3", "c")}

	p := Paginate(recs, 99, 2)
	assert.Equal(t, 2, p.Page)
	assert.Len(t, p.Items, 1)
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())

	p = Paginate(recs, -1, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.Size)
	assert.Len(t, p.Items, 3)

	p = Paginate(nil, 1, 5)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
}

func TestReadSnapshotCoercesCounts(t *testing.T) {
	in := "loc,cases,deaths,date,Region\nCebu,10,2,2024-01-05, Visayas \nIloilo,n/a,1,2024-01-06,Visayas\n"
	recs, err := ReadSnapshot(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, aggregate.Totals{Cases: 10, Deaths: 3}, aggregate.Sum(recs))
	assert.Equal(t, map[string]aggregate.Totals{"Visayas": {Cases: 10, Deaths: 3}}, aggregate.ByRegion(recs))
}

type StateSuite struct {
	suite.Suite
	state *State
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateSuite))
}

func (s *StateSuite) SetupTest() {
	s.state = NewState()
}

func (s *StateSuite) TestStaleRefreshIsDropped() {
	first := s.state.NextSeq()
	second := s.state.NextSeq()

	s.Require().True(s.state.Replace(second, []records.CaseRecord{rec("2", "new")}))
	s.False(s.state.Replace(first, []records.CaseRecord{rec("1", "old")}))

	snap := s.state.Snapshot()
	s.Require().Len(snap, 1)
	s.Equal("new", snap[0].Location)
}

func (s *StateSuite) TestPatches() {
	s.False(s.state.Loaded())
	s.state.Replace(s.state.NextSeq(), []records.CaseRecord{rec("1", "Cebu")})
	s.True(s.state.Loaded())

	s.state.ApplyCreated(rec("2", "Manila"))
	updated := rec("1", "Cebu City")
	s.state.ApplyUpdated(updated)
	s.state.ApplyImported([]records.CaseRecord{rec("3", "Davao"), rec("4", "Iloilo")})
	s.Equal(4, s.state.Len())

	got, ok := s.state.Get("1")
	s.Require().True(ok)
	s.Equal("Cebu City", got.Location)

	s.True(s.state.ApplyDeleted("2"))
	s.False(s.state.ApplyDeleted("2"))
	s.Equal(3, s.state.Len())
}

func (s *StateSuite) TestSnapshotIsACopy() {
	s.state.ApplyCreated(rec("1", "Cebu"))
	snap := s.state.Snapshot()
	snap[0].Location = "changed"
	got, _ := s.state.Get("1")
	s.Equal("Cebu", got.Location)
}

// gatedStore blocks ListAll until released so refreshes can complete out of
// dispatch order.
type gatedStore struct {
	records.Store
	mu    sync.Mutex
	gates []chan []records.CaseRecord
	fail  error
}

func (g *gatedStore) ListAll(ctx context.Context) ([]records.CaseRecord, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	ch := make(chan []records.CaseRecord)
	g.mu.Lock()
	g.gates = append(g.gates, ch)
	g.mu.Unlock()
	return <-ch, nil
}

func (g *gatedStore) gate(i int) chan []records.CaseRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gates[i]
}

func (g *gatedStore) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.gates)
}

func (s *StateSuite) TestLoaderLastDispatchedWins() {
	store := &gatedStore{}
	loader := NewLoader(store, s.state, logging.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.NoError(loader.Refresh(ctx))
	}()
	s.Eventually(func() bool { return store.pending() == 1 }, timeout, tick)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.NoError(loader.Refresh(ctx))
	}()
	s.Eventually(func() bool { return store.pending() == 2 }, timeout, tick)

	store.gate(1) <- []records.CaseRecord{rec("2", "fresh")}
	s.Eventually(func() bool { return s.state.Loaded() }, timeout, tick)
	store.gate(0) <- []records.CaseRecord{rec("1", "stale")}
	wg.Wait()

	snap := s.state.Snapshot()
	s.Require().Len(snap, 1)
	s.Equal("fresh", snap[0].Location)
}

func (s *StateSuite) TestLoaderFailureKeepsState() {
	s.state.ApplyCreated(rec("1", "Cebu"))
	loader := NewLoader(&gatedStore{fail: errors.New("unavailable")}, s.state, logging.Nop())
	s.Error(loader.Refresh(context.Background()))
	s.Equal(1, s.state.Len())
}

func (s *StateSuite) TestRefreshKeepsWritesConfirmedAfterDispatch() {
	s.state.Replace(s.state.NextSeq(), []records.CaseRecord{rec("1", "Cebu"), rec("2", "Manila")})

	seq := s.state.NextSeq()
	// The listing below was read before these writes reached the store.
	s.state.ApplyCreated(rec("3", "Davao"))
	s.state.ApplyDeleted("2")
	s.state.ApplyUpdated(rec("1", "Cebu City"))

	s.Require().True(s.state.Replace(seq, []records.CaseRecord{rec("1", "Cebu"), rec("2", "Manila")}))

	_, ok := s.state.Get("3")
	s.True(ok, "created record lost")
	_, ok = s.state.Get("2")
	s.False(ok, "deleted record restored")
	got, _ := s.state.Get("1")
	s.Equal("Cebu City", got.Location)
}

func (s *StateSuite) TestJournalIsClearedOnceNoRefreshIsInFlight() {
	seq := s.state.NextSeq()
	s.state.ApplyCreated(rec("1", "Cebu"))
	s.Len(s.state.journal, 1)
	s.state.Replace(seq, nil)
	s.Empty(s.state.journal)

	seq = s.state.NextSeq()
	s.state.ApplyCreated(rec("2", "Manila"))
	s.state.Abandon(seq)
	s.Empty(s.state.journal)
	s.Empty(s.state.marks)

	s.state.ApplyCreated(rec("3", "Davao"))
	s.Empty(s.state.journal)
}

// slowListStore reads the memory store, then holds the result until released.
type slowListStore struct {
	*records.Memory
	read    chan struct{}
	release chan struct{}
}

func (st *slowListStore) ListAll(ctx context.Context) ([]records.CaseRecord, error) {
	recs, err := st.Memory.ListAll(ctx)
	close(st.read)
	<-st.release
	return recs, err
}

func (s *StateSuite) TestLoaderDoesNotUndoWriteMadeDuringFetch() {
	mem := records.NewMemory()
	ctx := context.Background()
	gone, err := mem.Create(ctx, records.Fields{Location: "Iloilo", Cases: 2, Date: "2024-01-02", Region: "R"})
	s.Require().NoError(err)
	s.Require().NoError(NewLoader(mem, s.state, logging.Nop()).Refresh(ctx))

	store := &slowListStore{Memory: mem, read: make(chan struct{}), release: make(chan struct{})}
	loader := NewLoader(store, s.state, logging.Nop())
	done := make(chan error, 1)
	go func() { done <- loader.Refresh(ctx) }()
	<-store.read

	f := records.Fields{Location: "Cebu", Cases: 3, Date: "2024-01-05", Region: "R"}
	id, err := mem.Create(ctx, f)
	s.Require().NoError(err)
	s.state.ApplyCreated(f.WithID(id))
	s.Require().NoError(mem.Delete(ctx, gone))
	s.state.ApplyDeleted(gone)

	close(store.release)
	s.Require().NoError(<-done)

	_, ok := s.state.Get(id)
	s.True(ok, "confirmed create overwritten by an earlier refresh")
	_, ok = s.state.Get(gone)
	s.False(ok, "confirmed delete undone by an earlier refresh")
}
