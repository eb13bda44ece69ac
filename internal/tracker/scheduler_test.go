package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/steamapi"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

type fakeSettler struct {
	mu      sync.Mutex
	events  map[string]string // matchID -> target do evento winner
	settled []string
	pending []string
}

func newFakeSettler() *fakeSettler {
	return &fakeSettler{events: make(map[string]string)}
}

func (f *fakeSettler) RecordEvent(matchID, eventType, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if eventType == "winner" {
		if _, ok := f.events[matchID]; !ok {
			f.events[matchID] = target
		}
	}
	return nil
}

func (f *fakeSettler) SettleMatch(_ context.Context, matchID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, matchID)
	return nil
}

func (f *fakeSettler) PendingMatchIDs() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, nil
}

func testScheduler(t *testing.T, handler http.HandlerFunc) (*Scheduler, *Store, *fakeSettler) {
	t.Helper()
	db := testDB(t)
	store := NewStore(db, zap.NewNop().Sugar())
	n := newFakeNotifier()
	rec := NewReconciler(store, db, n, 80, zap.NewNop().Sugar())

	steam := steamapi.NewClient("key", 600, zap.NewNop().Sugar())
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		steam.SetBaseURL(srv.URL)
	}

	settler := newFakeSettler()
	cfg := config.DetectionConfig{
		PollIntervalSeconds: 15,
		BatchSize:           5,
		ConfidenceThreshold: 80,
		MaxMatchDuration:    7200,
		APIRequestsPerMin:   600,
	}
	return NewScheduler(db, store, rec, steam, settler, cfg, zap.NewNop().Sugar()), store, settler
}

func TestIsSyntheticMatch(t *testing.T) {
	assert.True(t, IsSyntheticMatch("dota_test_1"))
	assert.True(t, IsSyntheticMatch("sim_42"))
	assert.False(t, IsSyntheticMatch("7654321"))
}

func TestCheckUserSkipsRecentlyChecked(t *testing.T) {
	calls := 0
	sched, store, _ := testScheduler(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"result": {}}`))
	})

	m := sampleMatch("u1", "123")
	m.LastCheck = time.Now().Unix()
	require.NoError(t, store.Upsert(m))

	require.NoError(t, sched.CheckUser(context.Background(), "u1", "76561198000000001"))
	assert.Zero(t, calls)
}

func TestValidateTrackedRetiresCompletedMatch(t *testing.T) {
	sched, store, settler := testScheduler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"match_id": 123, "radiant_win": true}}`))
	})

	m := sampleMatch("u1", "123")
	m.LastCheck = time.Now().Add(-2 * time.Minute).Unix()
	require.NoError(t, store.Upsert(m))

	require.NoError(t, sched.CheckUser(context.Background(), "u1", "76561198000000001"))

	assert.Nil(t, store.Get("u1"))
	assert.Equal(t, TeamOne, settler.events["123"])
}

func TestValidateTrackedTouchesInProgressMatch(t *testing.T) {
	sched, store, _ := testScheduler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError) // em andamento
	})

	m := sampleMatch("u1", "123")
	m.LastCheck = time.Now().Add(-2 * time.Minute).Unix()
	require.NoError(t, store.Upsert(m))

	require.NoError(t, sched.CheckUser(context.Background(), "u1", "76561198000000001"))

	got := store.Get("u1")
	require.NotNil(t, got)
	assert.Greater(t, got.LastCheck, m.LastCheck)
}

func TestStaleSweepRemovesOverdueMatch(t *testing.T) {
	sched, store, _ := testScheduler(t, nil)

	m := sampleMatch("u1", "dota_test_1")
	m.StartTime = time.Now().Add(-7201 * time.Second).Unix()
	require.NoError(t, store.Upsert(m))

	fresh := sampleMatch("u2", "dota_test_2")
	fresh.StartTime = time.Now().Unix()
	require.NoError(t, store.Upsert(fresh))

	sched.staleSweep(context.Background())

	assert.Nil(t, store.Get("u1"))
	assert.NotNil(t, store.Get("u2"))
}

func TestResolveSweepSkipsSyntheticMatches(t *testing.T) {
	apiCalls := 0
	sched, _, settler := testScheduler(t, func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		w.Write([]byte(`{"result": {"match_id": 555, "radiant_win": false}}`))
	})
	settler.pending = []string{"dota_fake", "sim_1", "555"}

	sched.resolveSweep(context.Background())

	assert.Equal(t, 1, apiCalls)
	assert.Equal(t, []string{"555"}, settler.settled)
	assert.Equal(t, TeamTwo, settler.events["555"])
}
