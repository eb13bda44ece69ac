package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu       sync.Mutex
	userMsgs map[string][]string
	channel  []string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{userMsgs: make(map[string][]string)}
}

func (f *fakeNotifier) NotifyUser(userID, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMsgs[userID] = append(f.userMsgs[userID], msg)
}

func (f *fakeNotifier) NotifyChannel(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = append(f.channel, msg)
}

func (f *fakeNotifier) userCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.userMsgs[userID])
}

func testReconciler(t *testing.T) (*Reconciler, *Store, *fakeNotifier) {
	t.Helper()
	db := testDB(t)
	store := NewStore(db, zap.NewNop().Sugar())
	n := newFakeNotifier()
	rec := NewReconciler(store, db, n, 80, zap.NewNop().Sugar())
	return rec, store, n
}

func TestObserveCreatesOptimistically(t *testing.T) {
	rec, store, n := testReconciler(t)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1", Team: TeamOne}))

	m := store.Get("u1")
	require.NotNil(t, m)
	assert.Equal(t, 40, m.Confidence)
	assert.Zero(t, m.ValidatedAt)
	// Abaixo do limiar: nenhuma notificação ainda.
	assert.Zero(t, n.userCount("u1"))
}

func TestConfidenceAccumulatesAcrossSources(t *testing.T) {
	rec, store, n := testReconciler(t)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourceDraft, MatchID: "m1"}))
	assert.Equal(t, 20, store.Get("u1").Confidence)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1", Team: TeamOne}))
	assert.Equal(t, 60, store.Get("u1").Confidence)
	assert.Zero(t, n.userCount("u1"))

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePush, MatchID: "m1"}))
	m := store.Get("u1")
	assert.Equal(t, 100, m.Confidence)
	assert.NotZero(t, m.ValidatedAt)
	assert.Equal(t, 1, n.userCount("u1"))
}

func TestSameSourceCountsOnce(t *testing.T) {
	rec, store, _ := testReconciler(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	}
	assert.Equal(t, 40, store.Get("u1").Confidence)
}

func TestNotifiedOnlyOnce(t *testing.T) {
	rec, _, n := testReconciler(t)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePush, MatchID: "m1"}))
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourceDraft, MatchID: "m1"}))
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePush, MatchID: "m1"}))

	assert.Equal(t, 1, n.userCount("u1"))
}

func TestStartTimeRefinedByClock(t *testing.T) {
	rec, store, _ := testReconciler(t)

	observed := time.Unix(1_700_000_600, 0)
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1", ObservedAt: observed}))
	assert.Equal(t, observed.Unix(), store.Get("u1").StartTime)

	clock := 600
	require.NoError(t, rec.Observe("u1", Evidence{
		Source:       SourcePush,
		MatchID:      "m1",
		ClockSeconds: &clock,
		ObservedAt:   observed,
	}))
	// Relógio em 600s no instante T => início = T - 600.
	assert.Equal(t, int64(1_700_000_000), store.Get("u1").StartTime)
}

func TestNewMatchReplacesOld(t *testing.T) {
	rec, store, _ := testReconciler(t)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePush, MatchID: "m2"}))

	m := store.Get("u1")
	require.NotNil(t, m)
	assert.Equal(t, "m2", m.MatchID)
	// Confiança reinicia para a partida nova.
	assert.Equal(t, 40, m.Confidence)
	assert.False(t, m.Sources.Has(SourcePoll))
}

func TestRetireSuppressesRedetection(t *testing.T) {
	rec, store, _ := testReconciler(t)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	require.NoError(t, rec.Retire("u1", "m1", RetireCompleted, TeamOne))
	assert.Nil(t, store.Get("u1"))

	// APIs atrasadas ainda reportam m1 como ativa; não pode voltar.
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	assert.Nil(t, store.Get("u1"))
}

func TestRetireInvokesSettlementHook(t *testing.T) {
	rec, _, n := testReconciler(t)

	var settled []string
	rec.SetRetireHook(func(matchID string) { settled = append(settled, matchID) })

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	require.NoError(t, rec.Retire("u1", "m1", RetireCompleted, TeamTwo))

	assert.Equal(t, []string{"m1"}, settled)
	assert.Equal(t, 1, n.userCount("u1"))
}

func TestClearMatchAllowsRedetection(t *testing.T) {
	rec, store, _ := testReconciler(t)

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	cleared, err := rec.ClearMatch("u1")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Nil(t, store.Get("u1"))

	// Limpeza manual não suprime: a detecção pode recriar.
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1"}))
	assert.NotNil(t, store.Get("u1"))

	cleared, err = rec.ClearMatch("u2")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestPruneRetiredReopensDetection(t *testing.T) {
	rec, store, _ := testReconciler(t)

	base := time.Unix(1_700_000_000, 0)
	rec.now = func() time.Time { return base }

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePoll, MatchID: "m1", ObservedAt: base}))
	require.NoError(t, rec.Retire("u1", "m1", RetireStale, ""))
	assert.True(t, rec.Suppressed("m1"))

	base = base.Add(retiredTTL + time.Minute)
	assert.Equal(t, 1, rec.PruneRetired())
	// Ainda consta como concluída, então segue suprimida.
	assert.True(t, rec.Suppressed("m1"))
	assert.Nil(t, store.Get("u1"))
}

func TestGameStateTransitionRecordedOnChangeOnly(t *testing.T) {
	rec, _, _ := testReconciler(t)
	db := rec.db

	require.NoError(t, rec.Observe("u1", Evidence{Source: SourceDraft, MatchID: "m1", State: StateDraft}))
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePush, MatchID: "m1", State: StateInGame}))
	require.NoError(t, rec.Observe("u1", Evidence{Source: SourcePush, MatchID: "m1", State: StateInGame}))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM game_state_transitions WHERE user_id = ?`, "u1").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestParseGameState(t *testing.T) {
	assert.Equal(t, StateDraft, ParseGameState("DOTA_GAMERULES_STATE_HERO_SELECTION"))
	assert.Equal(t, StateDraft, ParseGameState("DOTA_GAMERULES_STATE_PRE_GAME"))
	assert.Equal(t, StateInGame, ParseGameState("DOTA_GAMERULES_STATE_GAME_IN_PROGRESS"))
	assert.Equal(t, StatePostGame, ParseGameState("postgame"))
	assert.Equal(t, StateUnknown, ParseGameState("something else"))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateUnknown, StateInGame))
	assert.True(t, CanTransition(StateDraft, StateInGame))
	assert.True(t, CanTransition(StateInGame, StatePostGame))
	assert.False(t, CanTransition(StatePostGame, StateInGame))
	assert.False(t, CanTransition(StateInGame, StateDraft))
}
