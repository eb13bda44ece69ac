package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

func testDB(t *testing.T) database.Database {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Type: "sqlite", ConnString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testDB(t), zap.NewNop().Sugar())
}

func sampleMatch(userID, matchID string) *TrackedMatch {
	return &TrackedMatch{
		UserID:     userID,
		GameID:     DotaGameID,
		MatchID:    matchID,
		Team:       TeamOne,
		StartTime:  1_700_000_000,
		LastCheck:  1_700_000_000,
		Sources:    SourceSet{SourcePoll: true},
		Confidence: 40,
	}
}

func TestStoreUpsertAndGet(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Upsert(sampleMatch("u1", "m1")))

	got := s.Get("u1")
	require.NotNil(t, got)
	assert.Equal(t, "m1", got.MatchID)
	assert.Equal(t, TeamOne, got.Team)
	assert.True(t, got.Sources.Has(SourcePoll))

	assert.Nil(t, s.Get("nobody"))
}

func TestStoreUpsertReplacesExisting(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Upsert(sampleMatch("u1", "m1")))

	m2 := sampleMatch("u1", "m2")
	m2.Confidence = 80
	m2.Sources = SourceSet{SourcePoll: true, SourcePush: true}
	require.NoError(t, s.Upsert(m2))

	// Continua um único registro por usuário.
	assert.Len(t, s.All(), 1)
	got := s.Get("u1")
	assert.Equal(t, "m2", got.MatchID)
	assert.Equal(t, 80, got.Confidence)
}

func TestStoreReloadCache(t *testing.T) {
	db := testDB(t)
	s := NewStore(db, zap.NewNop().Sugar())
	require.NoError(t, s.Upsert(sampleMatch("u1", "m1")))

	// Um segundo Store no mesmo banco começa vazio até recarregar.
	s2 := NewStore(db, zap.NewNop().Sugar())
	assert.Nil(t, s2.Get("u1"))
	require.NoError(t, s2.ReloadCache())

	got := s2.Get("u1")
	require.NotNil(t, got)
	assert.Equal(t, "m1", got.MatchID)
	assert.True(t, got.Sources.Has(SourcePoll))
}

func TestStoreRemove(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Upsert(sampleMatch("u1", "m1")))

	require.NoError(t, s.Remove("u1"))
	assert.Nil(t, s.Get("u1"))

	// Remover de novo não é erro.
	require.NoError(t, s.Remove("u1"))
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Upsert(sampleMatch("u1", "m1")))

	got := s.Get("u1")
	got.Confidence = 999
	got.Sources.Add(SourceDraft)

	fresh := s.Get("u1")
	assert.Equal(t, 40, fresh.Confidence)
	assert.False(t, fresh.Sources.Has(SourceDraft))
}

func TestStoreUsersInMatch(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Upsert(sampleMatch("u1", "m1")))
	require.NoError(t, s.Upsert(sampleMatch("u2", "m1")))
	require.NoError(t, s.Upsert(sampleMatch("u3", "m2")))

	assert.Len(t, s.UsersInMatch("m1"), 2)
	assert.Len(t, s.UsersInMatch("m2"), 1)
	assert.Empty(t, s.UsersInMatch("m3"))
}
