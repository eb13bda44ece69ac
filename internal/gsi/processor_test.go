package gsi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/betting"
	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/internal/tracker"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) NotifyUser(_, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeNotifier) NotifyChannel(msg string) { f.NotifyUser("", msg) }

func testProcessor(t *testing.T) (*Processor, *tracker.Store, database.Database) {
	t.Helper()
	db, err := database.New(config.DatabaseConfig{Type: "sqlite", ConnString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop().Sugar()
	n := &fakeNotifier{}
	store := tracker.NewStore(db, log)
	rec := tracker.NewReconciler(store, db, n, 80, log)
	resolver := betting.NewResolver(db, n, log)
	rec.SetRetireHook(func(matchID string) {
		_ = resolver.SettleMatch(context.Background(), matchID)
	})
	return NewProcessor(db, store, rec, resolver, log), store, db
}

func inGamePayload(matchID string, clock int) *Payload {
	return &Payload{
		Map:    &Map{MatchID: matchID, GameState: "DOTA_GAMERULES_STATE_GAME_IN_PROGRESS", ClockTime: &clock},
		Player: &Player{Name: "Shadow", TeamName: "radiant"},
	}
}

func TestHandleDraftCreatesTracking(t *testing.T) {
	p, store, _ := testProcessor(t)

	payload := &Payload{
		Map:    &Map{MatchID: "m1", GameState: "DOTA_GAMERULES_STATE_HERO_SELECTION"},
		Player: &Player{Name: "Shadow", TeamName: "radiant"},
	}
	require.NoError(t, p.Handle(context.Background(), "u1", payload))

	m := store.Get("u1")
	require.NotNil(t, m)
	assert.Equal(t, 20, m.Confidence)
	assert.Equal(t, tracker.TeamOne, m.Team)
	assert.True(t, m.Sources.Has(tracker.SourceDraft))
}

func TestHandleInGameAddsPushEvidence(t *testing.T) {
	p, store, _ := testProcessor(t)

	require.NoError(t, p.Handle(context.Background(), "u1", &Payload{
		Map: &Map{MatchID: "m1", GameState: "DOTA_GAMERULES_STATE_HERO_SELECTION"},
	}))
	require.NoError(t, p.Handle(context.Background(), "u1", inGamePayload("m1", 300)))

	m := store.Get("u1")
	require.NotNil(t, m)
	assert.Equal(t, 60, m.Confidence)
	assert.True(t, m.Sources.Has(tracker.SourcePush))
}

func TestHandleIgnoresPayloadWithoutMap(t *testing.T) {
	p, store, _ := testProcessor(t)

	require.NoError(t, p.Handle(context.Background(), "u1", &Payload{
		Provider: &Provider{AppID: 570},
	}))
	assert.Nil(t, store.Get("u1"))
}

func TestHandleFirstBloodRecordsEvent(t *testing.T) {
	p, _, db := testProcessor(t)

	fb := true
	payload := inGamePayload("m1", 90)
	payload.Events = &Events{FirstBlood: &fb, FirstBloodPlayer: "Shadow"}
	require.NoError(t, p.Handle(context.Background(), "u1", payload))

	var target string
	require.NoError(t, db.QueryRow(`SELECT event_target FROM match_events WHERE match_id = ? AND event_type = ?`,
		"m1", "first_blood").Scan(&target))
	assert.Equal(t, "Shadow", target)
}

func TestHandlePostGameSettlesAndRetires(t *testing.T) {
	p, store, db := testProcessor(t)

	require.NoError(t, p.Handle(context.Background(), "u1", inGamePayload("m1", 120)))
	require.NotNil(t, store.Get("u1"))

	postgame := &Payload{
		Map: &Map{MatchID: "m1", GameState: "postgame", WinTeam: "radiant"},
		AllPlayers: map[string]Player{
			"p1": {Name: "Shadow", TeamName: "radiant", Kills: 10, Assists: 5, Deaths: 2, NetWorth: 20000, GPM: 600, XPM: 700},
			"p2": {Name: "Quiet", TeamName: "dire", Kills: 2, Assists: 3, Deaths: 8, NetWorth: 9000, GPM: 300, XPM: 350},
		},
	}
	require.NoError(t, p.Handle(context.Background(), "u1", postgame))

	assert.Nil(t, store.Get("u1"))

	var winner, mvp string
	require.NoError(t, db.QueryRow(`SELECT event_target FROM match_events WHERE match_id = 'm1' AND event_type = 'winner'`).Scan(&winner))
	require.NoError(t, db.QueryRow(`SELECT event_target FROM match_events WHERE match_id = 'm1' AND event_type = 'mvp'`).Scan(&mvp))
	assert.Equal(t, "team1", winner)
	assert.Equal(t, "Shadow", mvp)
}

// Cenário completo: detecção por poll, aposta na janela, pós-jogo pela
// telemetria, liquidação com pagamento 2x.
func TestDetectBetAndSettleFlow(t *testing.T) {
	db, err := database.New(config.DatabaseConfig{Type: "sqlite", ConnString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zap.NewNop().Sugar()
	n := &fakeNotifier{}
	store := tracker.NewStore(db, log)
	rec := tracker.NewReconciler(store, db, n, 80, log)
	resolver := betting.NewResolver(db, n, log)
	rec.SetRetireHook(func(matchID string) {
		require.NoError(t, resolver.SettleMatch(context.Background(), matchID))
	})
	proc := NewProcessor(db, store, rec, resolver, log)
	ledger := betting.NewLedger(db, config.BettingConfig{
		MinBetAmount: 0.01, MaxBetAmount: 1.0, MaxBetsPerHour: 5, WindowSeconds: 300,
	}, log)

	// t=0: poll encontra o usuário em partida ao vivo, time A.
	start := time.Now()
	require.NoError(t, rec.Observe("u1", tracker.Evidence{
		Source:     tracker.SourcePoll,
		MatchID:    "900",
		GameID:     tracker.DotaGameID,
		Team:       tracker.TeamOne,
		ObservedAt: start,
	}))
	m := store.Get("u1")
	require.NotNil(t, m)
	assert.Equal(t, 40, m.Confidence)

	// t=60s: aposta de 0.1 na vitória do time A, dentro da janela.
	betID, err := ledger.PlaceWager(context.Background(), betting.PlaceParams{
		UserID:         "u1",
		MatchID:        m.MatchID,
		GameID:         m.GameID,
		MatchStartTime: m.StartTime,
		BetType:        betting.BetTeamWin,
		Team:           tracker.TeamOne,
		Amount:         0.1,
	})
	require.NoError(t, err)

	// t=2400s: telemetria reporta pós-jogo com vitória do radiant.
	require.NoError(t, proc.Handle(context.Background(), "u1", &Payload{
		Map: &Map{MatchID: "900", GameState: "postgame", WinTeam: "radiant"},
	}))

	assert.Nil(t, store.Get("u1"))

	var resolved, won bool
	var payout float64
	require.NoError(t, db.QueryRow(`SELECT resolved, won, payout FROM bets WHERE id = ?`, betID).
		Scan(&resolved, &won, &payout))
	assert.True(t, resolved)
	assert.True(t, won)
	assert.InDelta(t, 0.2, payout, 1e-9)
}

func TestMVPScoreFavorsWinningTeam(t *testing.T) {
	base := Player{Kills: 5, Assists: 5, Deaths: 5, NetWorth: 10000, GPM: 400, XPM: 400}
	assert.Greater(t, mvpScore(base, true), mvpScore(base, false))
}

func TestConfigFileContainsTokenAndEndpoint(t *testing.T) {
	cfg := ConfigFile("https://bot.example.com", "123")
	assert.True(t, strings.Contains(cfg, `"discord123"`))
	assert.True(t, strings.Contains(cfg, "https://bot.example.com/gsi/dota2"))
}
