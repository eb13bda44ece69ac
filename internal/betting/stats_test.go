package betting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadProfileStats(t *testing.T) {
	db := testDB(t)
	n := newFakeNotifier()
	resolver := NewResolver(db, n, zap.NewNop().Sugar())
	ledger := NewLedger(db, testBettingConfig(), zap.NewNop().Sugar())

	place := func(team string, amount float64) {
		_, err := ledger.PlaceWager(context.Background(), PlaceParams{
			UserID:         "u1",
			MatchID:        "m1",
			GameID:         "570",
			MatchStartTime: time.Now().Unix(),
			BetType:        BetTeamWin,
			Team:           team,
			Amount:         amount,
		})
		require.NoError(t, err)
	}
	place("team1", 0.1)
	place("team2", 0.2)
	place("team1", 0.3)

	require.NoError(t, resolver.ResolveManually(context.Background(), "m1", "team1"))

	// Aposta pendente em outra partida.
	_, err := ledger.PlaceWager(context.Background(), PlaceParams{
		UserID:         "u1",
		MatchID:        "m2",
		GameID:         "570",
		MatchStartTime: time.Now().Unix(),
		BetType:        BetTeamWin,
		Team:           "team1",
		Amount:         0.4,
	})
	require.NoError(t, err)

	stats, err := LoadProfileStats(db, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBets)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 1, stats.Pending)
	assert.InDelta(t, 1.0, stats.TotalWagered, 1e-9)
	assert.InDelta(t, 0.8, stats.TotalPayout, 1e-9) // (0.1 + 0.3) * 2
	assert.InDelta(t, -0.2, stats.NetProfit(), 1e-9)
	assert.InDelta(t, 66.7, stats.WinRate(), 0.1)

	empty, err := LoadProfileStats(db, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalBets)
	assert.Zero(t, empty.WinRate())
}
