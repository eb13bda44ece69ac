package betting

import (
	"fmt"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
)

// ProfileStats agrega o histórico de apostas do usuário para o /profile.
type ProfileStats struct {
	TotalBets    int
	Wins         int
	Losses       int
	Pending      int
	TotalWagered float64
	TotalPayout  float64
}

func (s ProfileStats) NetProfit() float64 {
	return s.TotalPayout - s.TotalWagered
}

func (s ProfileStats) WinRate() float64 {
	settled := s.Wins + s.Losses
	if settled == 0 {
		return 0
	}
	return float64(s.Wins) / float64(settled) * 100
}

// LoadProfileStats calcula os agregados direto no banco.
func LoadProfileStats(db database.Database, userID string) (ProfileStats, error) {
	var s ProfileStats
	err := db.QueryRow(`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN resolved AND won THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN resolved AND NOT won THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT resolved THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(payout), 0)
		FROM bets WHERE user_id = ?`, userID).
		Scan(&s.TotalBets, &s.Wins, &s.Losses, &s.Pending, &s.TotalWagered, &s.TotalPayout)
	if err != nil {
		return ProfileStats{}, fmt.Errorf("load profile stats: %w", err)
	}
	return s, nil
}
