package betting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

// Tipos de aposta aceitos.
const (
	BetTeamWin    = "team_win"
	BetFirstBlood = "first_blood"
	BetMVP        = "mvp"
)

// Multiplicadores de pagamento por tipo.
const (
	PayoutTeamWin    = 2.0
	PayoutFirstBlood = 2.0
	PayoutMVP        = 3.0
)

var (
	ErrWindowClosed  = errors.New("betting window closed")
	ErrStakeTooLow   = errors.New("stake below minimum")
	ErrStakeTooHigh  = errors.New("stake above maximum")
	ErrTooManyBets   = errors.New("hourly bet limit reached")
	ErrWrongGame     = errors.New("bet type not available for this game")
	ErrInvalidTarget = errors.New("invalid bet target")
)

// Bet é uma linha da tabela bets.
type Bet struct {
	ID       string
	UserID   string
	MatchID  string
	BetType  string
	Team     string
	Target   string
	Amount   float64
	PlacedAt int64
	Resolved bool
	Won      bool
	Payout   float64
}

// PlaceParams descreve o pedido de aposta já resolvido pelo chamador
// contra a partida rastreada do usuário.
type PlaceParams struct {
	UserID         string
	MatchID        string
	GameID         string
	MatchStartTime int64
	BetType        string
	Team           string // team_win: "team1" ou "team2"
	Target         string // first_blood/mvp: nome do jogador
	Amount         float64
}

// Ledger registra apostas com as validações de janela, faixa de valor e
// limite horário. Não liquida nada; isso é papel do Resolver.
type Ledger struct {
	db  database.Database
	cfg config.BettingConfig
	log *zap.SugaredLogger
	now func() time.Time
}

func NewLedger(db database.Database, cfg config.BettingConfig, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, cfg: cfg, log: log, now: time.Now}
}

// PlaceWager valida e grava a aposta, retornando o id gerado.
func (l *Ledger) PlaceWager(ctx context.Context, p PlaceParams) (string, error) {
	if p.Amount < l.cfg.MinBetAmount {
		return "", fmt.Errorf("%w: minimum is %.2f", ErrStakeTooLow, l.cfg.MinBetAmount)
	}
	if p.Amount > l.cfg.MaxBetAmount {
		return "", fmt.Errorf("%w: maximum is %.2f", ErrStakeTooHigh, l.cfg.MaxBetAmount)
	}

	switch p.BetType {
	case BetTeamWin:
		if p.Team == "" {
			return "", fmt.Errorf("%w: team is required", ErrInvalidTarget)
		}
	case BetFirstBlood, BetMVP:
		// Apostas em evento dependem de telemetria, só disponível no Dota 2.
		if p.GameID != "570" {
			return "", ErrWrongGame
		}
		if p.Target == "" {
			return "", fmt.Errorf("%w: player name is required", ErrInvalidTarget)
		}
	default:
		return "", fmt.Errorf("unknown bet type %q", p.BetType)
	}

	now := l.now()
	window := NewWindow(p.MatchStartTime, time.Duration(l.cfg.WindowSeconds)*time.Second)
	if window.StateAt(now) != WindowOpen {
		return "", ErrWindowClosed
	}

	// Limite horário checado e gravado no mesmo statement, para que duas
	// apostas concorrentes do mesmo usuário não passem ambas do teto.
	id := uuid.New().String()
	res, err := l.db.Exec(`INSERT INTO bets (id, user_id, match_id, bet_type, team, target, amount, placed_at, resolved, won, payout)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, FALSE, FALSE, 0
		WHERE (SELECT COUNT(*) FROM bets WHERE user_id = ? AND placed_at > ?) < ?`,
		id, p.UserID, p.MatchID, p.BetType, p.Team, p.Target, p.Amount, now.Unix(),
		p.UserID, now.Add(-time.Hour).Unix(), l.cfg.MaxBetsPerHour)
	if err != nil {
		return "", fmt.Errorf("insert bet: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", fmt.Errorf("insert bet: %w", err)
	} else if n == 0 {
		return "", ErrTooManyBets
	}

	// Registro paralelo para o rate limit por ação, como as outras ações do bot.
	if _, err := l.db.Exec(`INSERT INTO rate_limits (user_id, action, last_used)
		VALUES (?, 'bet', ?)
		ON CONFLICT(user_id, action) DO UPDATE SET last_used = excluded.last_used`,
		p.UserID, now.Unix()); err != nil {
		l.log.Warnw("record bet rate limit", "user", p.UserID, "error", err)
	}

	l.log.Infow("bet placed", "bet", id, "user", p.UserID, "match", p.MatchID, "type", p.BetType, "amount", p.Amount)
	return id, nil
}

// UserBets lista as apostas do usuário, mais recentes primeiro.
func (l *Ledger) UserBets(userID string, limit int) ([]Bet, error) {
	rows, err := l.db.Query(`SELECT id, user_id, match_id, bet_type, team, target, amount, placed_at, resolved, won, payout
		FROM bets WHERE user_id = ? ORDER BY placed_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list user bets: %w", err)
	}
	defer rows.Close()
	return scanBets(rows)
}
