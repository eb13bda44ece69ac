package betting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
)

// Notifier entrega o resultado da aposta ao usuário. A implementação real
// fala com o Discord; os testes usam um fake.
type Notifier interface {
	NotifyUser(userID, message string)
}

// MatchEvent é uma linha de match_events: fatos imutáveis da partida
// (vencedor, first blood, mvp) gravados uma única vez.
type MatchEvent struct {
	MatchID   string
	EventType string
	Target    string
	EventTime int64
}

// Resolver liquida apostas exatamente uma vez a partir dos eventos
// registrados da partida.
type Resolver struct {
	db       database.Database
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewResolver(db database.Database, notifier Notifier, log *zap.SugaredLogger) *Resolver {
	return &Resolver{db: db, notifier: notifier, log: log}
}

// RecordEvent grava o fato da partida de forma idempotente: a primeira
// gravação vence, repetições são ignoradas.
func (r *Resolver) RecordEvent(matchID, eventType, target string) error {
	_, err := r.db.Exec(`INSERT INTO match_events (match_id, event_type, event_target, event_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(match_id, event_type) DO NOTHING`,
		matchID, eventType, target, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record match event %s/%s: %w", matchID, eventType, err)
	}
	return nil
}

// eventTarget busca o alvo registrado de um evento; "" se não houver.
func (r *Resolver) eventTarget(matchID, eventType string) (string, error) {
	var target string
	err := r.db.QueryRow(`SELECT event_target FROM match_events WHERE match_id = ? AND event_type = ?`,
		matchID, eventType).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load match event %s/%s: %w", matchID, eventType, err)
	}
	return target, nil
}

// SettleMatch liquida todas as apostas pendentes da partida a partir dos
// eventos já registrados. Seguro chamar repetidas vezes.
func (r *Resolver) SettleMatch(ctx context.Context, matchID string) error {
	winner, err := r.eventTarget(matchID, "winner")
	if err != nil {
		return err
	}
	if winner != "" {
		if err := r.ResolveTeamWin(ctx, matchID, winner); err != nil {
			return err
		}
	}
	return r.CheckEventBets(ctx, matchID)
}

// ResolveTeamWin liquida as apostas team_win da partida contra o vencedor.
func (r *Resolver) ResolveTeamWin(ctx context.Context, matchID, winner string) error {
	bets, err := r.pendingBets(matchID, BetTeamWin)
	if err != nil {
		return err
	}
	for _, b := range bets {
		won := strings.EqualFold(b.Team, winner)
		if err := r.settleBet(ctx, b, won, PayoutTeamWin, fmt.Sprintf("**%s** won", winner)); err != nil {
			return err
		}
	}
	return nil
}

// CheckEventBets liquida apostas de first blood e mvp quando o evento
// correspondente já foi registrado.
func (r *Resolver) CheckEventBets(ctx context.Context, matchID string) error {
	for eventType, multiplier := range map[string]float64{
		BetFirstBlood: PayoutFirstBlood,
		BetMVP:        PayoutMVP,
	} {
		target, err := r.eventTarget(matchID, eventType)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}
		bets, err := r.pendingBets(matchID, eventType)
		if err != nil {
			return err
		}
		for _, b := range bets {
			won := strings.EqualFold(b.Target, target)
			label := fmt.Sprintf("%s: **%s**", strings.ReplaceAll(eventType, "_", " "), target)
			if err := r.settleBet(ctx, b, won, multiplier, label); err != nil {
				return err
			}
		}
	}
	return nil
}

// settleBet marca a aposta como resolvida de forma exatamente-uma-vez:
// o UPDATE condicionado a resolved = FALSE é o guarda contra liquidação
// dupla entre sweeps e telemetria concorrentes.
func (r *Resolver) settleBet(_ context.Context, b Bet, won bool, multiplier float64, outcome string) error {
	payout := 0.0
	if won {
		payout = b.Amount * multiplier
	}
	res, err := r.db.Exec(`UPDATE bets SET resolved = TRUE, won = ?, payout = ? WHERE id = ? AND resolved = FALSE`,
		won, payout, b.ID)
	if err != nil {
		return fmt.Errorf("settle bet %s: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return err
	}

	if won {
		r.notifier.NotifyUser(b.UserID, fmt.Sprintf("💰 You won! %s — your %.2f bet pays **%.2f**.", outcome, b.Amount, payout))
	} else {
		r.notifier.NotifyUser(b.UserID, fmt.Sprintf("💸 You lost your %.2f bet. %s.", b.Amount, outcome))
	}
	r.log.Infow("bet settled", "bet", b.ID, "user", b.UserID, "match", b.MatchID, "won", won, "payout", payout)
	return nil
}

// ResolveManually força a liquidação administrativa com o vencedor dado.
func (r *Resolver) ResolveManually(ctx context.Context, matchID, winner string) error {
	if winner != "team1" && winner != "team2" {
		return fmt.Errorf("winner must be team1 or team2, got %q", winner)
	}
	if err := r.RecordEvent(matchID, "winner", winner); err != nil {
		return err
	}
	return r.SettleMatch(ctx, matchID)
}

// PendingMatchIDs lista as partidas com apostas não resolvidas.
func (r *Resolver) PendingMatchIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT match_id FROM bets WHERE resolved = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("list pending matches: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteSyntheticWagers apaga apostas em partidas sintéticas (prefixos de
// teste) junto com seus eventos. Retorna quantas apostas saíram.
func (r *Resolver) DeleteSyntheticWagers(prefixes []string) (int64, error) {
	var total int64
	for _, p := range prefixes {
		pattern := p + "%"
		res, err := r.db.Exec(`DELETE FROM bets WHERE match_id LIKE ?`, pattern)
		if err != nil {
			return total, fmt.Errorf("delete synthetic bets %q: %w", p, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
		if _, err := r.db.Exec(`DELETE FROM match_events WHERE match_id LIKE ?`, pattern); err != nil {
			return total, fmt.Errorf("delete synthetic events %q: %w", p, err)
		}
	}
	return total, nil
}

func (r *Resolver) pendingBets(matchID, betType string) ([]Bet, error) {
	rows, err := r.db.Query(`SELECT id, user_id, match_id, bet_type, team, target, amount, placed_at, resolved, won, payout
		FROM bets WHERE match_id = ? AND bet_type = ? AND resolved = FALSE`, matchID, betType)
	if err != nil {
		return nil, fmt.Errorf("load pending bets %s/%s: %w", matchID, betType, err)
	}
	defer rows.Close()
	return scanBets(rows)
}

func scanBets(rows *sql.Rows) ([]Bet, error) {
	var bets []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.UserID, &b.MatchID, &b.BetType, &b.Team, &b.Target, &b.Amount, &b.PlacedAt, &b.Resolved, &b.Won, &b.Payout); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}
