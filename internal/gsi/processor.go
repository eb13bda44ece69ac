package gsi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/betting"
	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/internal/tracker"
)

// Processor consome payloads de telemetria autenticados e alimenta o
// reconciliador com evidência push, além de registrar os eventos que
// liquidam apostas (first blood, vencedor, mvp).
type Processor struct {
	db       database.Database
	store    *tracker.Store
	rec      *tracker.Reconciler
	resolver *betting.Resolver
	log      *zap.SugaredLogger
}

func NewProcessor(db database.Database, store *tracker.Store, rec *tracker.Reconciler, resolver *betting.Resolver, log *zap.SugaredLogger) *Processor {
	return &Processor{db: db, store: store, rec: rec, resolver: resolver, log: log}
}

// Handle processa um payload já autenticado para o usuário dado.
func (p *Processor) Handle(ctx context.Context, userID string, payload *Payload) error {
	if err := database.RecordGSIConnection(p.db, userID, time.Now()); err != nil {
		p.log.Warnw("record gsi connection", "user", userID, "error", err)
	}

	if payload.Map == nil || payload.Map.MatchID == "" {
		return nil
	}
	matchID := payload.Map.MatchID
	state := tracker.ParseGameState(payload.Map.GameState)

	if payload.Events != nil && payload.Events.FirstBlood != nil && *payload.Events.FirstBlood {
		target := payload.Events.FirstBloodPlayer
		if target == "" && payload.Player != nil {
			target = payload.Player.Name
		}
		if target != "" {
			if err := p.resolver.RecordEvent(matchID, "first_blood", target); err != nil {
				p.log.Errorw("record first blood", "match", matchID, "error", err)
			}
		}
	}

	switch state {
	case tracker.StateDraft:
		return p.rec.Observe(userID, tracker.Evidence{
			Source:  tracker.SourceDraft,
			MatchID: matchID,
			GameID:  tracker.DotaGameID,
			Team:    teamFromName(playerTeam(payload)),
			State:   state,
			Label:   "Dota 2 Match (drafting)",
		})

	case tracker.StateInGame:
		ev := tracker.Evidence{
			Source:  tracker.SourcePush,
			MatchID: matchID,
			GameID:  tracker.DotaGameID,
			Team:    teamFromName(playerTeam(payload)),
			State:   state,
			Label:   "Dota 2 Match",
		}
		if payload.Map.ClockTime != nil && *payload.Map.ClockTime >= 0 {
			ev.ClockSeconds = payload.Map.ClockTime
		}
		return p.rec.Observe(userID, ev)

	case tracker.StatePostGame:
		return p.finishMatch(ctx, userID, matchID, payload)
	}
	return nil
}

// finishMatch registra vencedor e MVP a partir do payload de pós-jogo e
// encerra o rastreamento, o que dispara a liquidação.
func (p *Processor) finishMatch(_ context.Context, userID, matchID string, payload *Payload) error {
	winner := teamFromName(payload.Map.WinTeam)
	if winner != "" {
		if err := p.resolver.RecordEvent(matchID, "winner", winner); err != nil {
			p.log.Errorw("record winner", "match", matchID, "error", err)
		}
	}

	if mvp := pickMVP(payload, winner); mvp != "" {
		if err := p.resolver.RecordEvent(matchID, "mvp", mvp); err != nil {
			p.log.Errorw("record mvp", "match", matchID, "error", err)
		}
	}

	return p.rec.Retire(userID, matchID, tracker.RetirePostGame, winner)
}

// mvpScore pondera a performance do jogador; o time vencedor leva bônus.
func mvpScore(pl Player, won bool) float64 {
	score := float64(pl.Kills)*4 + float64(pl.Assists)*2 - float64(pl.Deaths)*3 +
		float64(pl.NetWorth)/200 + float64(pl.GPM)/10 + float64(pl.XPM)/10
	if won {
		score *= 1.5
	}
	return score
}

// pickMVP escolhe o melhor jogador do roster de espectador; sem roster,
// nada de MVP (payload de jogador único não dá base de comparação).
func pickMVP(payload *Payload, winner string) string {
	if len(payload.AllPlayers) == 0 {
		return ""
	}
	best := ""
	bestScore := 0.0
	for _, pl := range payload.AllPlayers {
		if pl.Name == "" {
			continue
		}
		s := mvpScore(pl, teamFromName(pl.TeamName) == winner)
		if best == "" || s > bestScore {
			best = pl.Name
			bestScore = s
		}
	}
	return best
}

// playerTeam devolve o nome do time do bloco de jogador, se presente.
func playerTeam(payload *Payload) string {
	if payload.Player == nil {
		return ""
	}
	return payload.Player.TeamName
}

// teamFromName normaliza os nomes de time do GSI para a convenção da API.
func teamFromName(name string) string {
	switch strings.ToLower(name) {
	case "radiant", "team1":
		return tracker.TeamOne
	case "dire", "team2":
		return tracker.TeamTwo
	default:
		return ""
	}
}

// ConfigFile gera o gamestate_integration_goodgains.cfg que o usuário
// salva na pasta do Dota 2, apontando a telemetria para o bot.
func ConfigFile(publicURL, userID string) string {
	return fmt.Sprintf(`"GoodGains Bot Integration"
{
    "uri"           "%s/gsi/dota2"
    "timeout"       "5.0"
    "buffer"        "0.1"
    "throttle"      "0.1"
    "heartbeat"     "30.0"
    "auth"
    {
        "token"     "%s"
    }
    "data"
    {
        "provider"      "1"
        "map"           "1"
        "player"        "1"
        "hero"          "1"
        "events"        "1"
        "allplayers"    "1"
    }
}
`, publicURL, AuthToken(userID))
}
