package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/internal/steamapi"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

// Settler liquida as apostas de uma partida encerrada. Implementado pelo
// resolvedor de apostas; o interface evita acoplar o núcleo ao ledger.
type Settler interface {
	RecordEvent(matchID, eventType, target string) error
	SettleMatch(ctx context.Context, matchID string) error
	PendingMatchIDs() ([]string, error)
}

// Prefixos de partidas sintéticas (testes e simulações); nunca consultadas
// na API nem liquidadas automaticamente.
var syntheticPrefixes = []string{"dota_", "sim_"}

func IsSyntheticMatch(matchID string) bool {
	for _, p := range syntheticPrefixes {
		if strings.HasPrefix(matchID, p) {
			return true
		}
	}
	return false
}

// Intervalos dos sweeps de fundo.
const (
	resolveInterval     = 5 * time.Minute
	staleInterval       = 10 * time.Minute
	maintenanceInterval = 30 * time.Minute
	sessionInterval     = 15 * time.Minute

	// recheckWindow: usuário já rastreado e checado há menos que isso é pulado.
	recheckWindow = 60 * time.Second
	// historyWindow: partidas do histórico mais velhas que isso não contam
	// como candidatas a "ao vivo".
	historyWindow = 30 * time.Minute
	// batchPause entre lotes da varredura de atividade.
	batchPause = time.Second
	// checkTimeout por chamada de validação.
	checkTimeout = 10 * time.Second
	// walletSessionTTL: sessões de carteira sem atividade além disso expiram.
	walletSessionTTL = 24 * time.Hour
)

// Scheduler roda os laços periódicos: varredura de atividade, resolução
// de apostas, limpeza de partidas velhas, manutenção de caches e expiração
// de sessões de carteira. Cada laço respeita o cancelamento do contexto.
type Scheduler struct {
	db      database.Database
	store   *Store
	rec     *Reconciler
	steam   *steamapi.Client
	settler Settler
	cfg     config.DetectionConfig
	log     *zap.SugaredLogger
}

func NewScheduler(db database.Database, store *Store, rec *Reconciler, steam *steamapi.Client, settler Settler, cfg config.DetectionConfig, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		db:      db,
		store:   store,
		rec:     rec,
		steam:   steam,
		settler: settler,
		cfg:     cfg,
		log:     log,
	}
}

// Start dispara todos os laços e retorna; eles param quando ctx cancela.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, time.Duration(s.cfg.PollIntervalSeconds)*time.Second, s.activitySweep)
	go s.loop(ctx, resolveInterval, s.resolveSweep)
	go s.loop(ctx, staleInterval, s.staleSweep)
	go s.loop(ctx, maintenanceInterval, s.maintenanceSweep)
	go s.loop(ctx, sessionInterval, s.sessionSweep)
	s.log.Infow("background sweeps started", "poll_interval_s", s.cfg.PollIntervalSeconds)
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// activitySweep checa todos os usuários vinculados em lotes concorrentes,
// com pausa entre lotes para não pressionar a API.
func (s *Scheduler) activitySweep(ctx context.Context) {
	mappings, err := database.AllSteamMappings(s.db)
	if err != nil {
		s.log.Errorw("load steam mappings", "error", err)
		return
	}

	batch := s.cfg.BatchSize
	if batch <= 0 {
		batch = 5
	}
	for i := 0; i < len(mappings); i += batch {
		end := i + batch
		if end > len(mappings) {
			end = len(mappings)
		}
		var wg sync.WaitGroup
		for _, mp := range mappings[i:end] {
			wg.Add(1)
			go func(userID, steamID string) {
				defer wg.Done()
				cctx, cancel := context.WithTimeout(ctx, checkTimeout)
				defer cancel()
				if err := s.CheckUser(cctx, userID, steamID); err != nil && !errors.Is(err, steamapi.ErrUnavailable) {
					s.log.Warnw("activity check failed", "user", userID, "error", err)
				}
			}(mp.UserID, mp.SteamID)
		}
		wg.Wait()

		if end < len(mappings) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(batchPause):
			}
		}
	}
}

// CheckUser valida (ou tenta detectar) a partida do usuário. Também serve
// o comando /check_match.
func (s *Scheduler) CheckUser(ctx context.Context, userID, steamID string) error {
	now := time.Now()
	tracked := s.store.Get(userID)

	if tracked != nil {
		if now.Unix()-tracked.LastCheck < int64(recheckWindow.Seconds()) {
			return nil
		}
		return s.validateTracked(ctx, tracked)
	}
	return s.detect(ctx, userID, steamID, now)
}

// validateTracked confere pela API se a partida rastreada já terminou.
func (s *Scheduler) validateTracked(ctx context.Context, m *TrackedMatch) error {
	if IsSyntheticMatch(m.MatchID) {
		return s.store.Touch(m.UserID, time.Now().Unix())
	}

	res, err := s.steam.MatchDetails(ctx, m.MatchID)
	if err != nil {
		return err
	}
	if res.Status == steamapi.StatusCompleted {
		if res.Winner != "" {
			if err := s.settler.RecordEvent(m.MatchID, "winner", res.Winner); err != nil {
				s.log.Errorw("record winner event", "match", m.MatchID, "error", err)
			}
		}
		return s.rec.Retire(m.UserID, m.MatchID, RetireCompleted, res.Winner)
	}
	return s.store.Touch(m.UserID, time.Now().Unix())
}

// detect procura uma partida ao vivo pelos dois caminhos de polling:
// jogos de liga ao vivo e o histórico recente.
func (s *Scheduler) detect(ctx context.Context, userID, steamID string, now time.Time) error {
	account := steamapi.AccountID(steamID)

	games, err := s.steam.LiveLeagueGames(ctx)
	if err == nil {
		for _, g := range games {
			for _, p := range g.Players {
				if p.AccountID != account {
					continue
				}
				team := TeamOne
				if p.Team == 1 {
					team = TeamTwo
				}
				return s.rec.Observe(userID, Evidence{
					Source:     SourcePoll,
					MatchID:    g.MatchID,
					GameID:     DotaGameID,
					Team:       team,
					ObservedAt: now,
					Label:      "League Match",
				})
			}
		}
	} else if !errors.Is(err, steamapi.ErrUnavailable) {
		s.log.Debugw("live league games unavailable", "error", err)
	}

	history, err := s.steam.MatchHistory(ctx, account, 5)
	if err != nil {
		return err
	}
	for _, h := range history {
		started := time.Unix(h.StartTime, 0)
		if now.Sub(started) > historyWindow {
			continue
		}
		res, err := s.steam.MatchDetails(ctx, h.MatchID)
		if err != nil && !errors.Is(err, steamapi.ErrUnavailable) {
			return err
		}
		if res == nil || res.Status != steamapi.StatusInProgress {
			continue
		}
		team := TeamOne
		for _, p := range h.Players {
			if p.AccountID == account && p.PlayerSlot >= 128 {
				team = TeamTwo
			}
		}
		return s.rec.Observe(userID, Evidence{
			Source:     SourcePoll,
			MatchID:    h.MatchID,
			GameID:     DotaGameID,
			Team:       team,
			StartTime:  h.StartTime,
			ObservedAt: now,
			Label:      "Dota 2 Match",
		})
	}
	return nil
}

// resolveSweep tenta liquidar qualquer aposta pendente cuja partida já
// tenha terminado, cobrindo reinícios e telemetria perdida.
func (s *Scheduler) resolveSweep(ctx context.Context) {
	ids, err := s.settler.PendingMatchIDs()
	if err != nil {
		s.log.Errorw("list pending matches", "error", err)
		return
	}
	for _, id := range ids {
		if IsSyntheticMatch(id) {
			s.log.Debugw("skipping synthetic match in resolve sweep", "match", id)
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		res, err := s.steam.MatchDetails(cctx, id)
		cancel()
		if err != nil || res.Status != steamapi.StatusCompleted {
			continue
		}
		if res.Winner != "" {
			if err := s.settler.RecordEvent(id, "winner", res.Winner); err != nil {
				s.log.Errorw("record winner event", "match", id, "error", err)
				continue
			}
		}
		if err := s.settler.SettleMatch(ctx, id); err != nil {
			s.log.Errorw("settle match", "match", id, "error", err)
		}
	}
}

// staleSweep encerra partidas além da duração máxima e revalida as demais.
func (s *Scheduler) staleSweep(ctx context.Context) {
	maxDur := time.Duration(s.cfg.MaxMatchDuration) * time.Second
	now := time.Now()
	for _, m := range s.store.All() {
		if m.Elapsed(now) > maxDur {
			if err := s.rec.Retire(m.UserID, m.MatchID, RetireStale, ""); err != nil {
				s.log.Errorw("retire stale match", "user", m.UserID, "error", err)
			}
			continue
		}
		if IsSyntheticMatch(m.MatchID) {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.validateTracked(cctx, m)
		cancel()
		if err != nil && !errors.Is(err, steamapi.ErrUnavailable) {
			s.log.Warnw("stale sweep validation failed", "user", m.UserID, "error", err)
		}
	}
}

// maintenanceSweep poda os caches de curadoria do reconciliador.
func (s *Scheduler) maintenanceSweep(_ context.Context) {
	if pruned := s.rec.PruneRetired(); pruned > 0 {
		s.log.Infow("pruned retired matches", "count", pruned)
	}
}

// sessionSweep expira sessões de carteira ociosas.
func (s *Scheduler) sessionSweep(_ context.Context) {
	cutoff := time.Now().Add(-walletSessionTTL)
	n, err := database.CleanupExpiredWalletSessions(s.db, cutoff)
	if err != nil {
		s.log.Errorw("cleanup wallet sessions", "error", err)
		return
	}
	if n > 0 {
		s.log.Infow("expired wallet sessions removed", "count", n)
	}
}
