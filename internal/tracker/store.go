package tracker

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
)

// Store é o dono exclusivo das linhas de active_players. O banco é a
// verdade durável; o cache em memória espelha ele para leituras quentes
// dos sweeps e do processador de telemetria.
type Store struct {
	db  database.Database
	log *zap.SugaredLogger

	mu    sync.Mutex
	cache map[string]*TrackedMatch
}

func NewStore(db database.Database, log *zap.SugaredLogger) *Store {
	return &Store{
		db:    db,
		log:   log,
		cache: make(map[string]*TrackedMatch),
	}
}

// ReloadCache recarrega o espelho a partir do banco. Chamado no boot.
func (s *Store) ReloadCache() error {
	rows, err := s.db.Query(`SELECT user_id, game_id, match_id, team, match_start_time, last_check_time, sources, confidence, validated_at FROM active_players`)
	if err != nil {
		return fmt.Errorf("reload active players: %w", err)
	}
	defer rows.Close()

	fresh := make(map[string]*TrackedMatch)
	for rows.Next() {
		var m TrackedMatch
		var sources string
		if err := rows.Scan(&m.UserID, &m.GameID, &m.MatchID, &m.Team, &m.StartTime, &m.LastCheck, &sources, &m.Confidence, &m.ValidatedAt); err != nil {
			return fmt.Errorf("scan active player: %w", err)
		}
		m.Sources = ParseSourceSet(sources)
		fresh[m.UserID] = &m
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()
	s.log.Infow("active player cache reloaded", "players", len(fresh))
	return nil
}

// Get retorna uma cópia do registro do usuário, ou nil se não rastreado.
func (s *Store) Get(userID string) *TrackedMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.cache[userID]; ok {
		return m.clone()
	}
	return nil
}

// All retorna cópias de todos os registros rastreados.
func (s *Store) All() []*TrackedMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*TrackedMatch, 0, len(s.cache))
	for _, m := range s.cache {
		out = append(out, m.clone())
	}
	return out
}

// Upsert grava o registro no banco (um por usuário, ON CONFLICT resolve
// corridas entre canais) e só então atualiza o cache.
func (s *Store) Upsert(m *TrackedMatch) error {
	_, err := s.db.Exec(`INSERT INTO active_players (user_id, game_id, match_id, team, match_start_time, last_check_time, sources, confidence, validated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			game_id = excluded.game_id,
			match_id = excluded.match_id,
			team = excluded.team,
			match_start_time = excluded.match_start_time,
			last_check_time = excluded.last_check_time,
			sources = excluded.sources,
			confidence = excluded.confidence,
			validated_at = excluded.validated_at`,
		m.UserID, m.GameID, m.MatchID, m.Team, m.StartTime, m.LastCheck, m.Sources.String(), m.Confidence, m.ValidatedAt)
	if err != nil {
		return fmt.Errorf("upsert active player %s: %w", m.UserID, err)
	}

	s.mu.Lock()
	s.cache[m.UserID] = m.clone()
	s.mu.Unlock()
	return nil
}

// Touch atualiza só o carimbo de última checagem.
func (s *Store) Touch(userID string, ts int64) error {
	_, err := s.db.Exec(`UPDATE active_players SET last_check_time = ? WHERE user_id = ?`, ts, userID)
	if err != nil {
		return fmt.Errorf("touch active player %s: %w", userID, err)
	}
	s.mu.Lock()
	if m, ok := s.cache[userID]; ok {
		m.LastCheck = ts
	}
	s.mu.Unlock()
	return nil
}

// Remove apaga o registro do usuário. Remover quem não existe não é erro.
func (s *Store) Remove(userID string) error {
	_, err := s.db.Exec(`DELETE FROM active_players WHERE user_id = ?`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("remove active player %s: %w", userID, err)
	}
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
	return nil
}

// UsersInMatch retorna os usuários rastreados na partida dada.
func (s *Store) UsersInMatch(matchID string) []*TrackedMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*TrackedMatch
	for _, m := range s.cache {
		if m.MatchID == matchID {
			out = append(out, m.clone())
		}
	}
	return out
}
