package tracker

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
)

// Notifier recebe as mensagens que o núcleo quer entregar. A implementação
// real fala com o Discord; os testes usam um fake.
type Notifier interface {
	NotifyUser(userID, message string)
	NotifyChannel(message string)
}

// RetireReason explica por que uma partida saiu do rastreamento.
type RetireReason string

const (
	RetireCompleted RetireReason = "completed" // API confirmou vencedor
	RetirePostGame  RetireReason = "postgame"  // telemetria reportou fim
	RetireStale     RetireReason = "stale"     // excedeu a duração máxima
	RetireManual    RetireReason = "manual"    // comando /clear_match
	RetireReplaced  RetireReason = "replaced"  // nova partida observada
)

// retiredTTL é o período em que uma partida recém-encerrada suprime
// redetecção (APIs atrasadas ainda a reportam como ativa).
const retiredTTL = 20 * time.Minute

// completedCap limita o conjunto de partidas concluídas lembradas.
const completedCap = 2000

// Reconciler funde evidências dos dois canais num TrackedMatch por usuário,
// com pontuação de confiança e registro de transições de estado.
type Reconciler struct {
	store    *Store
	db       database.Database
	notifier Notifier
	log      *zap.SugaredLogger

	threshold int
	now       func() time.Time

	mu        sync.Mutex
	lastState map[string]GameState // por usuário, último estado externo visto
	retired   map[string]time.Time // matchID -> quando encerrou
	completed map[string]struct{}
	order     []string // ordem de inserção em completed, para o teto

	onRetire func(matchID string)
}

func NewReconciler(store *Store, db database.Database, notifier Notifier, threshold int, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		store:     store,
		db:        db,
		notifier:  notifier,
		log:       log,
		threshold: threshold,
		now:       time.Now,
		lastState: make(map[string]GameState),
		retired:   make(map[string]time.Time),
		completed: make(map[string]struct{}),
	}
}

// SetRetireHook registra o callback chamado quando uma partida encerra
// (dispara a liquidação das apostas). Deve ser chamado antes do Start.
func (r *Reconciler) SetRetireHook(fn func(matchID string)) {
	r.onRetire = fn
}

// Suppressed reporta se a partida não deve ser redetectada: ou encerrou
// há pouco, ou já consta como concluída.
func (r *Reconciler) Suppressed(matchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.completed[matchID]; ok {
		return true
	}
	if at, ok := r.retired[matchID]; ok && r.now().Sub(at) < retiredTTL {
		return true
	}
	return false
}

// Observe incorpora uma amostra de evidência. Rastreamento é otimista:
// qualquer fonte plausível sozinha cria o registro; a notificação só sai
// quando a confiança acumulada cruza o limiar.
func (r *Reconciler) Observe(userID string, ev Evidence) error {
	if ev.MatchID == "" {
		return nil
	}
	if r.Suppressed(ev.MatchID) {
		return nil
	}
	now := ev.ObservedAt
	if now.IsZero() {
		now = r.now()
	}

	existing := r.store.Get(userID)

	if existing != nil && existing.MatchID == ev.MatchID {
		return r.merge(existing, ev, now)
	}

	if existing != nil {
		// Nova partida enquanto outra estava rastreada: a antiga já acabou
		// e a API ainda não refletiu. Substitui sem liquidar.
		r.log.Infow("replacing tracked match", "user", userID, "old", existing.MatchID, "new", ev.MatchID)
		r.retireLocked(existing, RetireReplaced, "")
	}

	m := &TrackedMatch{
		UserID:     userID,
		GameID:     ev.GameID,
		MatchID:    ev.MatchID,
		Team:       ev.Team,
		StartTime:  r.estimateStart(ev, now),
		LastCheck:  now.Unix(),
		Sources:    SourceSet{ev.Source: true},
		Confidence: ev.Source.weight(),
	}
	if m.GameID == "" {
		m.GameID = DotaGameID
	}
	if err := r.maybeValidate(m, ev, now); err != nil {
		return err
	}
	if err := r.store.Upsert(m); err != nil {
		return err
	}
	r.recordTransition(userID, ev, now)
	r.log.Infow("match tracked", "user", userID, "match", ev.MatchID, "source", ev.Source, "confidence", m.Confidence)
	return nil
}

// merge trata a reobservação da mesma partida: refresca o carimbo, soma a
// fonte nova (cada fonte conta uma vez) e refina a estimativa de início.
func (r *Reconciler) merge(m *TrackedMatch, ev Evidence, now time.Time) error {
	changed := false

	if !m.Sources.Has(ev.Source) {
		m.Sources.Add(ev.Source)
		m.Confidence += ev.Source.weight()
		if m.Confidence > maxConfidence {
			m.Confidence = maxConfidence
		}
		changed = true
	}
	if ev.ClockSeconds != nil {
		refined := now.Unix() - int64(*ev.ClockSeconds)
		if diff := refined - m.StartTime; diff > 5 || diff < -5 {
			m.StartTime = refined
			changed = true
		}
	}
	if m.Team == "" && ev.Team != "" {
		m.Team = ev.Team
		changed = true
	}
	before := m.ValidatedAt
	if err := r.maybeValidate(m, ev, now); err != nil {
		return err
	}
	if m.ValidatedAt != before {
		changed = true
	}

	m.LastCheck = now.Unix()
	var err error
	if changed {
		err = r.store.Upsert(m)
	} else {
		err = r.store.Touch(m.UserID, m.LastCheck)
	}
	if err != nil {
		return err
	}
	r.recordTransition(m.UserID, ev, now)
	return nil
}

// maybeValidate marca validated_at e dispara a notificação única quando a
// confiança cruza o limiar.
func (r *Reconciler) maybeValidate(m *TrackedMatch, ev Evidence, now time.Time) error {
	if m.ValidatedAt != 0 || m.Confidence < r.threshold {
		return nil
	}
	m.ValidatedAt = now.Unix()

	label := ev.Label
	if label == "" {
		label = "Dota 2 Match"
	}
	r.notifier.NotifyUser(m.UserID, fmt.Sprintf(
		"🎮 **%s detected!** Match `%s` is live (confidence %d%%).\n"+
			"Betting is open for the next %d minutes — use `/bet`, `/bet_first_blood` or `/bet_mvp`.",
		label, m.MatchID, m.Confidence, 5))
	r.log.Infow("match validated", "user", m.UserID, "match", m.MatchID, "confidence", m.Confidence)
	return nil
}

// estimateStart escolhe a melhor estimativa de início: relógio da
// telemetria > início reportado pelo histórico > agora.
func (r *Reconciler) estimateStart(ev Evidence, now time.Time) int64 {
	if ev.ClockSeconds != nil {
		return now.Unix() - int64(*ev.ClockSeconds)
	}
	if ev.StartTime > 0 {
		return ev.StartTime
	}
	return now.Unix()
}

// recordTransition persiste a mudança de estado externo, só quando o
// estado realmente mudou em relação ao último visto para o usuário.
func (r *Reconciler) recordTransition(userID string, ev Evidence, now time.Time) {
	if ev.State == "" {
		return
	}
	r.mu.Lock()
	prev, seen := r.lastState[userID]
	if seen && prev == ev.State {
		r.mu.Unlock()
		return
	}
	r.lastState[userID] = ev.State
	r.mu.Unlock()

	if !seen {
		prev = StateUnknown
	}
	if !CanTransition(prev, ev.State) {
		r.log.Warnw("unexpected game state transition", "user", userID, "from", prev, "to", ev.State)
	}
	_, err := r.db.Exec(`INSERT INTO game_state_transitions (user_id, match_id, prev_state, new_state, observed_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, ev.MatchID, string(prev), string(ev.State), now.Unix())
	if err != nil {
		r.log.Errorw("record game state transition", "user", userID, "error", err)
	}
}

// Retire encerra o rastreamento do usuário e, exceto em substituição ou
// limpeza manual, dispara a liquidação da partida.
func (r *Reconciler) Retire(userID, matchID string, reason RetireReason, winner string) error {
	m := r.store.Get(userID)
	if m == nil || m.MatchID != matchID {
		return nil
	}
	return r.retireLocked(m, reason, winner)
}

func (r *Reconciler) retireLocked(m *TrackedMatch, reason RetireReason, winner string) error {
	if err := r.store.Remove(m.UserID); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.lastState, m.UserID)
	if reason != RetireManual {
		r.retired[m.MatchID] = r.now()
		r.rememberCompleted(m.MatchID)
	}
	r.mu.Unlock()

	switch reason {
	case RetireCompleted, RetirePostGame:
		msg := fmt.Sprintf("🏁 Match `%s` finished", m.MatchID)
		if winner != "" {
			msg += fmt.Sprintf(" — **%s** won", winner)
		}
		r.notifier.NotifyUser(m.UserID, msg+". Bets are being settled.")
		if r.onRetire != nil {
			r.onRetire(m.MatchID)
		}
	case RetireStale:
		r.notifier.NotifyChannel(fmt.Sprintf("🧹 Match `%s` for <@%s> exceeded the maximum duration and was cleared.", m.MatchID, m.UserID))
	}

	r.log.Infow("match retired", "user", m.UserID, "match", m.MatchID, "reason", reason)
	return nil
}

// rememberCompleted adiciona ao conjunto de concluídas respeitando o teto;
// chamador segura r.mu.
func (r *Reconciler) rememberCompleted(matchID string) {
	if _, ok := r.completed[matchID]; ok {
		return
	}
	r.completed[matchID] = struct{}{}
	r.order = append(r.order, matchID)
	for len(r.order) > completedCap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.completed, oldest)
	}
}

// ClearMatch é a limpeza manual via comando: remove sem suprimir
// redetecção nem liquidar.
func (r *Reconciler) ClearMatch(userID string) (bool, error) {
	m := r.store.Get(userID)
	if m == nil {
		return false, nil
	}
	return true, r.retireLocked(m, RetireManual, "")
}

// PruneRetired descarta entradas do conjunto de supressão mais velhas que
// o TTL. Rodado pelo sweep de manutenção.
func (r *Reconciler) PruneRetired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	pruned := 0
	for id, at := range r.retired {
		if now.Sub(at) >= retiredTTL {
			delete(r.retired, id)
			pruned++
		}
	}
	return pruned
}
