package tracker

import (
	"sort"
	"strings"
	"time"
)

// Times na convenção da Steam API: team1 = radiant, team2 = dire.
const (
	TeamOne = "team1"
	TeamTwo = "team2"
)

// DotaGameID é o app id usado nas linhas de active_players.
const DotaGameID = "570"

// Source identifica o canal de evidência que observou a partida.
type Source string

const (
	SourcePoll  Source = "poll"
	SourcePush  Source = "push"
	SourceDraft Source = "draft"
)

// Pesos de confiança por fonte. Cada fonte contribui no máximo uma vez
// por partida; o acumulado satura em 100.
const (
	weightPoll  = 40
	weightPush  = 40
	weightDraft = 20

	maxConfidence = 100
)

func (s Source) weight() int {
	switch s {
	case SourcePoll:
		return weightPoll
	case SourcePush:
		return weightPush
	case SourceDraft:
		return weightDraft
	}
	return 0
}

// SourceSet é o conjunto de fontes que já detectaram a partida.
type SourceSet map[Source]bool

func (ss SourceSet) Add(s Source) {
	ss[s] = true
}

func (ss SourceSet) Has(s Source) bool {
	return ss[s]
}

// String serializa o conjunto de forma estável ("draft,poll,push").
func (ss SourceSet) String() string {
	names := make([]string, 0, len(ss))
	for s, ok := range ss {
		if ok {
			names = append(names, string(s))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func ParseSourceSet(s string) SourceSet {
	set := make(SourceSet)
	for _, name := range strings.Split(s, ",") {
		switch Source(strings.TrimSpace(name)) {
		case SourcePoll:
			set[SourcePoll] = true
		case SourcePush:
			set[SourcePush] = true
		case SourceDraft:
			set[SourceDraft] = true
		}
	}
	return set
}

// GameState é o estado externo observado da partida (telemetria GSI).
type GameState string

const (
	StateUnknown  GameState = "undefined"
	StateDraft    GameState = "draft"
	StateInGame   GameState = "in_game"
	StatePostGame GameState = "postgame"
)

// ParseGameState normaliza os rótulos do GSI ("DOTA_GAMERULES_STATE_PRE_GAME",
// "postgame", ...) para o enum interno. Rótulos desconhecidos viram StateUnknown.
func ParseGameState(label string) GameState {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.TrimPrefix(l, "dota_gamerules_state_")

	switch l {
	case "hero_selection", "strategy_time", "team_showcase", "pre_game", "wait_for_map_to_load", "draft":
		return StateDraft
	case "game_in_progress", "in_progress", "in_game":
		return StateInGame
	case "post_game", "postgame":
		return StatePostGame
	default:
		return StateUnknown
	}
}

// validTransitions é a tabela explícita do ciclo de vida observado.
// A telemetria pode pular estados (chegar tarde), então todo estado
// aceita saltos para frente; só regressões a partir de postgame são inválidas.
var validTransitions = map[GameState][]GameState{
	StateUnknown:  {StateDraft, StateInGame, StatePostGame},
	StateDraft:    {StateInGame, StatePostGame, StateUnknown},
	StateInGame:   {StatePostGame, StateUnknown},
	StatePostGame: {StateUnknown},
}

// CanTransition reporta se a mudança de estado é esperada pela tabela.
// Transições inesperadas ainda são registradas, mas com aviso.
func CanTransition(from, to GameState) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TrackedMatch é o registro canônico de "este usuário está nesta partida".
// No máximo um por usuário; o Store é o dono exclusivo.
type TrackedMatch struct {
	UserID      string
	GameID      string
	MatchID     string
	Team        string
	StartTime   int64 // epoch segundos, melhor estimativa
	LastCheck   int64
	Sources     SourceSet
	Confidence  int
	ValidatedAt int64 // 0 até cruzar o limiar de confiança
}

// Elapsed retorna quanto tempo passou desde o início estimado.
func (m *TrackedMatch) Elapsed(now time.Time) time.Duration {
	return time.Duration(now.Unix()-m.StartTime) * time.Second
}

func (m *TrackedMatch) clone() *TrackedMatch {
	c := *m
	c.Sources = make(SourceSet, len(m.Sources))
	for s, ok := range m.Sources {
		c.Sources[s] = ok
	}
	return &c
}

// Evidence é uma amostra efêmera de um canal; vive só durante a reconciliação.
type Evidence struct {
	Source  Source
	MatchID string
	GameID  string
	Team    string
	// State é o estado externo observado (só evidência push).
	State GameState
	// ClockSeconds, quando presente, é o tempo decorrido reportado pela
	// telemetria; refina a estimativa de início da partida.
	ClockSeconds *int
	// StartTime é o início reportado pelo histórico de partidas (poll).
	StartTime  int64
	ObservedAt time.Time
	// Label descreve o tipo de partida para a notificação ("League Match", ...).
	Label string
}
