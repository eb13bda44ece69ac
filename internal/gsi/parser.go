package gsi

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Payload é o corpo enviado pelo Game State Integration do cliente Dota 2.
// Todo bloco é opcional; payloads parciais (só auth + provider, por
// exemplo) são normais e cada consumidor checa presença por ponteiro.
type Payload struct {
	Auth       *Auth             `json:"auth,omitempty"`
	Provider   *Provider         `json:"provider,omitempty"`
	Map        *Map              `json:"map,omitempty"`
	Player     *Player           `json:"player,omitempty"`
	AllPlayers map[string]Player `json:"allplayers,omitempty"`
	Events     *Events           `json:"events,omitempty"`
}

type Auth struct {
	Token string `json:"token"`
}

type Provider struct {
	Name      string `json:"name"`
	AppID     int64  `json:"appid"`
	Timestamp int64  `json:"timestamp"`
}

type Map struct {
	MatchID   string `json:"matchid"`
	GameState string `json:"game_state"`
	// ClockTime é o relógio do jogo em segundos; negativo antes da buzina.
	ClockTime    *int   `json:"clock_time,omitempty"`
	GameTime     *int   `json:"game_time,omitempty"`
	WinTeam      string `json:"win_team,omitempty"`
	RadiantScore int    `json:"radiant_score"`
	DireScore    int    `json:"dire_score"`
}

type Player struct {
	SteamID  string `json:"steamid"`
	Name     string `json:"name"`
	TeamName string `json:"team_name"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Assists  int    `json:"assists"`
	NetWorth int    `json:"net_worth"`
	GPM      int    `json:"gpm"`
	XPM      int    `json:"xpm"`
}

type Events struct {
	FirstBlood       *bool  `json:"first_blood,omitempty"`
	FirstBloodPlayer string `json:"first_blood_player,omitempty"`
	Aegis            *bool  `json:"aegis,omitempty"`
	AegisPlayer      string `json:"aegis_player,omitempty"`
}

// ParsePayload decodifica o corpo do POST. json.Unmarshal já tolera
// campos ausentes; só um corpo malformado é erro.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode gsi payload: %w", err)
	}
	return &p, nil
}

var tokenRE = regexp.MustCompile(`^discord(\d+)$`)

// UserIDFromToken extrai o id do Discord do token de auth gerado pelo
// /setup_ingame ("discord<user_id>").
func UserIDFromToken(token string) (string, bool) {
	m := tokenRE.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AuthToken é o inverso: o token que o arquivo de configuração gerado
// carrega para o usuário.
func AuthToken(userID string) string {
	return "discord" + userID
}
