package steamapi

// MatchStatus indica o que a API respondeu sobre uma partida.
type MatchStatus string

const (
	StatusCompleted  MatchStatus = "completed"
	StatusInProgress MatchStatus = "in_progress"
)

// MatchResult é o resultado de GetMatchDetails, já interpretado.
type MatchResult struct {
	MatchID string
	Status  MatchStatus
	Winner  string // "team1" (radiant) ou "team2" (dire); vazio enquanto em andamento
}

// HistoryMatch é uma entrada de GetMatchHistory.
type HistoryMatch struct {
	MatchID   string
	StartTime int64
	Players   []HistoryPlayer
}

// HistoryPlayer carrega a atribuição de time: slot < 128 = radiant.
type HistoryPlayer struct {
	AccountID  int64
	PlayerSlot int
}

// LiveLeagueGame é uma partida de torneio em andamento com roster.
type LiveLeagueGame struct {
	MatchID string
	Players []LiveLeaguePlayer
}

// LiveLeaguePlayer: team 0 = radiant, 1 = dire.
type LiveLeaguePlayer struct {
	AccountID int64
	Team      int
}

// PlayerSummary é o perfil público de uma conta Steam.
type PlayerSummary struct {
	SteamID     string
	PersonaName string
	ProfileURL  string
}

// Formatos brutos da Steam Web API.

type matchDetailsResponse struct {
	Result *struct {
		MatchID    int64 `json:"match_id"`
		RadiantWin *bool `json:"radiant_win"`
	} `json:"result"`
}

type matchHistoryResponse struct {
	Result *struct {
		Status  int `json:"status"`
		Matches []struct {
			MatchID   int64 `json:"match_id"`
			StartTime int64 `json:"start_time"`
			Players   []struct {
				AccountID  int64 `json:"account_id"`
				PlayerSlot int   `json:"player_slot"`
			} `json:"players"`
		} `json:"matches"`
	} `json:"result"`
}

type liveLeagueGamesResponse struct {
	Result *struct {
		Games []struct {
			MatchID int64 `json:"match_id"`
			Players []struct {
				AccountID int64 `json:"account_id"`
				Team      int   `json:"team"`
			} `json:"players"`
		} `json:"games"`
	} `json:"result"`
}

type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID     string `json:"steamid"`
			PersonaName string `json:"personaname"`
			ProfileURL  string `json:"profileurl"`
		} `json:"players"`
	} `json:"response"`
}

type vanityURLResponse struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
	} `json:"response"`
}
