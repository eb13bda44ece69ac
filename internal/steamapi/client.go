package steamapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const baseURL = "https://api.steampowered.com"

// steamIDOffset converte Steam64 para account ID do Dota 2.
const steamIDOffset = 76561197960265728

var (
	// ErrUnavailable: a chave está em backoff, nenhuma chamada foi feita.
	ErrUnavailable = errors.New("steamapi: call suppressed by backoff")
	// ErrInProgress: a API respondeu 500, que para GetMatchDetails
	// significa "partida ainda não concluída".
	ErrInProgress = errors.New("steamapi: match still in progress")
)

var (
	profileIDPattern = regexp.MustCompile(`profiles/(\d{17})`)
	vanityPattern    = regexp.MustCompile(`id/([^/]+)`)
)

// Client acessa a Steam Web API com backoff por chave e suavização
// global de requisições.
type Client struct {
	apiKey  string
	http    *http.Client
	limiter *RateLimiter
	pacer   *rate.Limiter
	log     *zap.SugaredLogger

	base string
}

func NewClient(apiKey string, requestsPerMin int, log *zap.SugaredLogger) *Client {
	if requestsPerMin <= 0 {
		requestsPerMin = 30
	}
	return &Client{
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: NewRateLimiter(),
		pacer:   rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), requestsPerMin),
		log:     log,
		base:    baseURL,
	}
}

// Limiter expõe o estado de backoff (para o comando de status).
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// AccountID converte um Steam64 em account ID do Dota 2.
func AccountID(steamID string) int64 {
	id, err := strconv.ParseInt(steamID, 10, 64)
	if err != nil {
		return 0
	}
	return id - steamIDOffset
}

// ExtractSteamID tira o Steam ID (ou vanity name) de uma URL de perfil.
// Retorna "" se a URL não for da steamcommunity.
func ExtractSteamID(profileURL string) string {
	parsed, err := url.Parse(profileURL)
	if err != nil || parsed.Host != "steamcommunity.com" {
		return ""
	}
	if m := profileIDPattern.FindStringSubmatch(profileURL); m != nil {
		return m[1]
	}
	if m := vanityPattern.FindStringSubmatch(profileURL); m != nil {
		return m[1]
	}
	return ""
}

// IsSteam64 reporta se a string já é um Steam64 (17 dígitos).
func IsSteam64(s string) bool {
	if len(s) != 17 {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func (c *Client) get(ctx context.Context, key, path string, params url.Values, out interface{}) error {
	if !c.limiter.ShouldRetry(key) {
		return ErrUnavailable
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	params.Set("key", c.apiKey)
	reqURL := c.base + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		backoff := c.limiter.RecordFailure(key)
		c.log.Errorw("steam api request failed", "key", key, "error", err, "backoff", backoff)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusInternalServerError {
		// A Steam Web API usa 500 no GetMatchDetails para partidas em
		// andamento. Conta para o backoff (evita loop apertado em
		// partidas longas) mas não é falha dura.
		backoff := c.limiter.RecordFailure(key)
		c.log.Warnw("steam api returned 500", "key", key, "backoff", backoff)
		return ErrInProgress
	}
	if resp.StatusCode != http.StatusOK {
		backoff := c.limiter.RecordFailure(key)
		c.log.Errorw("steam api returned error status", "key", key, "status", resp.StatusCode, "backoff", backoff)
		return fmt.Errorf("steam api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		backoff := c.limiter.RecordFailure(key)
		c.log.Errorw("steam api decode failed", "key", key, "error", err, "backoff", backoff)
		return err
	}

	c.limiter.RecordSuccess(key)
	return nil
}

// MatchDetails consulta GetMatchDetails. Retorna ErrInProgress enquanto a
// partida não tem vencedor definitivo, ErrUnavailable sob backoff.
func (c *Client) MatchDetails(ctx context.Context, matchID string) (*MatchResult, error) {
	key := "match_details_" + matchID
	params := url.Values{"match_id": {matchID}}

	var data matchDetailsResponse
	if err := c.get(ctx, key, "/IDOTA2Match_570/GetMatchDetails/v1/", params, &data); err != nil {
		if errors.Is(err, ErrInProgress) {
			return &MatchResult{MatchID: matchID, Status: StatusInProgress}, nil
		}
		return nil, err
	}

	if data.Result == nil {
		c.log.Warnw("match data incomplete", "match_id", matchID)
		return nil, fmt.Errorf("match %s data incomplete", matchID)
	}

	// radiant_win presente = partida concluída
	if data.Result.RadiantWin != nil {
		winner := "team2"
		if *data.Result.RadiantWin {
			winner = "team1"
		}
		return &MatchResult{MatchID: matchID, Status: StatusCompleted, Winner: winner}, nil
	}
	return &MatchResult{MatchID: matchID, Status: StatusInProgress}, nil
}

// MatchHistory lista as partidas recentes de uma conta.
func (c *Client) MatchHistory(ctx context.Context, accountID int64, matchesRequested int) ([]HistoryMatch, error) {
	key := fmt.Sprintf("match_history_%d", accountID)
	params := url.Values{
		"account_id":        {strconv.FormatInt(accountID, 10)},
		"matches_requested": {strconv.Itoa(matchesRequested)},
	}

	var data matchHistoryResponse
	if err := c.get(ctx, key, "/IDOTA2Match_570/GetMatchHistory/v1/", params, &data); err != nil {
		return nil, err
	}

	if data.Result == nil || data.Result.Status != 1 {
		return nil, nil
	}

	matches := make([]HistoryMatch, 0, len(data.Result.Matches))
	for _, m := range data.Result.Matches {
		hm := HistoryMatch{
			MatchID:   strconv.FormatInt(m.MatchID, 10),
			StartTime: m.StartTime,
		}
		for _, p := range m.Players {
			hm.Players = append(hm.Players, HistoryPlayer{AccountID: p.AccountID, PlayerSlot: p.PlayerSlot})
		}
		matches = append(matches, hm)
	}
	return matches, nil
}

// LiveLeagueGames lista partidas de torneio em andamento com rosters.
func (c *Client) LiveLeagueGames(ctx context.Context) ([]LiveLeagueGame, error) {
	var data liveLeagueGamesResponse
	if err := c.get(ctx, "live_league_games", "/IDOTA2Match_570/GetLiveLeagueGames/v1/", url.Values{}, &data); err != nil {
		return nil, err
	}

	if data.Result == nil {
		return nil, nil
	}

	games := make([]LiveLeagueGame, 0, len(data.Result.Games))
	for _, g := range data.Result.Games {
		game := LiveLeagueGame{MatchID: strconv.FormatInt(g.MatchID, 10)}
		for _, p := range g.Players {
			game.Players = append(game.Players, LiveLeaguePlayer{AccountID: p.AccountID, Team: p.Team})
		}
		games = append(games, game)
	}
	return games, nil
}

// GetPlayerSummary busca o perfil público de uma conta Steam.
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*PlayerSummary, error) {
	key := "player_summary_" + steamID
	params := url.Values{"steamids": {steamID}}

	var data playerSummariesResponse
	if err := c.get(ctx, key, "/ISteamUser/GetPlayerSummaries/v2/", params, &data); err != nil {
		return nil, err
	}

	if len(data.Response.Players) == 0 {
		return nil, nil
	}
	p := data.Response.Players[0]
	return &PlayerSummary{SteamID: p.SteamID, PersonaName: p.PersonaName, ProfileURL: p.ProfileURL}, nil
}

// ResolveVanityURL resolve um vanity name para Steam64. Retorna "" se não existir.
func (c *Client) ResolveVanityURL(ctx context.Context, vanity string) (string, error) {
	key := "vanity_url_" + vanity
	params := url.Values{"vanityurl": {vanity}}

	var data vanityURLResponse
	if err := c.get(ctx, key, "/ISteamUser/ResolveVanityURL/v1/", params, &data); err != nil {
		return "", err
	}

	if data.Response.Success != 1 {
		return "", nil
	}
	return data.Response.SteamID, nil
}

// CheckHealth verifica se a Steam API está respondendo.
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reqURL := c.base + "/ISteamWebAPIUtil/GetSupportedAPIList/v1/?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorw("steam api health check failed", "error", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steam api health check returned status %d", resp.StatusCode)
	}
	return nil
}

// SetBaseURL troca o endpoint (somente para testes).
func (c *Client) SetBaseURL(u string) {
	c.base = strings.TrimSuffix(u, "/")
}
