package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// SportsDataClient pulls NFL rosters and season stats from the upstream
// stats API. Requests run through a shared rate limiter and a circuit
// breaker so a degraded upstream never stalls or spams the sync job.
type SportsDataClient struct {
	httpClient  *http.Client
	logger      *logrus.Logger
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	baseURL     string
	apiKey      string
}

// NewSportsDataClient creates a client for the stats API. requestsPerMinute
// and timeout fall back to the free-tier defaults (120/min, 30s) when zero.
func NewSportsDataClient(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration, logger *logrus.Logger) *SportsDataClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "sportsdata",
		MaxRequests: 2,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &SportsDataClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 2),
		breaker:     gobreaker.NewCircuitBreaker(settings),
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
	}
}

// PlayerRecord is the upstream roster entry.
type PlayerRecord struct {
	ExternalID string   `json:"player_id"`
	Name       string   `json:"name"`
	Team       string   `json:"team"`
	Position   string   `json:"position"`
	Status     string   `json:"status"`
	Rookie     bool     `json:"rookie"`
	DraftRound int      `json:"draft_round"`
	DraftPick  int      `json:"draft_pick"`
	DraftTeam  string   `json:"draft_team"`
	AltNames   []string `json:"alt_names"`
}

// WeekLine is one game's stat line, keyed by canonical stat name.
type WeekLine struct {
	Week  int                `json:"week"`
	Stats map[string]float64 `json:"stats"`
}

// PlayerSeasonStats is a player's full season of weekly lines.
type PlayerSeasonStats struct {
	ExternalID string     `json:"player_id"`
	Season     int        `json:"season"`
	Weeks      []WeekLine `json:"weeks"`
}

// TeamSeasonStats is a team's season offense aggregate.
type TeamSeasonStats struct {
	Team         string  `json:"team"`
	Season       int     `json:"season"`
	Plays        float64 `json:"plays"`
	PassAttempts float64 `json:"pass_attempts"`
	RushAttempts float64 `json:"rush_attempts"`
	PassYards    float64 `json:"pass_yards"`
	PassTD       float64 `json:"pass_td"`
	RushYards    float64 `json:"rush_yards"`
	RushTD       float64 `json:"rush_td"`
	Targets      float64 `json:"targets"`
	Receptions   float64 `json:"receptions"`
	RecYards     float64 `json:"rec_yards"`
	RecTD        float64 `json:"rec_td"`
}

// FetchPlayers returns the league roster for a season.
func (c *SportsDataClient) FetchPlayers(ctx context.Context, season int) ([]PlayerRecord, error) {
	var players []PlayerRecord
	path := fmt.Sprintf("/nfl/%d/players", season)
	if err := c.doGet(ctx, path, nil, &players); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"component": "sportsdata",
		"season":    season,
		"players":   len(players),
	}).Debug("Fetched player roster")
	return players, nil
}

// FetchPlayerStats returns every player's weekly lines for a season.
func (c *SportsDataClient) FetchPlayerStats(ctx context.Context, season int) ([]PlayerSeasonStats, error) {
	var stats []PlayerSeasonStats
	path := fmt.Sprintf("/nfl/%d/player-stats", season)
	if err := c.doGet(ctx, path, nil, &stats); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"component": "sportsdata",
		"season":    season,
		"players":   len(stats),
	}).Debug("Fetched player season stats")
	return stats, nil
}

// FetchTeamStats returns every team's season offense aggregate.
func (c *SportsDataClient) FetchTeamStats(ctx context.Context, season int) ([]TeamSeasonStats, error) {
	var stats []TeamSeasonStats
	path := fmt.Sprintf("/nfl/%d/team-stats", season)
	if err := c.doGet(ctx, path, nil, &stats); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"component": "sportsdata",
		"season":    season,
		"teams":     len(stats),
	}).Debug("Fetched team season stats")
	return stats, nil
}

// doGet runs one rate-limited, breaker-guarded GET and decodes the JSON
// body into dest.
func (c *SportsDataClient) doGet(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		reqURL := c.baseURL + path
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("upstream returned status %d for %s", resp.StatusCode, path)
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, nil
	})
	return err
}
