package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jstittsworth/gridiron-projections/internal/models"
)

const (
	espnSiteAPI = "https://site.api.espn.com/apis/site/v2/sports/football/nfl"
	espnStatAPI = "https://site.api.espn.com/apis/common/v3/sports/football/nfl"

	espnMaxAttempts = 3
)

// ESPNClient pulls NFL rosters, gamelogs, and team aggregates from ESPN's
// public site API. The feed needs no API key, so it is the provider of last
// resort when no commercial key is configured. Season stats come from
// per-athlete gamelogs, which preserves the weekly granularity the ingest
// needs to count games.
type ESPNClient struct {
	httpClient  *http.Client
	logger      *logrus.Logger
	rateLimiter *rate.Limiter
	siteAPI     string
	statAPI     string
}

// NewESPNClient creates a client for ESPN's public API. requestsPerMinute
// and timeout fall back to polite defaults (60/min, 30s) when zero.
func NewESPNClient(requestsPerMinute int, timeout time.Duration, logger *logrus.Logger) *ESPNClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ESPNClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 2),
		siteAPI:     espnSiteAPI,
		statAPI:     espnStatAPI,
	}
}

// ESPN response structures, trimmed to the fields the sync reads.
type espnTeamListResponse struct {
	Sports []struct {
		Leagues []struct {
			Teams []struct {
				Team espnTeam `json:"team"`
			} `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
}

type espnTeam struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

type espnRosterResponse struct {
	Team struct {
		ID           string        `json:"id"`
		Abbreviation string        `json:"abbreviation"`
		Athletes     []espnAthlete `json:"athletes"`
	} `json:"team"`
}

type espnAthlete struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	DisplayName string `json:"displayName"`
	Position    struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"position"`
	Experience struct {
		Years int `json:"years"`
	} `json:"experience"`
	Status struct {
		Type string `json:"type"`
	} `json:"status"`
	Draft struct {
		Year      int `json:"year"`
		Round     int `json:"round"`
		Selection int `json:"selection"`
	} `json:"draft"`
}

// espnGamelogResponse carries one athlete's season. Stat values arrive as
// strings positioned against the names header; events map game ids to weeks.
type espnGamelogResponse struct {
	Names       []string                 `json:"names"`
	SeasonTypes []espnSeasonType         `json:"seasonTypes"`
	Events      map[string]espnEventMeta `json:"events"`
}

type espnSeasonType struct {
	DisplayName string                `json:"displayName"`
	Categories  []espnGamelogCategory `json:"categories"`
}

type espnGamelogCategory struct {
	Events []espnGamelogEntry `json:"events"`
}

type espnGamelogEntry struct {
	EventID string   `json:"eventId"`
	Stats   []string `json:"stats"`
}

type espnEventMeta struct {
	Week int `json:"week"`
}

type espnTeamStatsResponse struct {
	Results struct {
		Stats struct {
			Categories []struct {
				Name  string `json:"name"`
				Stats []struct {
					Name  string  `json:"name"`
					Value float64 `json:"value"`
				} `json:"stats"`
			} `json:"categories"`
		} `json:"stats"`
	} `json:"results"`
}

// espnStatNames maps gamelog column labels to canonical stat names. Labels
// not listed here (rates, longs, QBR) are dropped; the engine re-derives
// rates from the counting stats.
var espnStatNames = map[string]string{
	"completions":         models.StatCompletions,
	"passingAttempts":     models.StatPassAttempts,
	"passingYards":        models.StatPassYards,
	"passingTouchdowns":   models.StatPassTD,
	"interceptions":       models.StatInterceptions,
	"sacks":               models.StatSacks,
	"sackYardsLost":       models.StatSackYards,
	"rushingAttempts":     models.StatRushAttempts,
	"rushingYards":        models.StatRushYards,
	"rushingTouchdowns":   models.StatRushTD,
	"receptions":          models.StatReceptions,
	"receivingTargets":    models.StatTargets,
	"receivingYards":      models.StatRecYards,
	"receivingTouchdowns": models.StatRecTD,
	"fumblesLost":         models.StatFumbles,
}

// FetchPlayers walks every team roster and returns the league's players.
// Teams whose roster fetch fails are skipped so one bad response never sinks
// a full sync.
func (c *ESPNClient) FetchPlayers(ctx context.Context, season int) ([]PlayerRecord, error) {
	teams, err := c.fetchTeams(ctx)
	if err != nil {
		return nil, err
	}

	var records []PlayerRecord
	for _, team := range teams {
		roster, err := c.fetchRoster(ctx, team.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WithFields(logrus.Fields{
				"component": "espn",
				"team":      team.Abbreviation,
			}).WithError(err).Warn("Roster fetch failed, team skipped")
			continue
		}

		for _, ath := range roster.Team.Athletes {
			records = append(records, PlayerRecord{
				ExternalID: ath.ID,
				Name:       ath.DisplayName,
				Team:       roster.Team.Abbreviation,
				Position:   ath.Position.Abbreviation,
				Status:     espnStatus(ath),
				Rookie:     ath.Experience.Years == 0,
				DraftRound: ath.Draft.Round,
				DraftPick:  ath.Draft.Selection,
				AltNames:   espnAltNames(ath),
			})
		}
	}

	c.logger.WithFields(logrus.Fields{
		"component": "espn",
		"season":    season,
		"players":   len(records),
	}).Debug("Fetched player roster")
	return records, nil
}

// FetchPlayerStats pulls each skill player's gamelog for the season. The
// fan-out is large, so only projectable positions are fetched and per-player
// failures log and continue.
func (c *ESPNClient) FetchPlayerStats(ctx context.Context, season int) ([]PlayerSeasonStats, error) {
	teams, err := c.fetchTeams(ctx)
	if err != nil {
		return nil, err
	}

	var lines []PlayerSeasonStats
	for _, team := range teams {
		roster, err := c.fetchRoster(ctx, team.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WithFields(logrus.Fields{
				"component": "espn",
				"team":      team.Abbreviation,
			}).WithError(err).Warn("Roster fetch failed, team skipped")
			continue
		}

		for _, ath := range roster.Team.Athletes {
			probe := models.Player{Position: ath.Position.Abbreviation}
			if !probe.IsSkillPosition() {
				continue
			}

			weeks, err := c.fetchGamelog(ctx, ath.ID, season)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.logger.WithFields(logrus.Fields{
					"component": "espn",
					"player":    ath.DisplayName,
				}).WithError(err).Warn("Gamelog fetch failed, player skipped")
				continue
			}
			if len(weeks) == 0 {
				continue
			}

			lines = append(lines, PlayerSeasonStats{
				ExternalID: ath.ID,
				Season:     season,
				Weeks:      weeks,
			})
		}
	}

	c.logger.WithFields(logrus.Fields{
		"component": "espn",
		"season":    season,
		"players":   len(lines),
	}).Debug("Fetched player season stats")
	return lines, nil
}

// FetchTeamStats builds each team's season offense aggregate from the team
// statistics endpoint. ESPN has no total-plays figure, so plays is the sum
// of pass and rush attempts.
func (c *ESPNClient) FetchTeamStats(ctx context.Context, season int) ([]TeamSeasonStats, error) {
	teams, err := c.fetchTeams(ctx)
	if err != nil {
		return nil, err
	}

	var stats []TeamSeasonStats
	for _, team := range teams {
		url := fmt.Sprintf("%s/teams/%s/statistics?season=%d", c.siteAPI, team.ID, season)
		var resp espnTeamStatsResponse
		if err := c.getJSON(ctx, url, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WithFields(logrus.Fields{
				"component": "espn",
				"team":      team.Abbreviation,
			}).WithError(err).Warn("Team statistics fetch failed, team skipped")
			continue
		}

		ts := TeamSeasonStats{Team: team.Abbreviation, Season: season}
		for _, cat := range resp.Results.Stats.Categories {
			for _, stat := range cat.Stats {
				assignTeamStat(&ts, cat.Name, stat.Name, stat.Value)
			}
		}
		ts.Plays = ts.PassAttempts + ts.RushAttempts
		stats = append(stats, ts)
	}

	c.logger.WithFields(logrus.Fields{
		"component": "espn",
		"season":    season,
		"teams":     len(stats),
	}).Debug("Fetched team season stats")
	return stats, nil
}

func (c *ESPNClient) fetchTeams(ctx context.Context) ([]espnTeam, error) {
	var resp espnTeamListResponse
	if err := c.getJSON(ctx, c.siteAPI+"/teams?limit=40", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch team list: %w", err)
	}

	var teams []espnTeam
	for _, sport := range resp.Sports {
		for _, league := range sport.Leagues {
			for _, entry := range league.Teams {
				teams = append(teams, entry.Team)
			}
		}
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("team list came back empty")
	}
	return teams, nil
}

func (c *ESPNClient) fetchRoster(ctx context.Context, teamID string) (*espnRosterResponse, error) {
	url := fmt.Sprintf("%s/teams/%s?enable=roster", c.siteAPI, teamID)
	var resp espnRosterResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *ESPNClient) fetchGamelog(ctx context.Context, athleteID string, season int) ([]WeekLine, error) {
	url := fmt.Sprintf("%s/athletes/%s/gamelog?season=%d", c.statAPI, athleteID, season)
	var resp espnGamelogResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	return parseGamelog(&resp), nil
}

// parseGamelog flattens the positional stat arrays into weekly lines.
// Regular-season games only; stat groups for the same game merge into one
// line so a game is never counted twice.
func parseGamelog(resp *espnGamelogResponse) []WeekLine {
	byEvent := make(map[string]map[string]float64)
	eventWeeks := make(map[string]int)

	for _, st := range resp.SeasonTypes {
		if !strings.Contains(st.DisplayName, "Regular Season") {
			continue
		}
		for _, cat := range st.Categories {
			for _, ev := range cat.Events {
				meta, ok := resp.Events[ev.EventID]
				if !ok {
					continue
				}

				stats := byEvent[ev.EventID]
				if stats == nil {
					stats = make(map[string]float64)
				}
				for i, label := range resp.Names {
					if i >= len(ev.Stats) {
						break
					}
					name, ok := espnStatNames[label]
					if !ok {
						continue
					}
					value, err := strconv.ParseFloat(ev.Stats[i], 64)
					if err != nil {
						// ESPN pads missing values with dashes.
						continue
					}
					stats[name] = value
				}
				if len(stats) > 0 {
					byEvent[ev.EventID] = stats
					eventWeeks[ev.EventID] = meta.Week
				}
			}
		}
	}

	weeks := make([]WeekLine, 0, len(byEvent))
	for eventID, stats := range byEvent {
		weeks = append(weeks, WeekLine{Week: eventWeeks[eventID], Stats: stats})
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Week < weeks[j].Week })
	return weeks
}

func assignTeamStat(ts *TeamSeasonStats, category, name string, value float64) {
	switch category + "/" + name {
	case "passing/passingAttempts":
		ts.PassAttempts = value
	case "passing/passingYards":
		ts.PassYards = value
	case "passing/passingTouchdowns":
		ts.PassTD = value
	case "rushing/rushingAttempts":
		ts.RushAttempts = value
	case "rushing/rushingYards":
		ts.RushYards = value
	case "rushing/rushingTouchdowns":
		ts.RushTD = value
	case "receiving/receivingTargets":
		ts.Targets = value
	case "receiving/receptions":
		ts.Receptions = value
	case "receiving/receivingYards":
		ts.RecYards = value
	case "receiving/receivingTouchdowns":
		ts.RecTD = value
	}
}

// espnStatus maps ESPN roster status types onto player statuses. Unknown
// types map to empty so the ingest default applies.
func espnStatus(ath espnAthlete) string {
	switch ath.Status.Type {
	case "active":
		if ath.Experience.Years == 0 {
			return models.StatusRookie
		}
		return models.StatusActive
	case "injured", "injured-reserve", "day-to-day":
		return models.StatusInjured
	default:
		return ""
	}
}

// espnAltNames returns name variants worth keeping as aliases. ESPN's
// fullName ("Patrick Mahomes II") often differs from displayName.
func espnAltNames(ath espnAthlete) []string {
	if ath.FullName != "" && ath.FullName != ath.DisplayName {
		return []string{ath.FullName}
	}
	return nil
}

// getJSON runs one rate-limited GET with exponential backoff and decodes the
// JSON body into dest.
func (c *ESPNClient) getJSON(ctx context.Context, url string, dest interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < espnMaxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return lastErr
			}
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(dest)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("request failed after %d attempts: %w", espnMaxAttempts, lastErr)
}
