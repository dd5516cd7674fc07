package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned by Get when the key is absent, the payload cannot
// be decoded, or caching is disabled. Callers fall through to the store.
var ErrCacheMiss = errors.New("cache miss")

// Cache TTLs by read path. Projection lists churn with every mutation, so
// they stay short; roster reads are stable between ingests.
const (
	ProjectionCacheTTL = 2 * time.Minute
	PlayerCacheTTL     = 10 * time.Minute
	CompareCacheTTL    = 2 * time.Minute
	RangeCacheTTL      = 5 * time.Minute
)

// CacheService wraps redis for the cached read paths. A nil client disables
// caching entirely: every Get misses and every write is a no-op, so the API
// keeps serving from the store when redis is down or unconfigured.
type CacheService struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCacheService(client *redis.Client, logger *logrus.Logger) *CacheService {
	return &CacheService{
		client: client,
		logger: logger,
	}
}

// Enabled reports whether a redis client is attached.
func (s *CacheService) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.Enabled() {
		return ErrCacheMiss
	}

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		// A stale shape from an older build reads as a miss.
		return ErrCacheMiss
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// DeletePattern removes every key matching a glob pattern via SCAN, so
// invalidation never blocks redis the way KEYS would.
func (s *CacheService) DeletePattern(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}

	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"pattern": pattern,
		"deleted": len(keys),
	}).Debug("Invalidated cache keys")
	return nil
}

func (s *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache existence: %w", err)
	}
	return val > 0, nil
}

// Key tokens. Every projection-list key carries a player token and a
// scenario token so invalidation can pattern-match on either; the zero
// token stands in for "no filter" / baseline.

// PlayerToken renders the player segment of a cache key.
func PlayerToken(playerID uint) string {
	return fmt.Sprintf("p%d", playerID)
}

// ScenarioToken renders the scenario segment of a cache key; nil means the
// global baseline.
func ScenarioToken(scenarioID *uint) string {
	if scenarioID == nil {
		return "s0"
	}
	return fmt.Sprintf("s%d", *scenarioID)
}

// ProjectionListKey builds the cache key for a filtered projection list.
func ProjectionListKey(playerID uint, scenarioID *uint, position, team string, season int, fpMin, fpMax string) string {
	if position == "" {
		position = "any"
	}
	if team == "" {
		team = "any"
	}
	if fpMin == "" {
		fpMin = "-"
	}
	if fpMax == "" {
		fpMax = "-"
	}
	return fmt.Sprintf("projections:list:%s:%s:pos_%s:team_%s:season_%d:fp_%s_%s",
		PlayerToken(playerID), ScenarioToken(scenarioID), position, team, season, fpMin, fpMax)
}

// ProjectionRangeKey builds the cache key for a floor/median/ceiling read.
func ProjectionRangeKey(projectionID uint, confidence float64, materialize bool) string {
	m := 0
	if materialize {
		m = 1
	}
	return fmt.Sprintf("projections:range:%d:c%.2f:m%d", projectionID, confidence, m)
}

// PlayerListKey builds the cache key for a filtered roster list.
func PlayerListKey(position, team, status string) string {
	if position == "" {
		position = "any"
	}
	if team == "" {
		team = "any"
	}
	if status == "" {
		status = "any"
	}
	return fmt.Sprintf("players:list:pos_%s:team_%s:status_%s", position, team, status)
}

// PlayerKey builds the cache key for a single roster read.
func PlayerKey(playerID uint) string {
	return fmt.Sprintf("players:one:%d", playerID)
}

// CompareKey builds the cache key for a scenario comparison.
func CompareKey(scenarioIDs []uint, position string) string {
	parts := make([]string, len(scenarioIDs))
	for i, id := range scenarioIDs {
		parts[i] = fmt.Sprintf("%d", id)
	}
	if position == "" {
		position = "any"
	}
	return fmt.Sprintf("scenarios:compare:%s:pos_%s", strings.Join(parts, "-"), position)
}

// InvalidateProjection drops every cached read a projection write can leave
// stale: the lists for its scenario scope (player-filtered or not) and the
// projection's range reads. Errors are logged, never surfaced; a failed
// invalidation just shortens a TTL window.
func (s *CacheService) InvalidateProjection(ctx context.Context, projectionID uint, scenarioID *uint) {
	if !s.Enabled() {
		return
	}
	patterns := []string{
		fmt.Sprintf("projections:list:*:%s:*", ScenarioToken(scenarioID)),
		fmt.Sprintf("projections:range:%d:*", projectionID),
		"scenarios:compare:*",
	}
	for _, pattern := range patterns {
		if err := s.DeletePattern(ctx, pattern); err != nil {
			s.logger.WithError(err).WithField("pattern", pattern).
				Warn("Cache invalidation failed")
		}
	}
}

// InvalidateScenario drops scenario-scoped lists and every comparison after
// a scenario is created, cloned, or deleted.
func (s *CacheService) InvalidateScenario(ctx context.Context, scenarioID uint) {
	if !s.Enabled() {
		return
	}
	id := scenarioID
	patterns := []string{
		fmt.Sprintf("projections:list:*:%s:*", ScenarioToken(&id)),
		"projections:range:*",
		"scenarios:compare:*",
	}
	for _, pattern := range patterns {
		if err := s.DeletePattern(ctx, pattern); err != nil {
			s.logger.WithError(err).WithField("pattern", pattern).
				Warn("Cache invalidation failed")
		}
	}
}

// InvalidatePlayers drops roster reads after an ingest.
func (s *CacheService) InvalidatePlayers(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	if err := s.DeletePattern(ctx, "players:*"); err != nil {
		s.logger.WithError(err).Warn("Cache invalidation failed")
	}
}

// InvalidateSeason drops everything derived from season data. The refresher
// calls this after nightly ingest + revalidation.
func (s *CacheService) InvalidateSeason(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	for _, pattern := range []string{"projections:*", "players:*", "scenarios:compare:*"} {
		if err := s.DeletePattern(ctx, pattern); err != nil {
			s.logger.WithError(err).WithField("pattern", pattern).
				Warn("Cache invalidation failed")
		}
	}
}
