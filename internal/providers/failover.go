package providers

import (
	"context"

	"github.com/sirupsen/logrus"
)

// SeasonSource is the upstream surface the failover wraps. Both the
// sportsdata and ESPN clients satisfy it.
type SeasonSource interface {
	FetchPlayers(ctx context.Context, season int) ([]PlayerRecord, error)
	FetchPlayerStats(ctx context.Context, season int) ([]PlayerSeasonStats, error)
	FetchTeamStats(ctx context.Context, season int) ([]TeamSeasonStats, error)
}

// FailoverProvider serves from the primary source and falls back to the
// secondary when the primary errors. A sync never mixes sources within one
// call; external ids stay consistent per fetch.
type FailoverProvider struct {
	primary  SeasonSource
	fallback SeasonSource
	logger   *logrus.Logger
}

func NewFailoverProvider(primary, fallback SeasonSource, logger *logrus.Logger) *FailoverProvider {
	return &FailoverProvider{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FailoverProvider) FetchPlayers(ctx context.Context, season int) ([]PlayerRecord, error) {
	records, err := f.primary.FetchPlayers(ctx, season)
	if err == nil {
		return records, nil
	}
	if failErr := f.failingOver(ctx, "players", err); failErr != nil {
		return nil, failErr
	}
	return f.fallback.FetchPlayers(ctx, season)
}

func (f *FailoverProvider) FetchPlayerStats(ctx context.Context, season int) ([]PlayerSeasonStats, error) {
	stats, err := f.primary.FetchPlayerStats(ctx, season)
	if err == nil {
		return stats, nil
	}
	if failErr := f.failingOver(ctx, "player-stats", err); failErr != nil {
		return nil, failErr
	}
	return f.fallback.FetchPlayerStats(ctx, season)
}

func (f *FailoverProvider) FetchTeamStats(ctx context.Context, season int) ([]TeamSeasonStats, error) {
	stats, err := f.primary.FetchTeamStats(ctx, season)
	if err == nil {
		return stats, nil
	}
	if failErr := f.failingOver(ctx, "team-stats", err); failErr != nil {
		return nil, failErr
	}
	return f.fallback.FetchTeamStats(ctx, season)
}

// failingOver logs the switch. A cancelled context skips the fallback and
// returns the primary's error.
func (f *FailoverProvider) failingOver(ctx context.Context, fetch string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	f.logger.WithFields(logrus.Fields{
		"component": "failover",
		"fetch":     fetch,
	}).WithError(err).Warn("Primary provider failed, using fallback")
	return nil
}
