package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	name  string
	err   error
	calls int
}

func (s *stubSource) FetchPlayers(ctx context.Context, season int) ([]PlayerRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []PlayerRecord{{ExternalID: s.name, Name: s.name}}, nil
}

func (s *stubSource) FetchPlayerStats(ctx context.Context, season int) ([]PlayerSeasonStats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []PlayerSeasonStats{{ExternalID: s.name, Season: season}}, nil
}

func (s *stubSource) FetchTeamStats(ctx context.Context, season int) ([]TeamSeasonStats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []TeamSeasonStats{{Team: s.name, Season: season}}, nil
}

func failoverLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}

func TestFailoverPrefersPrimary(t *testing.T) {
	primary := &stubSource{name: "primary"}
	fallback := &stubSource{name: "fallback"}
	f := NewFailoverProvider(primary, fallback, failoverLogger())

	records, err := f.FetchPlayers(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "primary", records[0].ExternalID)
	assert.Zero(t, fallback.calls, "healthy primary never touches the fallback")
}

func TestFailoverFallsBackOnError(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("upstream returned status 503")}
	fallback := &stubSource{name: "fallback"}
	f := NewFailoverProvider(primary, fallback, failoverLogger())

	records, err := f.FetchPlayers(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "fallback", records[0].ExternalID)

	stats, err := f.FetchPlayerStats(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "fallback", stats[0].ExternalID)

	teams, err := f.FetchTeamStats(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "fallback", teams[0].Team)
}

func TestFailoverSurfacesFallbackError(t *testing.T) {
	primaryErr := errors.New("primary down")
	fallbackErr := errors.New("fallback down")
	f := NewFailoverProvider(
		&stubSource{name: "primary", err: primaryErr},
		&stubSource{name: "fallback", err: fallbackErr},
		failoverLogger())

	_, err := f.FetchPlayers(context.Background(), 2024)
	assert.ErrorIs(t, err, fallbackErr)
}

func TestFailoverSkipsFallbackWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primaryErr := errors.New("context canceled")
	fallback := &stubSource{name: "fallback"}
	f := NewFailoverProvider(&stubSource{name: "primary", err: primaryErr}, fallback, failoverLogger())

	_, err := f.FetchPlayers(ctx, 2024)
	assert.ErrorIs(t, err, primaryErr)
	assert.Zero(t, fallback.calls, "cancellation skips the fallback call")
}
