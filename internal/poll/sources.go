package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/deepdefend/deepdefend-cli/internal/api"
)

// NewHistorySource auto-revalidates the recent-history list.
func NewHistorySource(client *api.Client, limit int, interval time.Duration) *Source[[]api.HistoryItem] {
	return New(
		fmt.Sprintf("/history?limit=%d", limit),
		func(ctx context.Context) ([]api.HistoryItem, error) {
			return client.History(ctx, limit)
		},
		interval,
	)
}

// NewStatsSource auto-revalidates the aggregate service counters.
func NewStatsSource(client *api.Client, interval time.Duration) *Source[*api.StatsSnapshot] {
	return New(
		"/stats",
		func(ctx context.Context) (*api.StatsSnapshot, error) {
			return client.Stats(ctx)
		},
		interval,
	)
}

// NewIntervalSource fetches per-analysis interval detail once; it never
// auto-refreshes. Without an analysis id there is nothing to fetch, so the
// source is dormant: callers get nil and render nothing.
func NewIntervalSource(client *api.Client, analysisID string) *Source[[]api.IntervalDetail] {
	if analysisID == "" {
		return nil
	}
	return New(
		"/intervals/"+analysisID,
		func(ctx context.Context) ([]api.IntervalDetail, error) {
			return client.Intervals(ctx, analysisID)
		},
		0,
	)
}
