package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/vigil-data/vigil/configs"
)

// fillsAPI serves userFillsByTime from a fixed history, honoring startTime,
// reversed and the page-size cap, and records every request it sees.
type fillsAPI struct {
	history  []APIFill // ascending by Time
	requests []fillsByTimeRequest
}

func (a *fillsAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fillsByTimeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "userFillsByTime", req.Type)
		a.requests = append(a.requests, req)

		var inRange []APIFill
		for _, f := range a.history {
			if f.Time >= req.StartTime {
				inRange = append(inRange, f)
			}
		}
		if req.Reversed {
			for i, j := 0, len(inRange)-1; i < j; i, j = i+1, j-1 {
				inRange[i], inRange[j] = inRange[j], inRange[i]
			}
		}
		if len(inRange) > fillsPageSize {
			inRange = inRange[:fillsPageSize]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(inRange)
	}
}

func testWalker(t *testing.T, api *fillsAPI, cutoffMS int64) (*Walker, func()) {
	upstream := httptest.NewServer(api.handler(t))
	client := NewClient(config.DiscoveryConfig{APIURL: upstream.URL})
	client.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	w := NewWalker(nil, client, time.UnixMilli(cutoffMS), 1, zerolog.Nop())
	return w, upstream.Close
}

func TestClassifyNewTraderSinglePage(t *testing.T) {
	cutoff := int64(1_700_000_000_000)
	api := &fillsAPI{history: []APIFill{
		{Coin: "BTC", Time: cutoff + 1000, ClosedPnl: "10.5"},
		{Coin: "ETH", Time: cutoff + 2000, ClosedPnl: "-2.5"},
		{Coin: "SOL", Time: cutoff + 9000, ClosedPnl: "4.0"},
	}}
	w, closeFn := testWalker(t, api, cutoff)
	defer closeFn()

	report, err := w.Classify(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, report.IsNew)
	assert.Equal(t, cutoff+1000, report.FirstFillTime)
	assert.Equal(t, cutoff+9000, report.LastFillTime)
	assert.InDelta(t, 12.0, report.APIPnl, 1e-9)

	// A short first page never triggers a second request.
	require.Len(t, api.requests, 1)
	assert.False(t, api.requests[0].Reversed)
	assert.Zero(t, api.requests[0].StartTime)
}

func TestClassifyNewTraderWalksAllPages(t *testing.T) {
	cutoff := int64(1_700_000_000_000)
	history := make([]APIFill, fillsPageSize+3)
	for i := range history {
		history[i] = APIFill{
			Coin:      "BTC",
			Time:      cutoff + int64(i),
			ClosedPnl: "0.5",
			Px:        fmt.Sprintf("%d", i),
		}
	}
	api := &fillsAPI{history: history}
	w, closeFn := testWalker(t, api, cutoff)
	defer closeFn()

	report, err := w.Classify(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.True(t, report.IsNew)
	assert.Equal(t, cutoff, report.FirstFillTime)
	assert.Equal(t, history[len(history)-1].Time, report.LastFillTime)
	// Every fill contributes, not just the first page.
	assert.InDelta(t, 0.5*float64(len(history)), report.APIPnl, 1e-6)

	// Full first page, then one forward page starting past its max time.
	require.Len(t, api.requests, 2)
	assert.False(t, api.requests[1].Reversed)
	assert.Equal(t, history[fillsPageSize-1].Time+1, api.requests[1].StartTime)
}

func TestClassifyEstablishedTraderProbesNewestOnly(t *testing.T) {
	cutoff := int64(1_700_000_000_000)
	api := &fillsAPI{history: []APIFill{
		{Coin: "BTC", Time: cutoff - 500, ClosedPnl: "1"},
		{Coin: "ETH", Time: cutoff + 800, ClosedPnl: "3"},
	}}
	w, closeFn := testWalker(t, api, cutoff)
	defer closeFn()

	report, err := w.Classify(context.Background(), "0xdef")
	require.NoError(t, err)
	assert.False(t, report.IsNew)
	assert.Equal(t, cutoff-500, report.FirstFillTime)
	assert.Equal(t, cutoff+800, report.LastFillTime)
	assert.Zero(t, report.APIPnl)

	// Oldest probe plus one reversed probe; no history walk.
	require.Len(t, api.requests, 2)
	assert.True(t, api.requests[1].Reversed)
}

func TestClassifyNoFills(t *testing.T) {
	w, closeFn := testWalker(t, &fillsAPI{}, 0)
	defer closeFn()

	report, err := w.Classify(context.Background(), "0xempty")
	require.NoError(t, err)
	assert.False(t, report.IsNew)
	assert.Zero(t, report.FirstFillTime)
	assert.Zero(t, report.APIPnl)
}

func TestClientRetriesRateLimit(t *testing.T) {
	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req fillsByTimeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "userFillsByTime", req.Type)

		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]APIFill{{Coin: "BTC", Time: 7, ClosedPnl: "1.5"}})
	}))
	defer upstream.Close()

	client := NewClient(config.DiscoveryConfig{APIURL: upstream.URL})
	client.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	fills, err := client.UserFillsByTime(context.Background(), "0xabc", false, 0)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(7), fills[0].Time)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientSurfacesExhaustedRateLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	client := NewClient(config.DiscoveryConfig{APIURL: upstream.URL})
	client.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	_, err := client.UserFillsByTime(context.Background(), "0xabc", false, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
