package discovery

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Report classifies one trader.
type Report struct {
	Address       string  `json:"address"`
	FirstFillTime int64   `json:"first_fill_time"`
	LastFillTime  int64   `json:"last_fill_time"`
	IsNew         bool    `json:"is_new"`
	APIPnl        float64 `json:"api_pnl"`
	Err           string  `json:"error,omitempty"`
}

// Walker finds the top traders by realized pnl in the local fills table and
// classifies each against the exchange API: a trader is "new" when their
// first fill anywhere postdates the cutoff.
type Walker struct {
	pool     *pgxpool.Pool
	client   *Client
	cutoffMS int64
	workers  int
	logger   zerolog.Logger
}

func NewWalker(pool *pgxpool.Pool, client *Client, cutoff time.Time, workers int, logger zerolog.Logger) *Walker {
	if workers < 1 {
		workers = 1
	}
	return &Walker{
		pool:     pool,
		client:   client,
		cutoffMS: cutoff.UnixMilli(),
		workers:  workers,
		logger:   logger,
	}
}

// TopTraders returns addresses ordered by total realized pnl, descending.
// limit <= 0 returns all traders.
func (w *Walker) TopTraders(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT user_address
	          FROM fills
	          GROUP BY user_address
	          ORDER BY SUM(closed_pnl) DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := w.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top traders: %w", err)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan top traders: %w", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, rows.Err()
}

// Classify probes a trader's fill history through the API. An established
// trader only needs the newest-fill probe; a new trader gets a full forward
// walk so the pnl covers every fill, not just the first page.
func (w *Walker) Classify(ctx context.Context, addr string) (Report, error) {
	oldest, err := w.client.UserFillsByTime(ctx, addr, false, 0)
	if err != nil {
		return Report{Address: addr}, err
	}

	report := Report{Address: addr}
	if len(oldest) == 0 {
		return report, nil
	}
	report.FirstFillTime = oldest[0].Time
	report.IsNew = report.FirstFillTime >= w.cutoffMS

	if !report.IsNew {
		newest, err := w.client.UserFillsByTime(ctx, addr, true, 0)
		if err != nil {
			return report, err
		}
		if len(newest) > 0 {
			report.LastFillTime = newest[0].Time
		}
		return report, nil
	}

	all, err := w.allFills(ctx, addr, oldest)
	if err != nil {
		return report, err
	}
	report.LastFillTime = maxFillTime(all)
	for _, f := range all {
		if pnl, err := strconv.ParseFloat(f.ClosedPnl, 64); err == nil {
			report.APIPnl += pnl
		}
	}
	return report, nil
}

// allFills extends the already-fetched oldest page to the trader's complete
// history. A full page means more fills exist past its max time; the walk
// advances startTime one past that and stops at the first short or empty
// page. Pages never overlap, so no dedupe is needed.
func (w *Walker) allFills(ctx context.Context, addr string, firstPage []APIFill) ([]APIFill, error) {
	all := firstPage
	if len(firstPage) < fillsPageSize {
		return all, nil
	}
	startTime := maxFillTime(firstPage) + 1
	for {
		page, err := w.client.UserFillsByTime(ctx, addr, false, startTime)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < fillsPageSize {
			break
		}
		startTime = maxFillTime(page) + 1
	}
	return all, nil
}

func maxFillTime(fills []APIFill) int64 {
	var max int64
	for _, f := range fills {
		if f.Time > max {
			max = f.Time
		}
	}
	return max
}

// Run classifies the top limit traders with a bounded worker pool. Per-trader
// failures are recorded in the report, not propagated.
func (w *Walker) Run(ctx context.Context, limit int) ([]Report, error) {
	addrs, err := w.TopTraders(ctx, limit)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, len(addrs))
	sem := semaphore.NewWeighted(int64(w.workers))
	for i, addr := range addrs {
		if err := sem.Acquire(ctx, 1); err != nil {
			reports[i] = Report{Address: addr, Err: err.Error()}
			continue
		}
		go func(i int, addr string) {
			defer sem.Release(1)
			report, err := w.Classify(ctx, addr)
			if err != nil {
				report.Err = err.Error()
				w.logger.Warn().Str("address", addr).Err(err).Msg("classification failed")
			}
			reports[i] = report
		}(i, addr)
	}

	if err := sem.Acquire(context.Background(), int64(w.workers)); err == nil {
		sem.Release(int64(w.workers))
	}
	return reports, nil
}
