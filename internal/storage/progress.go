package storage

import (
	"context"
	"fmt"
)

// LoadedIDs reads the full idempotency ledger in one pass so the orchestrator
// can filter its work list before starting any expensive I/O.
func (p *Postgres) LoadedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := p.Pool.Query(ctx, "SELECT file_id FROM load_progress")
	if err != nil {
		return nil, fmt.Errorf("read load progress: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan load progress: %w", err)
		}
		loaded[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read load progress: %w", err)
	}
	return loaded, nil
}
