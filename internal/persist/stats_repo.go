package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/citysim/core/internal/city"
	"github.com/google/uuid"
)

// StatsRow is one journaled city snapshot.
type StatsRow struct {
	SessionID uuid.UUID
	Cycle     uint64
	Stats     city.Stats
}

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// WriteBatch inserts rows in a single transaction.
func (r *StatsRepo) WriteBatch(ctx context.Context, rows []StatsRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stats begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		res, err := json.Marshal(row.Stats.Resources)
		if err != nil {
			return fmt.Errorf("stats resources: %w", err)
		}
		s := row.Stats
		if _, err := tx.Exec(ctx,
			`INSERT INTO city_stats (session_id, cycle, owner, grids, residents, demand, vacant, occupied,
			                         fill_limit, happiness, state, resources)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			row.SessionID.String(), int64(row.Cycle), s.Owner, s.Grids, s.Residents, s.Demand, s.Vacant,
			s.Occupied, s.FillLimit, s.Happiness, s.State, res,
		); err != nil {
			return fmt.Errorf("stats insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Latest returns the most recent journaled snapshot of owner's city in a
// session.
func (r *StatsRepo) Latest(ctx context.Context, session uuid.UUID, owner string) (*StatsRow, time.Time, error) {
	row := StatsRow{SessionID: session}
	var (
		cycle      int64
		res        []byte
		recordedAt time.Time
	)
	s := &row.Stats
	err := r.db.Pool.QueryRow(ctx,
		`SELECT cycle, owner, grids, residents, demand, vacant, occupied, fill_limit, happiness, state,
		        resources, recorded_at
		 FROM city_stats WHERE session_id = $1 AND owner = $2
		 ORDER BY cycle DESC LIMIT 1`,
		session.String(), owner,
	).Scan(&cycle, &s.Owner, &s.Grids, &s.Residents, &s.Demand, &s.Vacant, &s.Occupied,
		&s.FillLimit, &s.Happiness, &s.State, &res, &recordedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("stats latest %s: %w", owner, err)
	}
	if err := json.Unmarshal(res, &s.Resources); err != nil {
		return nil, time.Time{}, fmt.Errorf("stats resources: %w", err)
	}
	row.Cycle = uint64(cycle)
	return &row, recordedAt, nil
}
