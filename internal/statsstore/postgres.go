package statsstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/dbx"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/jmoiron/sqlx"
)

// PostgresStore persists PhaseStats in a phase_stats table, one row per
// phase_id, ground: campaign_store.go's transactional read-modify-write
// idiom for accumulating counters.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-open *sqlx.DB.
func NewPostgresStore(db *sqlx.DB) *PostgresStore { return &PostgresStore{db: db} }

// BeginTxx satisfies dbx.Transactor.
func (s *PostgresStore) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, opts)
}

func (s *PostgresStore) Load(ctx context.Context) (map[models.PhaseID]models.PhaseStats, error) {
	var rows []models.PhaseStats
	const query = `SELECT phase_id, total_items_processed, total_duration_seconds, avg_time_per_item_seconds, last_updated_timestamp FROM phase_stats`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, agenterrors.Storage("load phase stats", err)
	}
	out := make(map[models.PhaseID]models.PhaseStats, len(rows))
	for _, r := range rows {
		out[r.PhaseID] = r
	}
	return out, nil
}

func (s *PostgresStore) Record(ctx context.Context, phase models.PhaseID, itemsThisRun int64, durationThisRunSeconds float64) error {
	if itemsThisRun <= 0 {
		return nil
	}
	return dbx.WithTx(ctx, s, func(q dbx.Querier) error {
		var existing models.PhaseStats
		err := q.GetContext(ctx, &existing,
			`SELECT phase_id, total_items_processed, total_duration_seconds, avg_time_per_item_seconds, last_updated_timestamp
			 FROM phase_stats WHERE phase_id = $1 FOR UPDATE`, phase)
		if err != nil {
			existing = models.PhaseStats{PhaseID: phase}
		}
		updated := fold(existing, itemsThisRun, durationThisRunSeconds, time.Now().UTC())
		_, err = q.ExecContext(ctx, `
			INSERT INTO phase_stats (phase_id, total_items_processed, total_duration_seconds, avg_time_per_item_seconds, last_updated_timestamp)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (phase_id) DO UPDATE SET
				total_items_processed = EXCLUDED.total_items_processed,
				total_duration_seconds = EXCLUDED.total_duration_seconds,
				avg_time_per_item_seconds = EXCLUDED.avg_time_per_item_seconds,
				last_updated_timestamp = EXCLUDED.last_updated_timestamp`,
			updated.PhaseID, updated.TotalItemsProcessed, updated.TotalDurationSeconds,
			updated.AvgTimePerItemSeconds, updated.LastUpdatedTimestamp)
		if err != nil {
			return agenterrors.Storage("record phase stats", err)
		}
		return nil
	})
}
