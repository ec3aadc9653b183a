package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresStore persists ScheduleDefinitions and their run history, ground:
// statsstore.PostgresStore's upsert idiom. PipelineConfig is stored as a
// jsonb column since models.ScheduleDefinition tags it db:"-".
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-open *sqlx.DB.
func NewPostgresStore(db *sqlx.DB) *PostgresStore { return &PostgresStore{db: db} }

type scheduleRow struct {
	ID             uuid.UUID             `db:"id"`
	Name           string                `db:"name"`
	Frequency      models.ScheduleFrequencyEnum `db:"frequency"`
	CronExpr       string                `db:"cron_expr"`
	Enabled        bool                  `db:"enabled"`
	PipelineConfig []byte                `db:"pipeline_config"`
	LastRunAt      sql.NullTime          `db:"last_run_at"`
	NextRunAt      sql.NullTime          `db:"next_run_at"`
	CreatedAt      time.Time             `db:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at"`
}

func (r scheduleRow) toModel() (models.ScheduleDefinition, error) {
	var prefs models.RunPreferences
	if len(r.PipelineConfig) > 0 {
		if err := json.Unmarshal(r.PipelineConfig, &prefs); err != nil {
			return models.ScheduleDefinition{}, agenterrors.Storage("decode pipeline_config", err)
		}
	}
	sched := models.ScheduleDefinition{
		ID:             r.ID,
		Name:           r.Name,
		Frequency:      r.Frequency,
		CronExpr:       r.CronExpr,
		Enabled:        r.Enabled,
		PipelineConfig: prefs,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.LastRunAt.Valid {
		sched.LastRunAt = &r.LastRunAt.Time
	}
	if r.NextRunAt.Valid {
		sched.NextRunAt = &r.NextRunAt.Time
	}
	return sched, nil
}

const scheduleColumns = `id, name, frequency, cron_expr, enabled, pipeline_config, last_run_at, next_run_at, created_at, updated_at`

func (s *PostgresStore) ListEnabled(ctx context.Context) ([]models.ScheduleDefinition, error) {
	var rows []scheduleRow
	query := `SELECT ` + scheduleColumns + ` FROM schedule_definitions WHERE enabled = true`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, agenterrors.Storage("list_enabled schedules", err)
	}
	out := make([]models.ScheduleDefinition, 0, len(rows))
	for _, r := range rows {
		sched, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}

func (s *PostgresStore) Put(ctx context.Context, sched models.ScheduleDefinition) error {
	cfg, err := json.Marshal(sched.PipelineConfig)
	if err != nil {
		return agenterrors.Storage("encode pipeline_config", err)
	}
	const upsert = `
INSERT INTO schedule_definitions (id, name, frequency, cron_expr, enabled, pipeline_config, last_run_at, next_run_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	frequency = EXCLUDED.frequency,
	cron_expr = EXCLUDED.cron_expr,
	enabled = EXCLUDED.enabled,
	pipeline_config = EXCLUDED.pipeline_config,
	last_run_at = EXCLUDED.last_run_at,
	next_run_at = EXCLUDED.next_run_at,
	updated_at = EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, upsert,
		sched.ID, sched.Name, sched.Frequency, sched.CronExpr, sched.Enabled, cfg,
		sched.LastRunAt, sched.NextRunAt, sched.CreatedAt, sched.UpdatedAt)
	if err != nil {
		return agenterrors.Storage("upsert schedule_definitions", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM schedule_definitions WHERE id = $1`, id); err != nil {
		return agenterrors.Storage("delete schedule_definitions", err)
	}
	return nil
}

func (s *PostgresStore) UpdateNextRun(ctx context.Context, scheduleID uuid.UUID, lastRunAt, nextRunAt time.Time) error {
	var next sql.NullTime
	if !nextRunAt.IsZero() {
		next = sql.NullTime{Time: nextRunAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE schedule_definitions SET last_run_at = $2, next_run_at = $3, updated_at = $2 WHERE id = $1`,
		scheduleID, lastRunAt, next)
	if err != nil {
		return agenterrors.Storage("update_next_run", err)
	}
	return nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run models.ScheduleRun) error {
	const insert = `
INSERT INTO schedule_runs (id, schedule_id, task_id, started_at, ended_at, success, message)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.db.ExecContext(ctx, insert,
		run.ID, run.ScheduleID, run.TaskID, run.StartedAt, run.EndedAt, run.Success, run.Message)
	if err != nil {
		return agenterrors.Storage("record schedule_runs", err)
	}
	return nil
}

// ListRuns returns the run history for a schedule, most recent first,
// bounded to limit rows, per §6's "bounded history of ScheduleRuns".
func (s *PostgresStore) ListRuns(ctx context.Context, scheduleID uuid.UUID, limit int) ([]models.ScheduleRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.ScheduleRun
	query := `SELECT id, schedule_id, task_id, started_at, ended_at, success, message
	          FROM schedule_runs WHERE schedule_id = $1 ORDER BY started_at DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &runs, query, scheduleID, limit); err != nil {
		return nil, agenterrors.Storage("list schedule_runs", err)
	}
	return runs, nil
}
