package itemstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agenterrors"
	"github.com/fntelecomllc/kbagent/internal/dbx"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/jmoiron/sqlx"
)

// PostgresStore is the durable Store backend, ground:
// store/postgres/campaign_store.go's upsert-by-id idiom and
// store/interfaces.go's Querier/Transactor split.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-open *sqlx.DB.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// BeginTxx satisfies dbx.Transactor for callers that need to batch several
// item writes (and, rarely, writes to other items) in one transaction.
func (s *PostgresStore) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, opts)
}

const itemRecordColumns = `item_id, bookmarked_item_id, source, raw_content, display_title, full_text,
	is_thread, cache_complete, media_processed, categories_processed, kb_item_created, db_synced,
	cache_error, media_error, categories_error, kb_item_error, db_sync_error,
	main_category, sub_category, item_name_suggestion, kb_item_path,
	force_reprocess_pipeline, force_recache, reprocess_requested_at, reprocess_requested_by,
	retry_count, last_retry_attempt, next_retry_after, failure_type,
	created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, itemID string) (*models.ItemRecord, error) {
	var rec models.ItemRecord
	query := `SELECT ` + itemRecordColumns + ` FROM item_records WHERE item_id = $1`
	if err := s.db.GetContext(ctx, &rec, query, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, agenterrors.Storage("get item record", err)
	}
	return &rec, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, itemIDs []string) (map[string]*models.ItemRecord, error) {
	out := make(map[string]*models.ItemRecord, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+itemRecordColumns+` FROM item_records WHERE item_id IN (?)`, itemIDs)
	if err != nil {
		return nil, agenterrors.Storage("build get_many query", err)
	}
	query = s.db.Rebind(query)
	var recs []models.ItemRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, agenterrors.Storage("get_many item records", err)
	}
	for i := range recs {
		out[recs[i].ItemID] = &recs[i]
	}
	return out, nil
}

// Upsert reads the current row (if any) inside a transaction, merges the
// patch in Go, and writes the full row back with INSERT ... ON CONFLICT,
// giving per-field last-writer-wins semantics without relying on a
// column-by-column SQL UPDATE list (ground: campaign_store.go's upsert
// queries; merge logic is ItemStore's own, per Design Notes' explicit
// typed-patch-over-reflection redesign).
func (s *PostgresStore) Upsert(ctx context.Context, itemID string, patch models.ItemPatch) (*models.ItemRecord, error) {
	var result *models.ItemRecord
	err := dbx.WithTx(ctx, s, func(q dbx.Querier) error {
		var existing models.ItemRecord
		err := q.GetContext(ctx, &existing, `SELECT `+itemRecordColumns+` FROM item_records WHERE item_id = $1 FOR UPDATE`, itemID)
		now := time.Now().UTC()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			existing = models.ItemRecord{ItemID: itemID, CreatedAt: now}
		case err != nil:
			return agenterrors.Storage("lock item record for upsert", err)
		}
		merged := ApplyPatch(existing, patch)
		merged.ItemID = itemID
		merged.UpdatedAt = now
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = now
		}
		if err := writeItemRecord(ctx, q, &merged); err != nil {
			return err
		}
		result = &merged
		return nil
	})
	return result, err
}

func (s *PostgresStore) SetFlags(ctx context.Context, itemID string, flags models.FlagPatch) (*models.ItemRecord, error) {
	var result *models.ItemRecord
	err := dbx.WithTx(ctx, s, func(q dbx.Querier) error {
		var existing models.ItemRecord
		err := q.GetContext(ctx, &existing, `SELECT `+itemRecordColumns+` FROM item_records WHERE item_id = $1 FOR UPDATE`, itemID)
		now := time.Now().UTC()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			existing = models.ItemRecord{ItemID: itemID, CreatedAt: now}
		case err != nil:
			return agenterrors.Storage("lock item record for set_flags", err)
		}
		merged := ApplyFlags(existing, flags)
		merged.ItemID = itemID
		merged.UpdatedAt = now
		if merged.CreatedAt.IsZero() {
			merged.CreatedAt = now
		}
		if err := writeItemRecord(ctx, q, &merged); err != nil {
			return err
		}
		result = &merged
		return nil
	})
	return result, err
}

func (s *PostgresStore) ClearRuntimeFlags(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE item_records SET updated_at = NOW() WHERE item_id IN (?)`, itemIDs)
	if err != nil {
		return agenterrors.Storage("build clear_runtime_flags query", err)
	}
	query = s.db.Rebind(query)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return agenterrors.Storage("clear_runtime_flags", err)
	}
	return nil
}

// ListByPredicate performs a full scan over item_records; this complexity
// is documented rather than hidden, per §4.1's requirement that
// implementers state the cost. Production deployments expecting large
// tables should add a partial index for the common predicates and a
// dedicated query instead of calling this path.
func (s *PostgresStore) ListByPredicate(ctx context.Context, predicate func(*models.ItemRecord) bool) ([]string, error) {
	var recs []models.ItemRecord
	if err := s.db.SelectContext(ctx, &recs, `SELECT `+itemRecordColumns+` FROM item_records`); err != nil {
		return nil, agenterrors.Storage("list_by_predicate scan", err)
	}
	var ids []string
	for i := range recs {
		if predicate(&recs[i]) {
			ids = append(ids, recs[i].ItemID)
		}
	}
	return ids, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]string, error) {
	return s.ListByPredicate(ctx, func(*models.ItemRecord) bool { return true })
}

func writeItemRecord(ctx context.Context, q dbx.Querier, rec *models.ItemRecord) error {
	var rawContent []byte
	if rec.RawContent != nil {
		rawContent = []byte(rec.RawContent)
	} else {
		rawContent = json.RawMessage("null")
	}
	const upsert = `
INSERT INTO item_records (
	item_id, bookmarked_item_id, source, raw_content, display_title, full_text,
	is_thread, cache_complete, media_processed, categories_processed, kb_item_created, db_synced,
	cache_error, media_error, categories_error, kb_item_error, db_sync_error,
	main_category, sub_category, item_name_suggestion, kb_item_path,
	force_reprocess_pipeline, force_recache, reprocess_requested_at, reprocess_requested_by,
	retry_count, last_retry_attempt, next_retry_after, failure_type,
	created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31
) ON CONFLICT (item_id) DO UPDATE SET
	bookmarked_item_id = EXCLUDED.bookmarked_item_id,
	source = EXCLUDED.source,
	raw_content = EXCLUDED.raw_content,
	display_title = EXCLUDED.display_title,
	full_text = EXCLUDED.full_text,
	is_thread = EXCLUDED.is_thread,
	cache_complete = EXCLUDED.cache_complete,
	media_processed = EXCLUDED.media_processed,
	categories_processed = EXCLUDED.categories_processed,
	kb_item_created = EXCLUDED.kb_item_created,
	db_synced = EXCLUDED.db_synced,
	cache_error = EXCLUDED.cache_error,
	media_error = EXCLUDED.media_error,
	categories_error = EXCLUDED.categories_error,
	kb_item_error = EXCLUDED.kb_item_error,
	db_sync_error = EXCLUDED.db_sync_error,
	main_category = EXCLUDED.main_category,
	sub_category = EXCLUDED.sub_category,
	item_name_suggestion = EXCLUDED.item_name_suggestion,
	kb_item_path = EXCLUDED.kb_item_path,
	force_reprocess_pipeline = EXCLUDED.force_reprocess_pipeline,
	force_recache = EXCLUDED.force_recache,
	reprocess_requested_at = EXCLUDED.reprocess_requested_at,
	reprocess_requested_by = EXCLUDED.reprocess_requested_by,
	retry_count = EXCLUDED.retry_count,
	last_retry_attempt = EXCLUDED.last_retry_attempt,
	next_retry_after = EXCLUDED.next_retry_after,
	failure_type = EXCLUDED.failure_type,
	updated_at = EXCLUDED.updated_at`
	_, err := q.ExecContext(ctx, upsert,
		rec.ItemID, rec.BookmarkedItemID, rec.Source, rawContent, rec.DisplayTitle, rec.FullText,
		rec.IsThread, rec.CacheComplete, rec.MediaProcessed, rec.CategoriesProcessed, rec.KBItemCreated, rec.DBSynced,
		rec.CacheError, rec.MediaError, rec.CategoriesError, rec.KBItemError, rec.DBSyncError,
		rec.MainCategory, rec.SubCategory, rec.ItemNameSuggestion, rec.KBItemPath,
		rec.ForceReprocessPipeline, rec.ForceRecache, rec.ReprocessRequestedAt, rec.ReprocessRequestedBy,
		rec.RetryCount, rec.LastRetryAttempt, rec.NextRetryAfter, rec.FailureType,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return agenterrors.Storage("upsert item record", err)
	}
	return nil
}
