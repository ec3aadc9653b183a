// Package itemstore implements C1: durable, atomic per-field upsert
// semantics for ItemRecord, keyed by item_id, ground: store/interfaces.go's
// Querier/Transactor pattern and campaign_store.go's upsert-by-id idiom.
package itemstore

import (
	"context"

	"github.com/fntelecomllc/kbagent/internal/models"
)

// Store is the ItemStore contract. get(item_id) returning a nil record
// (rather than an error) is the NotFound-is-not-an-error convention §4.1
// requires; storage backend failures surface as agenterrors.Storage.
type Store interface {
	Get(ctx context.Context, itemID string) (*models.ItemRecord, error)
	GetMany(ctx context.Context, itemIDs []string) (map[string]*models.ItemRecord, error)
	Upsert(ctx context.Context, itemID string, patch models.ItemPatch) (*models.ItemRecord, error)
	SetFlags(ctx context.Context, itemID string, flags models.FlagPatch) (*models.ItemRecord, error)
	ClearRuntimeFlags(ctx context.Context, itemIDs []string) error
	ListByPredicate(ctx context.Context, predicate func(*models.ItemRecord) bool) ([]string, error)
	ListAll(ctx context.Context) ([]string, error)
}

// ApplyPatch merges a partial ItemPatch onto an existing (or zero-value)
// ItemRecord, last-writer-wins per field, leaving unspecified fields alone.
// This is the hand-written field-level merge the Design Notes call for in
// place of the teacher's reflection-driven ORM upsert.
func ApplyPatch(rec models.ItemRecord, patch models.ItemPatch) models.ItemRecord {
	if patch.BookmarkedItemID != nil {
		rec.BookmarkedItemID = *patch.BookmarkedItemID
	}
	if patch.Source != nil {
		rec.Source = *patch.Source
	}
	if patch.RawContent != nil {
		rec.RawContent = patch.RawContent
	}
	if patch.DisplayTitle != nil {
		rec.DisplayTitle.String, rec.DisplayTitle.Valid = *patch.DisplayTitle, true
	}
	if patch.FullText != nil {
		rec.FullText.String, rec.FullText.Valid = *patch.FullText, true
	}
	if patch.MediaRefs != nil {
		rec.MediaRefs = patch.MediaRefs
	}
	if patch.IsThread != nil {
		rec.IsThread = *patch.IsThread
	}
	if patch.ThreadItems != nil {
		rec.ThreadItems = patch.ThreadItems
	}
	if patch.CacheComplete != nil {
		rec.CacheComplete = *patch.CacheComplete
	}
	if patch.MediaProcessed != nil {
		rec.MediaProcessed = *patch.MediaProcessed
	}
	if patch.CategoriesProcessed != nil {
		rec.CategoriesProcessed = *patch.CategoriesProcessed
	}
	if patch.KBItemCreated != nil {
		rec.KBItemCreated = *patch.KBItemCreated
	}
	if patch.DBSynced != nil {
		rec.DBSynced = *patch.DBSynced
	}
	if patch.CacheError != nil {
		rec.CacheError.String, rec.CacheError.Valid = *patch.CacheError, *patch.CacheError != ""
	}
	if patch.MediaError != nil {
		rec.MediaError.String, rec.MediaError.Valid = *patch.MediaError, *patch.MediaError != ""
	}
	if patch.CategoriesError != nil {
		rec.CategoriesError.String, rec.CategoriesError.Valid = *patch.CategoriesError, *patch.CategoriesError != ""
	}
	if patch.KBItemError != nil {
		rec.KBItemError.String, rec.KBItemError.Valid = *patch.KBItemError, *patch.KBItemError != ""
	}
	if patch.DBSyncError != nil {
		rec.DBSyncError.String, rec.DBSyncError.Valid = *patch.DBSyncError, *patch.DBSyncError != ""
	}
	if patch.MainCategory != nil {
		rec.MainCategory.String, rec.MainCategory.Valid = *patch.MainCategory, true
	}
	if patch.SubCategory != nil {
		rec.SubCategory.String, rec.SubCategory.Valid = *patch.SubCategory, true
	}
	if patch.ItemNameSuggestion != nil {
		rec.ItemNameSuggestion.String, rec.ItemNameSuggestion.Valid = *patch.ItemNameSuggestion, true
	}
	if patch.Categories != nil {
		rec.Categories = patch.Categories
	}
	if patch.KBItemPath != nil {
		rec.KBItemPath.String, rec.KBItemPath.Valid = *patch.KBItemPath, true
	}
	if patch.KBMediaPaths != nil {
		rec.KBMediaPaths = patch.KBMediaPaths
	}
	if patch.ForceReprocessPipeline != nil {
		rec.ForceReprocessPipeline = *patch.ForceReprocessPipeline
	}
	if patch.ForceRecache != nil {
		rec.ForceRecache = *patch.ForceRecache
	}
	if patch.ReprocessRequestedAt != nil {
		rec.ReprocessRequestedAt.Time, rec.ReprocessRequestedAt.Valid = *patch.ReprocessRequestedAt, true
	}
	if patch.ReprocessRequestedBy != nil {
		rec.ReprocessRequestedBy.String, rec.ReprocessRequestedBy.Valid = *patch.ReprocessRequestedBy, true
	}
	if patch.RetryCount != nil {
		rec.RetryCount = *patch.RetryCount
	}
	if patch.LastRetryAttempt != nil {
		rec.LastRetryAttempt.Time, rec.LastRetryAttempt.Valid = *patch.LastRetryAttempt, true
	}
	if patch.NextRetryAfter != nil {
		rec.NextRetryAfter.Time, rec.NextRetryAfter.Valid = *patch.NextRetryAfter, true
	}
	if patch.FailureType != nil {
		rec.FailureType.String, rec.FailureType.Valid = *patch.FailureType, *patch.FailureType != ""
	}
	if patch.AppendRetryHistory != nil {
		rec.RetryHistory = append(rec.RetryHistory, *patch.AppendRetryHistory)
		if len(rec.RetryHistory) > models.RetryHistoryCap {
			rec.RetryHistory = rec.RetryHistory[len(rec.RetryHistory)-models.RetryHistoryCap:]
		}
	}
	if patch.CacheSucceededThisRun != nil {
		rec.CacheSucceededThisRun = *patch.CacheSucceededThisRun
	}
	if patch.MediaSucceededThisRun != nil {
		rec.MediaSucceededThisRun = *patch.MediaSucceededThisRun
	}
	if patch.CategoriesSucceededThisRun != nil {
		rec.CategoriesSucceededThisRun = *patch.CategoriesSucceededThisRun
	}
	if patch.KBItemSucceededThisRun != nil {
		rec.KBItemSucceededThisRun = *patch.KBItemSucceededThisRun
	}
	if patch.DBSyncSucceededThisRun != nil {
		rec.DBSyncSucceededThisRun = *patch.DBSyncSucceededThisRun
	}
	return rec
}

// ApplyFlags merges a FlagPatch onto rec; used by SetFlags implementations
// so the atomicity contract is expressed in one place regardless of backend.
func ApplyFlags(rec models.ItemRecord, flags models.FlagPatch) models.ItemRecord {
	if flags.CacheComplete != nil {
		rec.CacheComplete = *flags.CacheComplete
	}
	if flags.MediaProcessed != nil {
		rec.MediaProcessed = *flags.MediaProcessed
	}
	if flags.CategoriesProcessed != nil {
		rec.CategoriesProcessed = *flags.CategoriesProcessed
	}
	if flags.KBItemCreated != nil {
		rec.KBItemCreated = *flags.KBItemCreated
	}
	if flags.DBSynced != nil {
		rec.DBSynced = *flags.DBSynced
	}
	return rec
}
