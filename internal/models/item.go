package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// MediaRef is one entry in an item's ordered media sequence: the source
// type, the remote URL, the local path once cached, and alt text.
type MediaRef struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	LocalPath string `json:"localPath,omitempty"`
	AltText   string `json:"altText,omitempty"`
}

// RetryAttempt is one bounded-history entry recorded by the RetryManager
// each time an item-level operation fails and a retry is scheduled.
type RetryAttempt struct {
	AttemptedAt time.Time       `json:"attemptedAt"`
	FailureType FailureTypeEnum `json:"failureType"`
	Error       string          `json:"error"`
	DelaySeconds float64        `json:"delaySeconds"`
}

// Categories holds the structured categorization output for an item,
// beyond the flat main/sub category strings.
type Categories struct {
	Tags       []string `json:"tags,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// ItemRecord is the durable, per-item state record keyed by item_id. It is
// owned exclusively by ItemStore; every mutation is a field-level patch, not
// a whole-record replace, per the merge semantics of ItemPatch (applied by
// itemstore.ApplyPatch).
type ItemRecord struct {
	ItemID            string `db:"item_id" json:"itemId"`
	BookmarkedItemID  string `db:"bookmarked_item_id" json:"bookmarkedItemId"`
	Source            string `db:"source" json:"source"`

	RawContent    json.RawMessage `db:"raw_content" json:"rawContent,omitempty"`
	DisplayTitle  sql.NullString  `db:"display_title" json:"displayTitle,omitempty"`
	FullText      sql.NullString  `db:"full_text" json:"fullText,omitempty"`
	MediaRefs     []MediaRef      `db:"-" json:"mediaRefs,omitempty"`

	IsThread    bool              `db:"is_thread" json:"isThread"`
	ThreadItems []json.RawMessage `db:"-" json:"threadItems,omitempty"`

	// Per-phase completion flags. Phase dependency order is monotone:
	// cache -> media -> llm -> kb_item -> db_sync. Synthesis/embedding are
	// global phases and track no per-item flag.
	CacheComplete        bool `db:"cache_complete" json:"cacheComplete"`
	MediaProcessed       bool `db:"media_processed" json:"mediaProcessed"`
	CategoriesProcessed  bool `db:"categories_processed" json:"categoriesProcessed"`
	KBItemCreated        bool `db:"kb_item_created" json:"kbItemCreated"`
	DBSynced             bool `db:"db_synced" json:"dbSynced"`

	// Per-phase error annotations. A non-null entry here must coincide
	// with the corresponding completion flag being false.
	CacheError       sql.NullString `db:"cache_error" json:"cacheError,omitempty"`
	MediaError       sql.NullString `db:"media_error" json:"mediaError,omitempty"`
	CategoriesError  sql.NullString `db:"categories_error" json:"categoriesError,omitempty"`
	KBItemError      sql.NullString `db:"kb_item_error" json:"kbItemError,omitempty"`
	DBSyncError      sql.NullString `db:"db_sync_error" json:"dbSyncError,omitempty"`

	MainCategory         sql.NullString `db:"main_category" json:"mainCategory,omitempty"`
	SubCategory          sql.NullString `db:"sub_category" json:"subCategory,omitempty"`
	ItemNameSuggestion   sql.NullString `db:"item_name_suggestion" json:"itemNameSuggestion,omitempty"`
	Categories           *Categories    `db:"-" json:"categories,omitempty"`

	KBItemPath    sql.NullString `db:"kb_item_path" json:"kbItemPath,omitempty"`
	KBMediaPaths  []string       `db:"-" json:"kbMediaPaths,omitempty"`

	ForceReprocessPipeline bool           `db:"force_reprocess_pipeline" json:"forceReprocessPipeline"`
	ForceRecache           bool           `db:"force_recache" json:"forceRecache"`
	ReprocessRequestedAt   sql.NullTime   `db:"reprocess_requested_at" json:"reprocessRequestedAt,omitempty"`
	ReprocessRequestedBy   sql.NullString `db:"reprocess_requested_by" json:"reprocessRequestedBy,omitempty"`

	RetryCount      int             `db:"retry_count" json:"retryCount"`
	LastRetryAttempt sql.NullTime   `db:"last_retry_attempt" json:"lastRetryAttempt,omitempty"`
	NextRetryAfter  sql.NullTime    `db:"next_retry_after" json:"nextRetryAfter,omitempty"`
	FailureType     sql.NullString  `db:"failure_type" json:"failureType,omitempty"`
	RetryHistory    []RetryAttempt  `db:"-" json:"retryHistory,omitempty"`

	// Runtime-scoped flags, cleared at the start of every run by
	// ClearRuntimeFlags; never persisted as authoritative completion state.
	CacheSucceededThisRun       bool `db:"-" json:"cacheSucceededThisRun"`
	MediaSucceededThisRun       bool `db:"-" json:"mediaSucceededThisRun"`
	CategoriesSucceededThisRun  bool `db:"-" json:"categoriesSucceededThisRun"`
	KBItemSucceededThisRun      bool `db:"-" json:"kbItemSucceededThisRun"`
	DBSyncSucceededThisRun      bool `db:"-" json:"dbSyncSucceededThisRun"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RetryHistoryCap bounds the number of RetryAttempt entries kept per item;
// older entries are dropped first-in, first-out.
const RetryHistoryCap = 20

// ItemPatch is a partial ItemRecord: every field is a pointer (or slice,
// already nil-able), and only non-nil fields are applied by ItemStore.Upsert.
// This is the typed-patch replacement for the teacher's reflection-driven
// ORM upsert idiom — merge is generated here by hand, field by field.
type ItemPatch struct {
	BookmarkedItemID *string
	Source           *string

	RawContent   json.RawMessage
	DisplayTitle *string
	FullText     *string
	MediaRefs    []MediaRef

	IsThread    *bool
	ThreadItems []json.RawMessage

	CacheComplete       *bool
	MediaProcessed      *bool
	CategoriesProcessed *bool
	KBItemCreated       *bool
	DBSynced            *bool

	CacheError      *string
	MediaError      *string
	CategoriesError *string
	KBItemError     *string
	DBSyncError     *string

	MainCategory       *string
	SubCategory        *string
	ItemNameSuggestion *string
	Categories         *Categories

	KBItemPath   *string
	KBMediaPaths []string

	ForceReprocessPipeline *bool
	ForceRecache           *bool
	ReprocessRequestedAt   *time.Time
	ReprocessRequestedBy   *string

	RetryCount       *int
	LastRetryAttempt *time.Time
	NextRetryAfter   *time.Time
	FailureType      *string
	AppendRetryHistory *RetryAttempt

	CacheSucceededThisRun      *bool
	MediaSucceededThisRun      *bool
	CategoriesSucceededThisRun *bool
	KBItemSucceededThisRun     *bool
	DBSyncSucceededThisRun     *bool
}

// FlagPatch restricts a patch to the boolean per-phase completion flags,
// for ItemStore.SetFlags's atomicity contract against concurrent readers.
type FlagPatch struct {
	CacheComplete       *bool
	MediaProcessed      *bool
	CategoriesProcessed *bool
	KBItemCreated       *bool
	DBSynced            *bool
}

// HasError reports whether the named item phase currently carries a
// non-null error annotation.
func (r *ItemRecord) HasError(phase PhaseID) bool {
	switch phase {
	case PhaseFetchBookmarks:
		return r.CacheError.Valid
	case PhaseMediaAnalysis:
		return r.MediaError.Valid
	case PhaseContentUnderstanding, PhaseCategorization:
		return r.CategoriesError.Valid
	case PhaseKBItemCreation:
		return r.KBItemError.Valid
	case PhaseDBSync:
		return r.DBSyncError.Valid
	default:
		return false
	}
}

// CompletionFlag returns the current value of the named item phase's
// completion flag. Synthesis and embedding are global and always report true
// here (the planner treats them separately as pseudo-entries).
func (r *ItemRecord) CompletionFlag(phase PhaseID) bool {
	switch phase {
	case PhaseFetchBookmarks:
		return r.CacheComplete
	case PhaseMediaAnalysis:
		return r.MediaProcessed
	case PhaseContentUnderstanding, PhaseCategorization:
		return r.CategoriesProcessed
	case PhaseKBItemCreation:
		return r.KBItemCreated
	case PhaseDBSync:
		return r.DBSynced
	default:
		return true
	}
}
