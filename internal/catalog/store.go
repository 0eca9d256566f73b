package catalog

import "context"

// Store is the exclusive owner of catalog persistence (spec.md §4.A).
// Ingestion and install write through it; search reads only. All
// methods are transactional and idempotent for identical content.
type Store interface {
	// UpsertEntity inserts or updates an Entity keyed by (type,id,version).
	// updated_at only advances when the stored content materially
	// changes, which is what makes re-ingest of an unchanged manifest
	// a no-op (spec.md §8 idempotence invariant).
	UpsertEntity(ctx context.Context, e *Entity) (uid string, outcome UpsertOutcome, err error)

	// Get returns the Entity for uid, or a NotFound *apperrors.Error.
	Get(ctx context.Context, uid string) (*Entity, error)

	// ReplaceChunks atomically replaces all EmbeddingChunks owned by
	// uid (used when a manifest changes materially and must be
	// re-chunked).
	ReplaceChunks(ctx context.Context, uid string, chunks []EmbeddingChunk) error

	// Chunks returns every EmbeddingChunk owned by uid.
	Chunks(ctx context.Context, uid string) ([]EmbeddingChunk, error)

	// AllChunks returns every EmbeddingChunk in the catalog matching
	// filters' entity-level predicates, for the semantic backend to
	// score against.
	AllChunks(ctx context.Context, filters Filters) ([]EmbeddingChunk, error)

	// ListByType returns up to k entities of the given type, offset
	// for pagination, ordered by created_at desc.
	ListByType(ctx context.Context, t EntityType, k, offset int) ([]*Entity, error)

	// ListEntities returns every entity matching filters, for the
	// lexical/semantic backends to score and the ranker to fuse.
	ListEntities(ctx context.Context, filters Filters) ([]*Entity, error)

	// MarkGatewayRegistered records the outcome of a gateway
	// registration attempt against the Entity.
	MarkGatewayRegistered(ctx context.Context, uid string, ok bool, registrationErr string) error

	// UpsertRemote registers (or re-registers) a Remote by URL.
	UpsertRemote(ctx context.Context, url string) (*Remote, error)

	// RemoveRemote deletes a Remote by URL.
	RemoveRemote(ctx context.Context, url string) error

	// ListRemotes returns every registered Remote.
	ListRemotes(ctx context.Context) ([]*Remote, error)

	// RecordRemotePoll updates a Remote's poll bookkeeping.
	RecordRemotePoll(ctx context.Context, url string, status RemoteStatus, etag, pollErr string) error

	// Watermark returns the store's monotonically advancing write
	// counter, used to invalidate search ETags (spec.md §4.D).
	Watermark(ctx context.Context) (int64, error)

	// Close releases underlying resources.
	Close() error
}
