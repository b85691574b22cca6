// Package storage defines the persistence abstraction the translation
// service depends on, plus its MongoDB and in-memory implementations.
//
// Conventions: Find* methods return (nil, nil) when the entity is absent;
// write methods report constraint failures through the sentinel errors
// below so callers can map them to their own taxonomy.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/localehub/translation-management-backend/internal/models"
)

var (
	// ErrDuplicateKey signals a unique-index violation: the (key, locale)
	// pair on translations, the name on tags, the email on users.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrVersionMismatch signals that an update's expected version no
	// longer matches the stored version.
	ErrVersionMismatch = errors.New("storage: version mismatch")

	// ErrNotFound signals a delete or update of a missing entity.
	ErrNotFound = errors.New("storage: not found")
)

// Sort field names understood by the stores. The service validates
// caller-supplied sort fields and maps them onto these before querying.
const (
	SortByKey       = "translationKey"
	SortByLocale    = "locale"
	SortByContent   = "content"
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
)

// Query describes a filtered, sorted, paginated translation query.
// Empty filter fields mean "no constraint"; present filters combine with
// AND. Key matches by case-sensitive substring, Locale exactly, Content by
// case-insensitive substring. Ties on the sort field break by ascending id.
type Query struct {
	Key     string
	Locale  string
	Content string
	SortBy  string // one of the SortBy* constants
	Desc    bool
	Page    int // zero-based
	Size    int
}

// TranslationStore is the persistence surface for translations.
type TranslationStore interface {
	FindByID(ctx context.Context, id string) (*models.Translation, error)
	FindByKeyLocale(ctx context.Context, key, locale string) (*models.Translation, error)
	ExistsByKeyLocale(ctx context.Context, key, locale string) (bool, error)

	// Upsert inserts t when t.ID is empty (assigning id, timestamps and
	// version 0) and otherwise updates it in a single atomic write that
	// fails with ErrVersionMismatch unless the stored version equals
	// expectedVersion (or t.Version when expectedVersion is nil). On
	// update the store refreshes UpdatedAt and increments Version.
	Upsert(ctx context.Context, t *models.Translation, expectedVersion *int64) (*models.Translation, error)

	Delete(ctx context.Context, id string) error

	// Search runs the generic filter query. SearchByTags is the separate
	// tag-membership path: it first resolves tag names to tag ids, then
	// returns translations referencing ANY of them (union semantics),
	// narrowed by the remaining Query filters. Both return the matching
	// page and the total match count.
	Search(ctx context.Context, q Query) ([]models.Translation, int64, error)
	SearchByTags(ctx context.Context, tagNames []string, q Query) ([]models.Translation, int64, error)

	FindByLocale(ctx context.Context, locale string) ([]models.Translation, error)
	FindByLocaleSince(ctx context.Context, locale string, since time.Time) ([]models.Translation, error)
	DistinctLocales(ctx context.Context) ([]string, error)

	// InsertBatch bulk-inserts pre-built translations for seeding.
	InsertBatch(ctx context.Context, ts []models.Translation) error

	Count(ctx context.Context) (int64, error)
	CountByLocale(ctx context.Context, locale string) (int64, error)
}

// TagStore is the persistence surface for tags.
type TagStore interface {
	FindTagByName(ctx context.Context, name string) (*models.Tag, error)
	FindTagsByNames(ctx context.Context, names []string) ([]models.Tag, error)
	ExistsTagByName(ctx context.Context, name string) (bool, error)
	SaveTag(ctx context.Context, tag *models.Tag) (*models.Tag, error)
	SaveTags(ctx context.Context, tags []models.Tag) ([]models.Tag, error)
	AllTags(ctx context.Context) ([]models.Tag, error)
	CountTags(ctx context.Context) (int64, error)
}

// UserStore is the persistence surface for user accounts.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// Store bundles the three persistence surfaces a running server needs.
type Store interface {
	TranslationStore
	TagStore
	UserStore
}
