package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/localehub/translation-management-backend/internal/cache"
	"github.com/localehub/translation-management-backend/internal/models"
	"github.com/localehub/translation-management-backend/internal/storage"
)

// sortFields maps caller-facing sort names onto storage field names.
var sortFields = map[string]string{
	"key":            storage.SortByKey,
	"translationKey": storage.SortByKey,
	"locale":         storage.SortByLocale,
	"content":        storage.SortByContent,
	"createdAt":      storage.SortByCreatedAt,
	"updatedAt":      storage.SortByUpdatedAt,
}

// SearchOptions carries the search filters and paging controls. Filters are
// independently optional and combine with AND; Tags matches translations
// referencing ANY of the listed tag names.
type SearchOptions struct {
	Key     string
	Locale  string
	Content string
	Tags    []string
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// TranslationService orchestrates the translation catalog: it validates
// input, resolves tags through the TagRegistry, delegates persistence to
// the storage layer and keeps the cache coherent. It holds no per-request
// state and is safe for concurrent use.
type TranslationService struct {
	store    storage.TranslationStore
	registry *TagRegistry
	cache    cache.Cache
	validate *validator.Validate
}

func NewTranslationService(store storage.TranslationStore, registry *TagRegistry, c cache.Cache) *TranslationService {
	return &TranslationService{
		store:    store,
		registry: registry,
		cache:    c,
		validate: validator.New(),
	}
}

// Create persists a new translation. The (key, locale) pair must be unique;
// the storage layer's unique index backs the up-front existence check, so a
// racing create still fails cleanly.
func (s *TranslationService) Create(ctx context.Context, req *models.TranslationRequest) (*models.Translation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, wrapValidation(err)
	}

	exists, err := s.store.ExistsByKeyLocale(ctx, req.Key, req.Locale)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateKeyLocale
	}

	tags, err := s.registry.Resolve(ctx, req.Tags)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Upsert(ctx, &models.Translation{
		Key:     req.Key,
		Locale:  req.Locale,
		Content: req.Content,
		Tags:    tags,
	}, nil)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrDuplicateKeyLocale
		}
		return nil, err
	}

	s.invalidate(saved.ID, saved.Locale)
	return saved, nil
}

// Update rewrites an existing translation. The write is optimistic: it
// fails with ErrConcurrentModification when the stored version has advanced
// past the version the caller read (req.Version when supplied, otherwise
// the version loaded here).
func (s *TranslationService) Update(ctx context.Context, id string, req *models.TranslationRequest) (*models.Translation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, wrapValidation(err)
	}

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	if req.Key != current.Key || req.Locale != current.Locale {
		other, err := s.store.FindByKeyLocale(ctx, req.Key, req.Locale)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != id {
			return nil, ErrDuplicateKeyLocale
		}
	}

	tags, err := s.registry.Resolve(ctx, req.Tags)
	if err != nil {
		return nil, err
	}

	expected := current.Version
	if req.Version != nil {
		expected = *req.Version
	}

	saved, err := s.store.Upsert(ctx, &models.Translation{
		ID:      id,
		Key:     req.Key,
		Locale:  req.Locale,
		Content: req.Content,
		Tags:    tags,
	}, &expected)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrVersionMismatch):
			return nil, ErrConcurrentModification
		case errors.Is(err, storage.ErrDuplicateKey):
			return nil, ErrDuplicateKeyLocale
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Invalidate after the write committed; the old locale's export must go
	// too when the locale was reassigned.
	s.invalidate(saved.ID, current.Locale, saved.Locale)
	return saved, nil
}

// Delete hard-deletes a translation. Its tags stay behind; only the
// association stored on the translation document disappears with it.
func (s *TranslationService) Delete(ctx context.Context, id string) error {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.invalidate(id, current.Locale)
	return nil
}

// Get fetches a translation by id through the cache: hits return without
// touching storage, misses load from storage and populate the cache.
func (s *TranslationService) Get(ctx context.Context, id string) (*models.Translation, error) {
	if raw, ok := s.cache.Get(cache.PartitionTranslations, id); ok {
		var t models.Translation
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			return &t, nil
		}
		// Unreadable entry: drop it and fall through to storage.
		_ = s.cache.Delete(cache.PartitionTranslations, id)
	}

	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}

	s.cachePut(cache.PartitionTranslations, id, t)
	return t, nil
}

// Search runs the filtered, sorted, paginated query. A tag filter routes
// through the storage layer's separate tag-membership path; the two paths
// are intentionally not unified.
func (s *TranslationService) Search(ctx context.Context, opts SearchOptions) (*models.TranslationPage, error) {
	if opts.Page < 0 {
		return nil, newValidationError("page", "must not be negative")
	}
	if opts.Size <= 0 {
		return nil, newValidationError("size", "must be positive")
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "updatedAt"
	}
	field, ok := sortFields[sortBy]
	if !ok {
		return nil, newValidationError("sortBy", "unknown sort field "+sortBy)
	}

	desc := true
	switch strings.ToLower(opts.SortDir) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return nil, newValidationError("sortDir", "must be asc or desc")
	}

	q := storage.Query{
		Key:     opts.Key,
		Locale:  opts.Locale,
		Content: opts.Content,
		SortBy:  field,
		Desc:    desc,
		Page:    opts.Page,
		Size:    opts.Size,
	}

	var (
		items []models.Translation
		total int64
		err   error
	)
	if len(opts.Tags) > 0 {
		items, total, err = s.store.SearchByTags(ctx, opts.Tags, q)
	} else {
		items, total, err = s.store.Search(ctx, q)
	}
	if err != nil {
		return nil, err
	}

	totalPages := total / int64(opts.Size)
	if total%int64(opts.Size) != 0 {
		totalPages++
	}

	return &models.TranslationPage{
		Content:       items,
		Page:          opts.Page,
		Size:          opts.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

// Export returns the key→content mapping for one locale. Full exports are
// cached per locale; incremental exports (since != nil, strictly greater
// than) are request-specific and bypass the cache.
func (s *TranslationService) Export(ctx context.Context, locale string, since *time.Time) (map[string]string, error) {
	if locale == "" {
		return nil, newValidationError("locale", "cannot be blank")
	}

	if since != nil {
		rows, err := s.store.FindByLocaleSince(ctx, locale, *since)
		if err != nil {
			return nil, err
		}
		return exportMap(rows), nil
	}

	if raw, ok := s.cache.Get(cache.PartitionTranslationExport, locale); ok {
		var out map[string]string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		_ = s.cache.Delete(cache.PartitionTranslationExport, locale)
	}

	rows, err := s.store.FindByLocale(ctx, locale)
	if err != nil {
		return nil, err
	}
	out := exportMap(rows)
	s.cachePut(cache.PartitionTranslationExport, locale, out)
	return out, nil
}

func exportMap(rows []models.Translation) map[string]string {
	out := make(map[string]string, len(rows))
	for _, t := range rows {
		out[t.Key] = t.Content
	}
	return out
}

// ListLocales returns the distinct locale codes present in storage, sorted.
func (s *TranslationService) ListLocales(ctx context.Context) ([]string, error) {
	return s.store.DistinctLocales(ctx)
}

func (s *TranslationService) cachePut(partition, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(partition, key, string(raw)); err != nil {
		log.Printf("cache set %s/%s failed: %v", partition, key, err)
	}
}

// invalidate drops the cached entity and the export payloads of the given
// locales. It must run after the storage write has committed, so a
// concurrent reader cannot repopulate the cache with pre-write data.
func (s *TranslationService) invalidate(id string, locales ...string) {
	if err := s.cache.Delete(cache.PartitionTranslations, id); err != nil {
		log.Printf("cache invalidate %s/%s failed: %v", cache.PartitionTranslations, id, err)
	}
	seen := make(map[string]bool, len(locales))
	for _, locale := range locales {
		if seen[locale] {
			continue
		}
		seen[locale] = true
		if err := s.cache.Delete(cache.PartitionTranslationExport, locale); err != nil {
			log.Printf("cache invalidate %s/%s failed: %v", cache.PartitionTranslationExport, locale, err)
		}
	}
}
