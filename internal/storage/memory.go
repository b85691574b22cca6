package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/localehub/translation-management-backend/internal/models"
)

// MemoryStore is an in-process Store used when no MongoDB is configured
// (local development) and by the service tests. It enforces the same
// uniqueness and versioning contract as MongoStore.
type MemoryStore struct {
	mu             sync.RWMutex
	translations   map[string]models.Translation
	tags           map[string]models.Tag
	tagIDsByName   map[string]string
	users          map[string]models.User
	userIDsByEmail map[string]string
	now            func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		translations:   make(map[string]models.Translation),
		tags:           make(map[string]models.Tag),
		tagIDsByName:   make(map[string]string),
		users:          make(map[string]models.User),
		userIDsByEmail: make(map[string]string),
		now:            time.Now,
	}
}

// SetClock overrides the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.translations[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindByKeyLocale(_ context.Context, key, locale string) (*models.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.lookupKeyLocale(key, locale); ok {
		return &t, nil
	}
	return nil, nil
}

// lookupKeyLocale requires the read lock.
func (s *MemoryStore) lookupKeyLocale(key, locale string) (models.Translation, bool) {
	for _, t := range s.translations {
		if t.Key == key && t.Locale == locale {
			return t, true
		}
	}
	return models.Translation{}, false
}

func (s *MemoryStore) ExistsByKeyLocale(_ context.Context, key, locale string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.lookupKeyLocale(key, locale)
	return ok, nil
}

func (s *MemoryStore) Upsert(_ context.Context, t *models.Translation, expectedVersion *int64) (*models.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	if t.ID == "" {
		if _, ok := s.lookupKeyLocale(t.Key, t.Locale); ok {
			return nil, ErrDuplicateKey
		}
		saved := *t
		saved.ID = primitive.NewObjectID().Hex()
		saved.CreatedAt = now
		saved.UpdatedAt = now
		saved.Version = 0
		s.translations[saved.ID] = saved
		return &saved, nil
	}

	current, ok := s.translations[t.ID]
	if !ok {
		return nil, ErrNotFound
	}

	expected := t.Version
	if expectedVersion != nil {
		expected = *expectedVersion
	}
	if current.Version != expected {
		return nil, ErrVersionMismatch
	}

	if other, ok := s.lookupKeyLocale(t.Key, t.Locale); ok && other.ID != t.ID {
		return nil, ErrDuplicateKey
	}

	saved := current
	saved.Key = t.Key
	saved.Locale = t.Locale
	saved.Content = t.Content
	saved.Tags = t.Tags
	saved.UpdatedAt = now
	saved.Version = current.Version + 1
	s.translations[saved.ID] = saved
	return &saved, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.translations[id]; !ok {
		return ErrNotFound
	}
	delete(s.translations, id)
	return nil
}

func matchesQuery(t models.Translation, q Query) bool {
	if q.Key != "" && !strings.Contains(t.Key, q.Key) {
		return false
	}
	if q.Locale != "" && t.Locale != q.Locale {
		return false
	}
	if q.Content != "" && !strings.Contains(strings.ToLower(t.Content), strings.ToLower(q.Content)) {
		return false
	}
	return true
}

// compareByField orders two rows on the sort field. Time fields compare as
// time.Time, not as formatted strings, so fractional seconds order correctly.
func compareByField(a, b models.Translation, field string) int {
	switch field {
	case SortByKey:
		return strings.Compare(a.Key, b.Key)
	case SortByLocale:
		return strings.Compare(a.Locale, b.Locale)
	case SortByContent:
		return strings.Compare(a.Content, b.Content)
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
}

func sortAndPage(items []models.Translation, q Query) ([]models.Translation, int64) {
	sort.Slice(items, func(i, j int) bool {
		if c := compareByField(items[i], items[j], q.SortBy); c != 0 {
			if q.Desc {
				return c > 0
			}
			return c < 0
		}
		return items[i].ID < items[j].ID
	})

	total := int64(len(items))
	start := q.Page * q.Size
	if start >= len(items) {
		return []models.Translation{}, total
	}
	end := start + q.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total
}

func (s *MemoryStore) Search(_ context.Context, q Query) ([]models.Translation, int64, error) {
	s.mu.RLock()
	var matched []models.Translation
	for _, t := range s.translations {
		if matchesQuery(t, q) {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	page, total := sortAndPage(matched, q)
	return page, total, nil
}

// SearchByTags mirrors the Mongo tag path: resolve tag names to ids first,
// then match translations referencing any of them.
func (s *MemoryStore) SearchByTags(_ context.Context, tagNames []string, q Query) ([]models.Translation, int64, error) {
	s.mu.RLock()
	wanted := make(map[string]bool, len(tagNames))
	for _, name := range tagNames {
		if id, ok := s.tagIDsByName[name]; ok {
			wanted[id] = true
		}
	}

	var matched []models.Translation
	if len(wanted) > 0 {
		for _, t := range s.translations {
			if !matchesQuery(t, q) {
				continue
			}
			for _, tag := range t.Tags {
				if wanted[tag.ID] {
					matched = append(matched, t)
					break
				}
			}
		}
	}
	s.mu.RUnlock()

	if len(wanted) == 0 {
		return []models.Translation{}, 0, nil
	}
	page, total := sortAndPage(matched, q)
	return page, total, nil
}

func (s *MemoryStore) FindByLocale(_ context.Context, locale string) ([]models.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.Translation
	for _, t := range s.translations {
		if t.Locale == locale {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func (s *MemoryStore) FindByLocaleSince(_ context.Context, locale string, since time.Time) ([]models.Translation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.Translation
	for _, t := range s.translations {
		if t.Locale == locale && t.UpdatedAt.After(since) {
			items = append(items, t)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.Before(items[j].UpdatedAt) })
	return items, nil
}

func (s *MemoryStore) DistinctLocales(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var locales []string
	for _, t := range s.translations {
		if !seen[t.Locale] {
			seen[t.Locale] = true
			locales = append(locales, t.Locale)
		}
	}
	sort.Strings(locales)
	return locales, nil
}

func (s *MemoryStore) InsertBatch(_ context.Context, ts []models.Translation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for _, t := range ts {
		if _, ok := s.lookupKeyLocale(t.Key, t.Locale); ok {
			return ErrDuplicateKey
		}
		if t.ID == "" {
			t.ID = primitive.NewObjectID().Hex()
		}
		t.CreatedAt = now
		t.UpdatedAt = now
		t.Version = 0
		s.translations[t.ID] = t
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.translations)), nil
}

func (s *MemoryStore) CountByLocale(_ context.Context, locale string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, t := range s.translations {
		if t.Locale == locale {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) FindTagByName(_ context.Context, name string) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.tagIDsByName[name]; ok {
		tag := s.tags[id]
		return &tag, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindTagsByNames(_ context.Context, names []string) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tags []models.Tag
	for _, name := range names {
		if id, ok := s.tagIDsByName[name]; ok {
			tags = append(tags, s.tags[id])
		}
	}
	return tags, nil
}

func (s *MemoryStore) ExistsTagByName(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tagIDsByName[name]
	return ok, nil
}

func (s *MemoryStore) SaveTag(_ context.Context, tag *models.Tag) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tagIDsByName[tag.Name]; ok && existing != tag.ID {
		return nil, ErrDuplicateKey
	}

	saved := *tag
	if saved.ID == "" {
		saved.ID = primitive.NewObjectID().Hex()
	}
	s.tags[saved.ID] = saved
	s.tagIDsByName[saved.Name] = saved.ID
	return &saved, nil
}

func (s *MemoryStore) SaveTags(ctx context.Context, tags []models.Tag) ([]models.Tag, error) {
	saved := make([]models.Tag, 0, len(tags))
	for i := range tags {
		tag, err := s.SaveTag(ctx, &tags[i])
		if err != nil {
			return nil, err
		}
		saved = append(saved, *tag)
	}
	return saved, nil
}

func (s *MemoryStore) AllTags(_ context.Context) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]models.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *MemoryStore) CountTags(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tags)), nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.userIDsByEmail[email]; ok {
		u := s.users[id]
		return &u, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.userIDsByEmail[u.Email]; ok && existing != u.ID {
		return nil, ErrDuplicateKey
	}

	now := s.now().UTC()
	saved := *u
	if saved.ID == "" {
		saved.ID = primitive.NewObjectID().Hex()
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	s.users[saved.ID] = saved
	s.userIDsByEmail[saved.Email] = saved.ID
	return &saved, nil
}

func (s *MemoryStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

var _ Store = (*MemoryStore)(nil)
