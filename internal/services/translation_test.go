package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localehub/translation-management-backend/internal/cache"
	"github.com/localehub/translation-management-backend/internal/models"
	"github.com/localehub/translation-management-backend/internal/storage"
)

func newFixture() (*TranslationService, *storage.MemoryStore, *cache.MemoryCache) {
	store := storage.NewMemoryStore()
	c := cache.NewMemoryCache()
	svc := NewTranslationService(store, NewTagRegistry(store), c)
	return svc, store, c
}

func mustCreate(t *testing.T, svc *TranslationService, key, locale, content string, tags ...string) *models.Translation {
	t.Helper()
	created, err := svc.Create(context.Background(), &models.TranslationRequest{
		Key:     key,
		Locale:  locale,
		Content: content,
		Tags:    tags,
	})
	if err != nil {
		t.Fatalf("Create(%s, %s) failed: %v", key, locale, err)
	}
	return created
}

func TestCreateAndGet(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	created := mustCreate(t, svc, "app.title", "en", "Welcome", "ui")
	if created.ID == "" {
		t.Fatal("Create should assign an id")
	}
	if created.Version != 0 {
		t.Errorf("Version = %d, want 0", created.Version)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on creation")
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Key != "app.title" || got.Locale != "en" || got.Content != "Welcome" {
		t.Errorf("Get returned %+v, want created fields", got)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "ui" {
		t.Errorf("Tags = %v, want [ui]", got.TagNames())
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	cases := []struct {
		name string
		req  models.TranslationRequest
	}{
		{"blank key", models.TranslationRequest{Key: "", Locale: "en", Content: "x"}},
		{"blank locale", models.TranslationRequest{Key: "k", Locale: "", Content: "x"}},
		{"blank content", models.TranslationRequest{Key: "k", Locale: "en", Content: ""}},
		{"key too long", models.TranslationRequest{Key: long(256), Locale: "en", Content: "x"}},
		{"locale too long", models.TranslationRequest{Key: "k", Locale: "en-US-ultra", Content: "x"}},
		{"tag too long", models.TranslationRequest{Key: "k", Locale: "en", Content: "x", Tags: []string{long(101)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &tc.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Create(%+v) = %v, want ValidationError", tc.req, err)
			}
		})
	}
}

func TestCreateDuplicateKeyLocale(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	mustCreate(t, svc, "app.title", "en", "Welcome")

	_, err := svc.Create(ctx, &models.TranslationRequest{Key: "app.title", Locale: "en", Content: "Other"})
	if !errors.Is(err, ErrDuplicateKeyLocale) {
		t.Errorf("duplicate Create = %v, want ErrDuplicateKeyLocale", err)
	}

	// Same key in another locale is fine.
	if _, err := svc.Create(ctx, &models.TranslationRequest{Key: "app.title", Locale: "fr", Content: "Bienvenue"}); err != nil {
		t.Errorf("Create with same key, different locale failed: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	created := mustCreate(t, svc, "app.title", "en", "Welcome")

	updated, err := svc.Update(ctx, created.ID, &models.TranslationRequest{
		Key:     "app.title",
		Locale:  "en",
		Content: "Hello",
		Version: &created.Version,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Content != "Hello" {
		t.Errorf("Content = %q, want %q", updated.Content, "Hello")
	}
	if updated.Version != created.Version+1 {
		t.Errorf("Version = %d, want %d", updated.Version, created.Version+1)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Error("CreatedAt must not change on update")
	}
}

func TestUpdateStaleVersionFails(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	created := mustCreate(t, svc, "app.title", "en", "Welcome")

	// First writer wins.
	if _, err := svc.Update(ctx, created.ID, &models.TranslationRequest{
		Key: "app.title", Locale: "en", Content: "Hello", Version: &created.Version,
	}); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	// Second writer still holds version 0 and must lose.
	stale := created.Version
	_, err := svc.Update(ctx, created.ID, &models.TranslationRequest{
		Key: "app.title", Locale: "en", Content: "Howdy", Version: &stale,
	})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Errorf("stale Update = %v, want ErrConcurrentModification", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.Update(context.Background(), "missing", &models.TranslationRequest{
		Key: "k", Locale: "en", Content: "x",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) = %v, want ErrNotFound", err)
	}
}

func TestUpdateIntoCollidingPairFails(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	mustCreate(t, svc, "app.title", "en", "Welcome")
	other := mustCreate(t, svc, "app.subtitle", "en", "Sub")

	_, err := svc.Update(ctx, other.ID, &models.TranslationRequest{
		Key: "app.title", Locale: "en", Content: "Sub", Version: &other.Version,
	})
	if !errors.Is(err, ErrDuplicateKeyLocale) {
		t.Errorf("colliding Update = %v, want ErrDuplicateKeyLocale", err)
	}
}

func TestDeleteKeepsTags(t *testing.T) {
	svc, store, _ := newFixture()
	ctx := context.Background()

	created := mustCreate(t, svc, "app.title", "en", "Welcome", "ui", "error")

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}

	// Tags survive the translation that referenced them.
	for _, name := range []string{"ui", "error"} {
		tag, err := store.FindTagByName(ctx, name)
		if err != nil {
			t.Fatalf("FindTagByName(%s) failed: %v", name, err)
		}
		if tag == nil {
			t.Errorf("tag %q should survive translation delete", name)
		}
	}

	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestGetReadsThroughCache(t *testing.T) {
	svc, store, _ := newFixture()
	ctx := context.Background()

	created := mustCreate(t, svc, "app.title", "en", "Welcome")

	// Populate the cache, then change storage behind the service's back:
	// the cached view must win until invalidated.
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("direct Delete failed: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("cached Get failed: %v", err)
	}
	if got.Content != "Welcome" {
		t.Errorf("cached Content = %q, want %q", got.Content, "Welcome")
	}
}

func TestSearchTagUnion(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	ui := mustCreate(t, svc, "app.button", "en", "Click", "ui")
	errOnly := mustCreate(t, svc, "app.error", "en", "Boom", "error")
	both := mustCreate(t, svc, "app.both", "en", "Both", "ui", "error")
	mustCreate(t, svc, "app.plain", "en", "Plain")

	page, err := svc.Search(ctx, SearchOptions{Tags: []string{"ui", "error"}, Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalElements != 3 {
		t.Fatalf("TotalElements = %d, want 3 (union, not intersection)", page.TotalElements)
	}

	want := map[string]bool{ui.ID: true, errOnly.ID: true, both.ID: true}
	for _, item := range page.Content {
		if !want[item.ID] {
			t.Errorf("unexpected result %s (%s)", item.Key, item.ID)
		}
	}
}

func TestSearchFilters(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	mustCreate(t, svc, "app.title", "en", "Welcome Home")
	mustCreate(t, svc, "app.title", "fr", "Bienvenue")
	mustCreate(t, svc, "nav.menu", "en", "Menu")

	// Key filter is a case-sensitive substring match.
	page, err := svc.Search(ctx, SearchOptions{Key: "app.", Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalElements != 2 {
		t.Errorf("key filter TotalElements = %d, want 2", page.TotalElements)
	}

	if page, _ = svc.Search(ctx, SearchOptions{Key: "APP.", Page: 0, Size: 10}); page.TotalElements != 0 {
		t.Errorf("key filter should be case-sensitive, got %d matches", page.TotalElements)
	}

	// Content filter is case-insensitive.
	page, err = svc.Search(ctx, SearchOptions{Content: "welcome", Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalElements != 1 {
		t.Errorf("content filter TotalElements = %d, want 1", page.TotalElements)
	}

	// Filters combine with AND.
	page, err = svc.Search(ctx, SearchOptions{Key: "app.", Locale: "fr", Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalElements != 1 || page.Content[0].Locale != "fr" {
		t.Errorf("combined filter returned %d items, want the single fr entry", page.TotalElements)
	}
}

func TestSearchPagination(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	for i := 0; i < 45; i++ {
		mustCreate(t, svc, "key."+string(rune('a'+i/26))+string(rune('a'+i%26)), "en", "Content")
	}

	page0, err := svc.Search(ctx, SearchOptions{Locale: "en", Page: 0, Size: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page0.Content) != 20 {
		t.Errorf("page 0 has %d items, want 20", len(page0.Content))
	}
	if page0.TotalElements != 45 {
		t.Errorf("TotalElements = %d, want 45", page0.TotalElements)
	}
	if page0.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", page0.TotalPages)
	}

	page2, err := svc.Search(ctx, SearchOptions{Locale: "en", Page: 2, Size: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page2.Content) != 5 {
		t.Errorf("page 2 has %d items, want 5", len(page2.Content))
	}

	page3, err := svc.Search(ctx, SearchOptions{Locale: "en", Page: 3, Size: 20})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page3.Content) != 0 {
		t.Errorf("page past the end has %d items, want 0", len(page3.Content))
	}
}

func TestSearchValidation(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	cases := []SearchOptions{
		{Page: -1, Size: 20},
		{Page: 0, Size: 0},
		{Page: 0, Size: -5},
		{Page: 0, Size: 20, SortBy: "password"},
		{Page: 0, Size: 20, SortDir: "sideways"},
	}
	for _, opts := range cases {
		_, err := svc.Search(ctx, opts)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Search(%+v) = %v, want ValidationError", opts, err)
		}
	}
}

// The tag-filtered path and the generic path are separate queries; this
// pins down that both honor the same filters so the divergence stays
// observable if either changes.
func TestSearchPathDivergence(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	mustCreate(t, svc, "app.one", "en", "Alpha", "ui")
	mustCreate(t, svc, "app.two", "fr", "Beta", "ui")
	mustCreate(t, svc, "web.three", "en", "Gamma", "ui")

	generic, err := svc.Search(ctx, SearchOptions{Key: "app.", Locale: "en", Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("generic Search failed: %v", err)
	}
	tagged, err := svc.Search(ctx, SearchOptions{Key: "app.", Locale: "en", Tags: []string{"ui"}, Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("tag Search failed: %v", err)
	}

	if generic.TotalElements != 1 || tagged.TotalElements != 1 {
		t.Errorf("generic=%d tagged=%d, want 1 and 1", generic.TotalElements, tagged.TotalElements)
	}
	if generic.Content[0].ID != tagged.Content[0].ID {
		t.Error("both paths should find app.one/en")
	}

	// Unknown tags match nothing, even with otherwise-matching filters.
	none, err := svc.Search(ctx, SearchOptions{Key: "app.", Tags: []string{"nope"}, Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if none.TotalElements != 0 {
		t.Errorf("unknown tag TotalElements = %d, want 0", none.TotalElements)
	}
}

func TestSearchSortAndTieBreak(t *testing.T) {
	svc, store, _ := newFixture()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	first := mustCreate(t, svc, "a.key", "en", "A")
	now = now.Add(time.Minute)
	second := mustCreate(t, svc, "b.key", "en", "B")

	// Default sort: updatedAt descending.
	page, err := svc.Search(ctx, SearchOptions{Locale: "en", Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Content[0].ID != second.ID || page.Content[1].ID != first.ID {
		t.Error("default sort should be updatedAt desc")
	}

	// Explicit key ascending.
	page, err = svc.Search(ctx, SearchOptions{Locale: "en", Page: 0, Size: 10, SortBy: "key", SortDir: "asc"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Content[0].ID != first.ID {
		t.Error("key asc should put a.key first")
	}

	// Equal updatedAt: ascending id breaks the tie deterministically.
	now = now.Add(time.Minute)
	mustCreate(t, svc, "c.key", "fr", "C")
	mustCreate(t, svc, "d.key", "fr", "D")
	page, err = svc.Search(ctx, SearchOptions{Locale: "fr", Page: 0, Size: 10, SortDir: "desc"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.Content[0].ID > page.Content[1].ID {
		t.Error("ties must break by ascending id")
	}
}

func TestExport(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	mustCreate(t, svc, "app.title", "en", "Welcome")
	mustCreate(t, svc, "app.subtitle", "en", "Hello")
	mustCreate(t, svc, "app.title", "fr", "Bienvenue")

	out, err := svc.Export(ctx, "en", nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	want := map[string]string{"app.title": "Welcome", "app.subtitle": "Hello"}
	if len(out) != len(want) {
		t.Fatalf("Export returned %d entries, want %d", len(out), len(want))
	}
	for k, v := range want {
		if out[k] != v {
			t.Errorf("Export[%s] = %q, want %q", k, out[k], v)
		}
	}
}

func TestExportUsesCache(t *testing.T) {
	store := storage.NewMemoryStore()
	counting := &countingStore{TranslationStore: store}
	c := cache.NewMemoryCache()
	svc := NewTranslationService(counting, NewTagRegistry(store), c)
	ctx := context.Background()

	mustCreate(t, svc, "app.title", "en", "Welcome")

	first, err := svc.Export(ctx, "en", nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	second, err := svc.Export(ctx, "en", nil)
	if err != nil {
		t.Fatalf("second Export failed: %v", err)
	}

	if counting.findByLocale != 1 {
		t.Errorf("storage hit %d times, want 1 (second call served from cache)", counting.findByLocale)
	}
	if len(first) != len(second) || first["app.title"] != second["app.title"] {
		t.Error("cached export must be identical to the first result")
	}

	// Any write to the locale invalidates the cached export.
	mustCreate(t, svc, "app.other", "en", "Other")
	third, err := svc.Export(ctx, "en", nil)
	if err != nil {
		t.Fatalf("third Export failed: %v", err)
	}
	if counting.findByLocale != 2 {
		t.Errorf("storage hit %d times after write, want 2", counting.findByLocale)
	}
	if len(third) != 2 {
		t.Errorf("export after write has %d entries, want 2", len(third))
	}
}

func TestExportInvalidationCoversOldLocale(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	created := mustCreate(t, svc, "app.title", "en", "Welcome")
	if out, _ := svc.Export(ctx, "en", nil); len(out) != 1 {
		t.Fatal("expected one en entry before the move")
	}

	// Reassign the locale; the stale en export must not survive.
	if _, err := svc.Update(ctx, created.ID, &models.TranslationRequest{
		Key: "app.title", Locale: "fr", Content: "Bienvenue", Version: &created.Version,
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if out, _ := svc.Export(ctx, "en", nil); len(out) != 0 {
		t.Errorf("en export has %d entries after move, want 0", len(out))
	}
	if out, _ := svc.Export(ctx, "fr", nil); len(out) != 1 {
		t.Errorf("fr export has %d entries after move, want 1", len(out))
	}
}

func TestExportSince(t *testing.T) {
	svc, store, _ := newFixture()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	mustCreate(t, svc, "app.old", "en", "Old") // updated at T-1m relative to the cut
	cut := now.Add(time.Minute)
	now = cut.Add(time.Minute)
	mustCreate(t, svc, "app.new", "en", "New") // updated at T+1m

	out, err := svc.Export(ctx, "en", &cut)
	if err != nil {
		t.Fatalf("Export(since) failed: %v", err)
	}
	if len(out) != 1 || out["app.new"] != "New" {
		t.Errorf("Export(since) = %v, want only app.new", out)
	}

	// The boundary is strict: an entity updated exactly at the cut is out.
	exact := now
	out, err = svc.Export(ctx, "en", &exact)
	if err != nil {
		t.Fatalf("Export(since) failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Export(since=updatedAt) = %v, want empty", out)
	}
}

func TestListLocalesScenario(t *testing.T) {
	svc, store, _ := newFixture()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	mustCreate(t, svc, "app.title.1", "en", "Welcome 1 [app.title.1]")
	now = now.Add(time.Second)
	mustCreate(t, svc, "app.title.1", "fr", "Bienvenue 1 [app.title.1]")

	locales, err := svc.ListLocales(ctx)
	if err != nil {
		t.Fatalf("ListLocales failed: %v", err)
	}
	if len(locales) != 2 || locales[0] != "en" || locales[1] != "fr" {
		t.Errorf("ListLocales = %v, want [en fr]", locales)
	}

	page, err := svc.Search(ctx, SearchOptions{Key: "app.title.1", Page: 0, Size: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if page.TotalElements != 2 {
		t.Fatalf("Search found %d entries, want 2", page.TotalElements)
	}
	// updatedAt desc: the fr entry was written last.
	if page.Content[0].Locale != "fr" || page.Content[1].Locale != "en" {
		t.Errorf("order = [%s %s], want [fr en]", page.Content[0].Locale, page.Content[1].Locale)
	}
}

// countingStore counts FindByLocale hits to make cache behavior observable.
type countingStore struct {
	storage.TranslationStore
	findByLocale int
}

func (s *countingStore) FindByLocale(ctx context.Context, locale string) ([]models.Translation, error) {
	s.findByLocale++
	return s.TranslationStore.FindByLocale(ctx, locale)
}
