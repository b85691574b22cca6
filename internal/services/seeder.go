package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/localehub/translation-management-backend/internal/cache"
	"github.com/localehub/translation-management-backend/internal/models"
	"github.com/localehub/translation-management-backend/internal/storage"
)

// MaxSeedCount caps a single seeding run (per locale).
const MaxSeedCount = 100000

const seedBatchSize = 1000

var (
	seedLocales    = []string{"en", "fr", "es", "de", "it", "pt", "ru", "zh", "ja", "ko"}
	seedContexts   = []string{"mobile", "desktop", "web", "api", "email", "sms", "push"}
	seedCategories = []string{"ui", "validation", "error", "success", "navigation", "form", "button"}

	seedKeyPrefixes = []string{"app", "common", "auth", "user", "product", "order", "payment", "notification"}
	seedKeySuffixes = []string{"title", "label", "message", "error", "success", "warning", "info", "placeholder"}

	seedWords = map[string][]string{
		"en": {"Welcome", "Login", "Error occurred", "Success", "Loading", "Save", "Cancel", "Delete"},
		"fr": {"Bienvenue", "Connexion", "Erreur survenue", "Succès", "Chargement", "Sauvegarder", "Annuler", "Supprimer"},
		"es": {"Bienvenido", "Iniciar sesión", "Error ocurrido", "Éxito", "Cargando", "Guardar", "Cancelar", "Eliminar"},
		"de": {"Willkommen", "Anmelden", "Fehler aufgetreten", "Erfolg", "Laden", "Speichern", "Abbrechen", "Löschen"},
		"it": {"Benvenuto", "Accedi", "Errore verificato", "Successo", "Caricamento", "Salva", "Annulla", "Elimina"},
	}
)

// DataSeeder fills the catalog with generated translations for load and
// integration testing. It is a throughput utility: rows are written in
// batches, and instead of per-key invalidation the export partition is
// cleared wholesale once the run finishes (the seeder only ever inserts
// fresh (key, locale) pairs, so the per-entity partition stays valid).
type DataSeeder struct {
	store storage.Store
	cache cache.Cache
}

func NewDataSeeder(store storage.Store, c cache.Cache) *DataSeeder {
	return &DataSeeder{store: store, cache: c}
}

// Seed creates the default accounts and tag set, then recordCount keys
// across the built-in locale set, skipping (key, locale) pairs that already
// exist. Returns the number of translations inserted.
func (s *DataSeeder) Seed(ctx context.Context, recordCount int) (int, error) {
	if recordCount <= 0 || recordCount > MaxSeedCount {
		return 0, newValidationError("count", fmt.Sprintf("must be between 1 and %d", MaxSeedCount))
	}

	if err := s.createDefaultUsers(ctx); err != nil {
		return 0, err
	}
	if err := s.createTags(ctx); err != nil {
		return 0, err
	}

	processed, err := s.createTranslations(ctx, recordCount)
	if processed > 0 {
		// A bulk insert touches many locales at once; drop every cached
		// export rather than enumerating them.
		if cerr := s.cache.Clear(cache.PartitionTranslationExport); cerr != nil {
			log.Printf("seeder: export cache clear failed: %v", cerr)
		}
	}
	return processed, err
}

func (s *DataSeeder) createDefaultUsers(ctx context.Context) error {
	defaults := []struct {
		name, email, password, role string
	}{
		{"System Administrator", "admin@example.com", "admin123", models.RoleAdmin},
		{"Test User", "user@example.com", "user123", models.RoleUser},
	}

	for _, d := range defaults {
		existing, err := s.store.FindUserByEmail(ctx, d.email)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(d.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = s.store.SaveUser(ctx, &models.User{
			Name:     d.name,
			Email:    d.email,
			Password: string(hashed),
			Role:     d.role,
		})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return err
		}
	}
	return nil
}

func (s *DataSeeder) createTags(ctx context.Context) error {
	var tags []models.Tag
	for _, name := range seedContexts {
		exists, err := s.store.ExistsTagByName(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			tags = append(tags, models.Tag{Name: name, Description: "Context tag for " + name})
		}
	}
	for _, name := range seedCategories {
		exists, err := s.store.ExistsTagByName(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			tags = append(tags, models.Tag{Name: name, Description: "Category tag for " + name})
		}
	}

	if len(tags) == 0 {
		return nil
	}
	_, err := s.store.SaveTags(ctx, tags)
	return err
}

func (s *DataSeeder) createTranslations(ctx context.Context, recordCount int) (int, error) {
	allTags, err := s.store.AllTags(ctx)
	if err != nil {
		return 0, err
	}

	var batch []models.Translation
	processed := 0

	for i := 1; i <= recordCount; i++ {
		for _, locale := range seedLocales {
			key := generateKey(i)
			exists, err := s.store.ExistsByKeyLocale(ctx, key, locale)
			if err != nil {
				return processed, err
			}
			if exists {
				continue
			}

			batch = append(batch, models.Translation{
				Key:     key,
				Locale:  locale,
				Content: generateContent(key, locale, i),
				Tags:    randomTags(allTags, 1+rand.Intn(3)),
			})
			processed++

			if len(batch) >= seedBatchSize {
				if err := s.store.InsertBatch(ctx, batch); err != nil {
					return processed, err
				}
				batch = batch[:0]
				log.Printf("seeder: processed %d translations", processed)
			}
		}
	}

	if len(batch) > 0 {
		if err := s.store.InsertBatch(ctx, batch); err != nil {
			return processed, err
		}
	}
	log.Printf("seeder: completed, %d translations created", processed)
	return processed, nil
}

func generateKey(index int) string {
	prefix := seedKeyPrefixes[rand.Intn(len(seedKeyPrefixes))]
	suffix := seedKeySuffixes[rand.Intn(len(seedKeySuffixes))]
	return fmt.Sprintf("%s.%s.%d", prefix, suffix, index)
}

func generateContent(key, locale string, index int) string {
	words, ok := seedWords[locale]
	if !ok {
		words = seedWords["en"]
	}
	return fmt.Sprintf("%s %d [%s]", words[rand.Intn(len(words))], index, key)
}

func randomTags(pool []models.Tag, count int) []models.Tag {
	if len(pool) == 0 {
		return nil
	}
	picked := make(map[string]bool, count)
	var tags []models.Tag
	for i := 0; i < count; i++ {
		tag := pool[rand.Intn(len(pool))]
		if picked[tag.ID] {
			continue
		}
		picked[tag.ID] = true
		tags = append(tags, tag)
	}
	return tags
}
