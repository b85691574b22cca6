package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/localehub/translation-management-backend/internal/services"
	"github.com/localehub/translation-management-backend/internal/storage"
	"github.com/localehub/translation-management-backend/utils"
)

// AdminHandler serves the admin-only endpoints: aggregate stats and the
// test-data seeder.
type AdminHandler struct {
	store  storage.Store
	seeder *services.DataSeeder
}

func NewAdminHandler(store storage.Store, seeder *services.DataSeeder) *AdminHandler {
	return &AdminHandler{store: store, seeder: seeder}
}

// Stats returns aggregate counts for the dashboard, including a per-locale
// translation breakdown.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	ctx := c.Context()

	users, err := h.store.CountUsers(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count users")
	}
	translations, err := h.store.Count(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count translations")
	}
	tags, err := h.store.CountTags(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count tags")
	}

	locales, err := h.store.DistinctLocales(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list locales")
	}
	byLocale := make(map[string]int64, len(locales))
	for _, locale := range locales {
		n, err := h.store.CountByLocale(ctx, locale)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count translations")
		}
		byLocale[locale] = n
	}

	return c.JSON(fiber.Map{
		"stats": fiber.Map{
			"totalUsers":           users,
			"totalTranslations":    translations,
			"totalTags":            tags,
			"translationsByLocale": byLocale,
		},
	})
}

// Seed fills the catalog with generated test data, capped per run.
func (h *AdminHandler) Seed(c *fiber.Ctx) error {
	count, err := strconv.Atoi(c.Params("count"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid count parameter")
	}

	processed, err := h.seeder.Seed(c.Context(), count)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, verr.Error())
		}
		if errors.Is(err, storage.ErrDuplicateKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Seeding collided with existing data")
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Seeding failed")
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Database seeded with %d translations (%d records per locale requested)", processed, count),
	})
}
