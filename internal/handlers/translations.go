package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localehub/translation-management-backend/internal/models"
	"github.com/localehub/translation-management-backend/internal/services"
	"github.com/localehub/translation-management-backend/utils"
)

// TranslationHandler exposes the translation catalog over HTTP.
type TranslationHandler struct {
	service *services.TranslationService
}

func NewTranslationHandler(service *services.TranslationService) *TranslationHandler {
	return &TranslationHandler{service: service}
}

func (h *TranslationHandler) Create(c *fiber.Ctx) error {
	var req models.TranslationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	created, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *TranslationHandler) Update(c *fiber.Ctx) error {
	var req models.TranslationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	updated, err := h.service.Update(c.Context(), c.Params("id"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(updated)
}

func (h *TranslationHandler) Get(c *fiber.Ctx) error {
	t, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(t)
}

func (h *TranslationHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TranslationHandler) Search(c *fiber.Ctx) error {
	page, err := strconv.Atoi(c.Query("page", "0"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid page parameter")
	}
	size, err := strconv.Atoi(c.Query("size", "20"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid size parameter")
	}

	opts := services.SearchOptions{
		Key:     c.Query("key"),
		Locale:  c.Query("locale"),
		Content: c.Query("content"),
		Tags:    queryList(c, "tags"),
		Page:    page,
		Size:    size,
		SortBy:  c.Query("sortBy", "updatedAt"),
		SortDir: c.Query("sortDir", "desc"),
	}

	result, err := h.service.Search(c.Context(), opts)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(result)
}

func (h *TranslationHandler) Export(c *fiber.Ctx) error {
	var since *time.Time
	if raw := c.Query("lastUpdate"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "lastUpdate must be an ISO-8601 timestamp")
		}
		since = &parsed
	}

	out, err := h.service.Export(c.Context(), c.Params("locale"), since)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(out)
}

func (h *TranslationHandler) Locales(c *fiber.Ctx) error {
	locales, err := h.service.ListLocales(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	if locales == nil {
		locales = []string{}
	}
	return c.JSON(locales)
}

// queryList collects a repeatable query parameter, also splitting
// comma-separated values ("tags=ui,error" and "tags=ui&tags=error" are
// equivalent).
func queryList(c *fiber.Ctx, name string) []string {
	var values []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(name) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

// serviceError maps the service taxonomy onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateKeyLocale),
		errors.Is(err, services.ErrConcurrentModification),
		errors.Is(err, services.ErrTagConflict):
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error())
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error")
}

// ErrorHandler is the app-level Fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
