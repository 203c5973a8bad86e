package things

import (
	"errors"
	"strconv"

	"collection-mapper/core/equivalency"
	"collection-mapper/core/logger"
	"collection-mapper/core/persist"
	"collection-mapper/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for things.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the things routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/things")
	group.Get("/", h.HandleList)
	group.Get("/:id", h.HandleGet)
	group.Put("/", h.HandleUpsert)
	group.Post("/sync", h.HandleSync)
}

// HandleList returns every stored thing.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	items, err := h.service.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(items)
}

// HandleGet returns one thing by ID.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	thing, err := h.service.Get(c.Context(), uint(id))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(thing)
}

// HandleUpsert stores one document. It answers 201 when a thing was created
// and 200 when an existing one was updated.
func (h *Handler) HandleUpsert(c *fiber.Ctx) error {
	var dto ThingDTO
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	thing, outcome, err := h.service.Upsert(c.Context(), dto)
	if err != nil {
		return h.fail(c, err)
	}

	status := fiber.StatusOK
	if outcome == persist.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"outcome": outcome.String(),
		"thing":   thing,
	})
}

// HandleSync mirrors the posted documents into storage. With ?dry_run=true
// only the plan is returned. The body must be a JSON array; [] removes
// every thing.
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	var dtos []ThingDTO
	if err := c.BodyParser(&dtos); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	report, err := h.service.Sync(c.Context(), dtos, c.QueryBool("dry_run"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidThing):
		status = fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, reconcile.ErrStalePlan):
		status = fiber.StatusConflict
	case equivalency.IsNotRegistered(err):
		status = fiber.StatusNotImplemented
	}

	if status == fiber.StatusInternalServerError {
		logger.WithRayID(h.service.logger, c).Error("Things request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
