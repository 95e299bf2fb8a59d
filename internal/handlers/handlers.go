package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iamgideonidoko/persona/internal/catalog"
	"github.com/iamgideonidoko/persona/internal/models"
	"github.com/iamgideonidoko/persona/internal/repository"
	"github.com/iamgideonidoko/persona/internal/services"
	"github.com/iamgideonidoko/persona/pkg/cache"
	"github.com/iamgideonidoko/persona/pkg/logger"
)

type Handler struct {
	fingerprints *services.FingerprintService
	validations  *services.ValidationService
	catalogs     *services.CatalogService
	cache        *cache.Cache
}

func NewHandler(
	fingerprints *services.FingerprintService,
	validations *services.ValidationService,
	catalogs *services.CatalogService,
	cache *cache.Cache,
) *Handler {
	return &Handler{
		fingerprints: fingerprints,
		validations:  validations,
		catalogs:     catalogs,
		cache:        cache,
	}
}

// GenerateProfile handles POST /v1/profiles/generate.
func (h *Handler) GenerateProfile(c *fiber.Ctx) error {
	requestID := uuid.New().String()
	log := logger.WithField("request_id", requestID)

	var req models.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Failed to parse request body", map[string]any{
			"error": err.Error(),
		})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "Invalid request body",
			"request_id": requestID,
		})
	}

	profile, err := h.fingerprints.Generate(c.Context(), req)
	if err != nil {
		var cycleErr *services.CycleError
		switch {
		case errors.As(err, &cycleErr):
			log.Warn("Generation aborted on dependency cycle", map[string]any{
				"trait": cycleErr.Key,
			})
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":      err.Error(),
				"request_id": requestID,
			})
		case errors.Is(err, repository.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":      "Meta-profile not found",
				"request_id": requestID,
			})
		}
		log.Error("Generation failed", map[string]any{"error": err.Error()})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      err.Error(),
			"request_id": requestID,
		})
	}

	log.Info("Generation successful", map[string]any{
		"profile_id": profile.ID.String(),
	})
	return c.Status(fiber.StatusCreated).JSON(profile)
}

// GetProfile handles GET /v1/profiles/:id.
func (h *Handler) GetProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid profile ID",
		})
	}

	profile, err := h.fingerprints.GetProfile(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Profile not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch profile",
		})
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

// CompileProfile handles POST /v1/profiles/:id/compile.
func (h *Handler) CompileProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid profile ID",
		})
	}

	profile, err := h.fingerprints.GetProfile(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Profile not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch profile",
		})
	}

	if err := h.fingerprints.EnsureCompiled(c.Context(), profile); err != nil {
		logger.Error("Compilation failed", map[string]any{
			"profile_id": id.String(), "error": err.Error(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compile profile",
		})
	}

	return c.Status(fiber.StatusOK).JSON(profile)
}

// ValidateProfile handles POST /v1/profiles/:id/validate.
func (h *Handler) ValidateProfile(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid profile ID",
		})
	}

	report, err := h.validations.ValidateProfile(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Profile not found",
			})
		}
		logger.Error("Validation failed", map[string]any{
			"profile_id": id.String(), "error": err.Error(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate profile",
		})
	}

	return c.Status(fiber.StatusOK).JSON(report)
}

// GetReports handles GET /v1/profiles/:id/reports.
func (h *Handler) GetReports(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid profile ID",
		})
	}

	limit := c.QueryInt("limit", 50)
	reports, err := h.validations.Reports(c.Context(), id, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch reports",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"reports": reports,
	})
}

// ValidateTraits handles POST /v1/traits/validate.
func (h *Handler) ValidateTraits(c *fiber.Ctx) error {
	var req models.TraitMapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	snapshot, err := h.catalogs.Snapshot(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Catalog unavailable",
		})
	}

	result := services.NewResolver(snapshot).Validate(req.Traits)
	return c.Status(fiber.StatusOK).JSON(result)
}

// ResolveTraits handles POST /v1/traits/resolve: a resolution-order preview
// with dependency fixes applied, without generating anything.
func (h *Handler) ResolveTraits(c *fiber.Ctx) error {
	var req models.TraitMapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	snapshot, err := h.catalogs.Snapshot(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Catalog unavailable",
		})
	}

	resolver := services.NewResolver(snapshot)
	traits := req.Traits.Clone()
	resolver.ApplyDependencyFixes(traits)

	order, err := resolver.ResolveOrder(traits)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"order":     order,
		"traits":    traits,
		"conflicts": resolver.DetectConflicts(traits),
	})
}

// ImportCatalog handles POST /v1/catalog/import.
func (h *Handler) ImportCatalog(c *fiber.Ctx) error {
	mode := services.ImportMode(c.Query("mode", string(services.ImportModeMerge)))

	doc, err := catalog.ParseDocument(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.catalogs.Import(c.Context(), doc, mode); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":          "imported",
		"mode":            string(mode),
		"catalog_version": doc.CatalogVersion,
	})
}

// ExportCatalog handles GET /v1/catalog/export.
func (h *Handler) ExportCatalog(c *fiber.Ctx) error {
	doc, err := h.catalogs.Export(c.Context())
	if err != nil {
		logger.Error("Catalog export failed", map[string]any{"error": err.Error()})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export catalog",
		})
	}

	data, err := doc.Marshal()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to serialize catalog",
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Status(fiber.StatusOK).Send(data)
}

// Health handles GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "healthy",
		"service": "persona-api",
	})
}

// Metrics handles GET /metrics.
func (h *Handler) Metrics(c *fiber.Ctx) error {
	ctx := c.Context()

	generated, _ := h.cache.GetMetric(ctx, "profiles_generated")
	validated, _ := h.cache.GetMetric(ctx, "validations_run")
	cacheHits, _ := h.cache.GetMetric(ctx, "cache_hits")

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"profiles_generated": generated,
		"validations_run":    validated,
		"cache_hits":         cacheHits,
	})
}
