package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"drive-access-service/internal/gateway"
	"drive-access-service/internal/middleware"
	"drive-access-service/internal/models"
	"drive-access-service/internal/repository"
	"drive-access-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type GrantHandler struct {
	grantService *services.GrantService
	grantRepo    *repository.GrantRepository
	bulkTTL      time.Duration
	adminGate    fiber.Handler
}

func NewGrantHandler(grantService *services.GrantService, grantRepo *repository.GrantRepository, bulkTTL time.Duration, adminGate fiber.Handler) *GrantHandler {
	return &GrantHandler{
		grantService: grantService,
		grantRepo:    grantRepo,
		bulkTTL:      bulkTTL,
		adminGate:    adminGate,
	}
}

func (h *GrantHandler) RegisterRoutes(app *fiber.App) {
	// Protected routes group
	protectedGroup := app.Group("/protected/grants", h.adminGate)

	protectedGroup.Post("/", h.CreateGrant)
	protectedGroup.Get("/", h.SearchGrants)
	protectedGroup.Get("/active", h.ListActiveGrants)
	protectedGroup.Get("/expiring", h.ListExpiringGrants)
	protectedGroup.Post("/sweep", h.TriggerSweep)
	protectedGroup.Post("/import", h.BulkImport)
	protectedGroup.Get("/:id", h.GetGrant)
	protectedGroup.Delete("/:id", h.RevokeGrant)
	protectedGroup.Patch("/:id/extend", h.ExtendGrant)
	protectedGroup.Patch("/:id/role", h.ChangeRole)
}

func (h *GrantHandler) CreateGrant(c fiber.Ctx) error {
	var req models.CreateGrantRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	grant, err := h.grantService.CreateGrant(ctx, &req, middleware.AdminID(c))
	if err != nil {
		log.Printf("Failed to create grant: %v", err)

		switch {
		case errors.Is(err, services.ErrInvalidRole),
			errors.Is(err, services.ErrEmptyEmail),
			errors.Is(err, services.ErrEmptyFolder):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, services.ErrAlreadyGranted):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create grant",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Grant created successfully",
		"data": fiber.Map{
			"grant": grant,
		},
	})
}

func (h *GrantHandler) GetGrant(c fiber.Ctx) error {
	grantID := c.Params("id")
	if grantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Grant ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	grant, err := h.grantService.GetGrant(ctx, grantID)
	if err != nil {
		log.Printf("Failed to get grant %s: %v", grantID, err)

		if errors.Is(err, services.ErrGrantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		}
		if isInvalidID(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid grant ID format",
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve grant",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"grant": grant,
		},
	})
}

func (h *GrantHandler) SearchGrants(c fiber.Ctx) error {
	query := &models.GrantSearchQuery{
		Email:    models.NormalizeEmail(c.Query("email")),
		FolderID: c.Query("folderId"),
		Status:   models.GrantStatus(c.Query("status")),
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "pageSize", 20),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grants, total, err := h.grantRepo.Search(ctx, query)
	if err != nil {
		log.Printf("Failed to search grants: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search grants",
		})
	}

	pageCount := int((total + int64(query.PageSize) - 1) / int64(query.PageSize))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": models.GrantSearchResult{
			Grants:      grants,
			TotalCount:  total,
			PageCount:   pageCount,
			CurrentPage: query.Page,
		},
	})
}

func (h *GrantHandler) ListActiveGrants(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grants, err := h.grantService.GetActiveGrants(ctx)
	if err != nil {
		log.Printf("Failed to list active grants: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve active grants",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"grants": grants,
			"count":  len(grants),
		},
	})
}

func (h *GrantHandler) ListExpiringGrants(c fiber.Ctx) error {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid window duration",
			})
		}
		window = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grants, err := h.grantService.GetExpiringGrants(ctx, window)
	if err != nil {
		log.Printf("Failed to list expiring grants: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve expiring grants",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"grants": grants,
			"count":  len(grants),
			"window": window.String(),
		},
	})
}

func (h *GrantHandler) RevokeGrant(c fiber.Ctx) error {
	grantID := c.Params("id")
	if grantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Grant ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := h.grantService.RevokeNow(ctx, grantID, middleware.AdminID(c))
	if err != nil {
		log.Printf("Failed to revoke grant %s: %v", grantID, err)

		switch {
		case errors.Is(err, services.ErrGrantNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		case errors.Is(err, services.ErrNotActive):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Grant is not active",
			})
		case isInvalidID(err):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid grant ID format",
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke grant",
		})
	}

	if outcome != gateway.OutcomeOK {
		// Provider refused the revoke; the grant is parked in
		// revocation_failed for manual follow-up.
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to revoke access at provider; grant marked for manual follow-up",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Grant revoked successfully",
	})
}

func (h *GrantHandler) ExtendGrant(c fiber.Ctx) error {
	grantID := c.Params("id")
	if grantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Grant ID is required",
		})
	}

	var req models.ExtendGrantRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grant, err := h.grantService.Extend(ctx, grantID, req.ExtraSeconds, middleware.AdminID(c))
	if err != nil {
		log.Printf("Failed to extend grant %s: %v", grantID, err)

		switch {
		case errors.Is(err, services.ErrGrantNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		case errors.Is(err, services.ErrNotActive):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Grant is not active",
			})
		case errors.Is(err, services.ErrPermanentGrant):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Grant has no expiry to extend",
			})
		case isInvalidID(err):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid grant ID format",
			})
		}

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Grant extended successfully",
		"data": fiber.Map{
			"grant": grant,
		},
	})
}

func (h *GrantHandler) ChangeRole(c fiber.Ctx) error {
	grantID := c.Params("id")
	if grantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Grant ID is required",
		})
	}

	var req models.ChangeRoleRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	grant, err := h.grantService.ChangeRole(ctx, grantID, req.Role, middleware.AdminID(c))
	if err != nil {
		log.Printf("Failed to change role on grant %s: %v", grantID, err)

		switch {
		case errors.Is(err, services.ErrInvalidRole):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, services.ErrGrantNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		case errors.Is(err, services.ErrNotActive):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Grant is not active",
			})
		case isInvalidID(err):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid grant ID format",
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to change role",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role changed successfully",
		"data": fiber.Map{
			"grant": grant,
		},
	})
}

func (h *GrantHandler) TriggerSweep(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := h.grantService.RunSweepOnce(ctx)
	if err != nil {
		log.Printf("Manual sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Sweep failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Sweep completed",
		"data": fiber.Map{
			"report": report,
		},
	})
}

func (h *GrantHandler) BulkImport(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := h.grantService.BulkImport(ctx, h.bulkTTL, middleware.AdminID(c))
	if err != nil {
		log.Printf("Bulk import failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Bulk import failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Bulk import completed",
		"data": fiber.Map{
			"report": report,
		},
	})
}

func isInvalidID(err error) bool {
	return strings.Contains(err.Error(), "invalid grant ID format")
}

func parseIntQuery(c fiber.Ctx, key string, defaultValue int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}
