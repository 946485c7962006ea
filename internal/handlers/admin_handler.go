package handlers

import (
	"context"
	"log"
	"time"

	"drive-access-service/internal/middleware"
	"drive-access-service/internal/models"
	"drive-access-service/internal/repository"

	"github.com/gofiber/fiber/v3"
)

type AdminHandler struct {
	adminRepo *repository.AdminRepository
	auditRepo *repository.AuditRepository
	adminGate fiber.Handler
}

func NewAdminHandler(adminRepo *repository.AdminRepository, auditRepo *repository.AuditRepository, adminGate fiber.Handler) *AdminHandler {
	return &AdminHandler{
		adminRepo: adminRepo,
		auditRepo: auditRepo,
		adminGate: adminGate,
	}
}

func (h *AdminHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/admins", h.adminGate)

	protectedGroup.Post("/", h.AddAdmin)
	protectedGroup.Get("/", h.ListAdmins)
	protectedGroup.Delete("/:userId", h.RemoveAdmin)

	logsGroup := app.Group("/protected/logs", h.adminGate)

	logsGroup.Get("/", h.ListLogs)
	logsGroup.Delete("/", h.ClearLogs)
}

func (h *AdminHandler) AddAdmin(c fiber.Ctx) error {
	var req models.AddAdminRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	added, err := h.adminRepo.Add(ctx, req.UserID, req.Name)
	if err != nil {
		log.Printf("Failed to add admin %s: %v", req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add admin",
		})
	}
	if !added {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Admin already exists",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Admin added successfully",
	})
}

func (h *AdminHandler) ListAdmins(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	admins, err := h.adminRepo.List(ctx)
	if err != nil {
		log.Printf("Failed to list admins: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve admins",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"admins": admins,
			"count":  len(admins),
		},
	})
}

func (h *AdminHandler) RemoveAdmin(c fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}
	if userID == middleware.AdminID(c) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot remove yourself",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	removed, err := h.adminRepo.Remove(ctx, userID)
	if err != nil {
		log.Printf("Failed to remove admin %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove admin",
		})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Admin not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Admin removed successfully",
	})
}

func (h *AdminHandler) ListLogs(c fiber.Ctx) error {
	action := c.Query("action")
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "pageSize", 20)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, total, err := h.auditRepo.List(ctx, action, page, pageSize)
	if err != nil {
		log.Printf("Failed to list audit logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve logs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"logs":        entries,
			"totalCount":  total,
			"currentPage": page,
		},
	})
}

func (h *AdminHandler) ClearLogs(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.auditRepo.ClearAll(ctx); err != nil {
		log.Printf("Failed to clear audit logs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear logs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logs cleared successfully",
	})
}
