package handlers

import (
	"context"
	"log"
	"time"

	"drive-access-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type FolderHandler struct {
	folderService *services.FolderService
	adminGate     fiber.Handler
}

func NewFolderHandler(folderService *services.FolderService, adminGate fiber.Handler) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		adminGate:     adminGate,
	}
}

func (h *FolderHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/folders", h.adminGate)

	protectedGroup.Get("/", h.ListFolders)
	protectedGroup.Get("/:id/permissions", h.ListPermissions)
}

func (h *FolderHandler) ListFolders(c fiber.Ctx) error {
	forceRefresh := c.Query("refresh") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	folders, err := h.folderService.ListFolders(ctx, forceRefresh)
	if err != nil {
		log.Printf("Failed to list folders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve folders",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"folders": folders,
			"count":   len(folders),
		},
	})
}

func (h *FolderHandler) ListPermissions(c fiber.Ctx) error {
	folderID := c.Params("id")
	if folderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Folder ID is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	permissions, err := h.folderService.ListPermissions(ctx, folderID)
	if err != nil {
		log.Printf("Failed to list permissions for folder %s: %v", folderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve permissions",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"folderId":    folderID,
			"permissions": permissions,
			"count":       len(permissions),
		},
	})
}
