package middleware

import (
	"context"
	"log"
	"time"

	"drive-access-service/internal/repository"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

const adminCachePrefix = "drive:admin:"

// RequireAdmin gates a route on the caller being a registered admin. The
// caller identity arrives in X-Admin-ID from the gateway in front of this
// service. Positive lookups are cached in Redis; removals take up to the
// cache TTL to propagate.
func RequireAdmin(admins *repository.AdminRepository, cache *redis.Client, cacheTTL time.Duration) fiber.Handler {
	return func(c fiber.Ctx) error {
		adminID := c.Get("X-Admin-ID")
		if adminID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cacheKey := adminCachePrefix + adminID
		if cache != nil {
			if cached, err := cache.Get(ctx, cacheKey).Result(); err == nil && cached == "1" {
				c.Locals("adminId", adminID)
				return c.Next()
			}
		}

		isAdmin, err := admins.IsAdmin(ctx, adminID)
		if err != nil {
			log.Printf("Admin lookup failed for %s: %v", adminID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify admin",
			})
		}
		if !isAdmin {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if cache != nil {
			if err := cache.Set(ctx, cacheKey, "1", cacheTTL).Err(); err != nil {
				log.Printf("Failed to cache admin lookup for %s: %v", adminID, err)
			}
		}

		c.Locals("adminId", adminID)
		return c.Next()
	}
}

// AdminID returns the caller identity set by RequireAdmin.
func AdminID(c fiber.Ctx) string {
	if id, ok := c.Locals("adminId").(string); ok {
		return id
	}
	return c.Get("X-Admin-ID")
}
