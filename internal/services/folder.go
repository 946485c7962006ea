package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"drive-access-service/internal/models"

	"github.com/redis/go-redis/v9"
)

const folderCacheKey = "drive:folders"

// FolderService lists Drive folders through the gateway with a Redis cache
// in front.
type FolderService struct {
	gateway PermissionGateway
	cache   *redis.Client
	ttl     time.Duration
}

func NewFolderService(gw PermissionGateway, cache *redis.Client, ttl time.Duration) *FolderService {
	return &FolderService{
		gateway: gw,
		cache:   cache,
		ttl:     ttl,
	}
}

// ListFolders returns all folders visible to the service account.
// forceRefresh bypasses and repopulates the cache.
func (s *FolderService) ListFolders(ctx context.Context, forceRefresh bool) ([]models.Folder, error) {
	if !forceRefresh && s.cache != nil {
		if data, err := s.cache.Get(ctx, folderCacheKey).Result(); err == nil {
			var folders []models.Folder
			if err := json.Unmarshal([]byte(data), &folders); err == nil {
				return folders, nil
			}
			log.Printf("Failed to decode cached folder list, refetching: %v", err)
		}
	}

	folders, err := s.gateway.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(folders); err == nil {
			if err := s.cache.Set(ctx, folderCacheKey, data, s.ttl).Err(); err != nil {
				log.Printf("Failed to cache folder list: %v", err)
			}
		}
	}

	return folders, nil
}

// ListPermissions returns the live provider permissions on one folder.
// Permissions are never cached.
func (s *FolderService) ListPermissions(ctx context.Context, folderID string) ([]models.Permission, error) {
	if folderID == "" {
		return nil, ErrEmptyFolder
	}
	return s.gateway.ListPermissions(ctx, folderID)
}
