package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"drive-access-service/internal/config"
	"drive-access-service/internal/models"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderQuery = "mimeType = 'application/vnd.google-apps.folder' and trashed = false"

// DriveGateway wraps the Google Drive permission API. Every call goes
// through a counting semaphore and a token-bucket limiter, bounded by a
// per-call timeout.
type DriveGateway struct {
	service     *drive.Service
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	callTimeout time.Duration
}

func NewDriveGateway(ctx context.Context, cfg *config.DriveConfig) (*DriveGateway, error) {
	if cfg.CredentialsJSON == "" {
		return nil, fmt.Errorf("GOOGLE_CREDENTIALS is not set")
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Drive credentials: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to build Drive service: %w", err)
	}

	return NewDriveGatewayWithService(service, cfg), nil
}

func NewDriveGatewayWithService(service *drive.Service, cfg *config.DriveConfig) *DriveGateway {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}

	return &DriveGateway{
		service:     service,
		sem:         semaphore.NewWeighted(concurrency),
		limiter:     rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), int(concurrency)),
		callTimeout: callTimeout,
	}
}

// throttled runs fn behind the concurrency gate and rate limiter, bounded
// by the per-call timeout.
func (g *DriveGateway) throttled(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	return fn(callCtx)
}

// apiRole translates the tracked role to the Drive permission role.
func apiRole(role models.GrantRole) string {
	if role == models.GrantRoleEditor {
		return "writer"
	}
	return "reader"
}

// Grant shares a folder with an email. It lists current permissions first;
// re-granting an existing permission reports already_exists.
func (g *DriveGateway) Grant(ctx context.Context, folderID, email string, role models.GrantRole) (Outcome, error) {
	perms, err := g.ListPermissions(ctx, folderID)
	if err != nil {
		return OutcomeFailure, err
	}
	for _, perm := range perms {
		if models.NormalizeEmail(perm.Email) == models.NormalizeEmail(email) {
			return OutcomeAlreadyExists, nil
		}
	}

	permission := &drive.Permission{
		Type:         "user",
		Role:         apiRole(role),
		EmailAddress: email,
	}

	err = g.throttled(ctx, func(ctx context.Context) error {
		_, err := g.service.Permissions.Create(folderID, permission).
			Fields("id").
			SendNotificationEmail(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		log.Printf("Drive grant failed for %s on %s: %v", email, folderID, err)
		return outcomeFromError(err), err
	}
	return OutcomeOK, nil
}

// Revoke removes an email's permission from a folder. The permission ID is
// resolved through a listing first. A principal with no permission, or a
// 404 on delete, reports not_found.
func (g *DriveGateway) Revoke(ctx context.Context, folderID, email string) (Outcome, error) {
	target, outcome, err := g.findPermission(ctx, folderID, email)
	if err != nil {
		return outcome, err
	}
	if target == nil {
		return OutcomeNotFound, nil
	}

	err = g.throttled(ctx, func(ctx context.Context) error {
		return g.service.Permissions.Delete(folderID, target.ID).Context(ctx).Do()
	})
	if err != nil {
		outcome := outcomeFromError(err)
		if outcome != OutcomeNotFound {
			log.Printf("Drive revoke failed for %s on %s: %v", email, folderID, err)
			return outcome, err
		}
		return OutcomeNotFound, nil
	}
	return OutcomeOK, nil
}

// ChangeRole updates an existing permission to a new role.
func (g *DriveGateway) ChangeRole(ctx context.Context, folderID, email string, newRole models.GrantRole) (Outcome, error) {
	target, outcome, err := g.findPermission(ctx, folderID, email)
	if err != nil {
		return outcome, err
	}
	if target == nil {
		return OutcomeNotFound, nil
	}

	err = g.throttled(ctx, func(ctx context.Context) error {
		_, err := g.service.Permissions.Update(folderID, target.ID, &drive.Permission{Role: apiRole(newRole)}).
			Fields("id,role").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		log.Printf("Drive role change failed for %s on %s: %v", email, folderID, err)
		return outcomeFromError(err), err
	}
	return OutcomeOK, nil
}

func (g *DriveGateway) ListPermissions(ctx context.Context, folderID string) ([]models.Permission, error) {
	var permissions []models.Permission
	pageToken := ""

	for {
		var result *drive.PermissionList
		err := g.throttled(ctx, func(ctx context.Context) error {
			call := g.service.Permissions.List(folderID).
				Fields("nextPageToken, permissions(id, role, type, emailAddress, displayName)").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			result, callErr = call.Do()
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list permissions for %s: %w", folderID, err)
		}

		for _, p := range result.Permissions {
			permissions = append(permissions, models.Permission{
				ID:          p.Id,
				Role:        p.Role,
				Type:        p.Type,
				Email:       p.EmailAddress,
				DisplayName: p.DisplayName,
			})
		}

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	return permissions, nil
}

func (g *DriveGateway) ListFolders(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	pageToken := ""

	for {
		var result *drive.FileList
		err := g.throttled(ctx, func(ctx context.Context) error {
			call := g.service.Files.List().
				Q(folderQuery).
				PageSize(100).
				Fields("nextPageToken, files(id, name)").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var callErr error
			result, callErr = call.Do()
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", err)
		}

		for _, f := range result.Files {
			folders = append(folders, models.Folder{ID: f.Id, Name: f.Name})
		}

		if result.NextPageToken == "" {
			break
		}
		pageToken = result.NextPageToken
	}

	return folders, nil
}

func (g *DriveGateway) findPermission(ctx context.Context, folderID, email string) (*models.Permission, Outcome, error) {
	perms, err := g.ListPermissions(ctx, folderID)
	if err != nil {
		if outcomeFromError(err) == OutcomeNotFound {
			// Folder itself is gone; nothing left to revoke.
			return nil, OutcomeNotFound, nil
		}
		return nil, OutcomeFailure, err
	}

	normalized := models.NormalizeEmail(email)
	for i := range perms {
		if models.NormalizeEmail(perms[i].Email) == normalized {
			return &perms[i], OutcomeOK, nil
		}
	}
	return nil, OutcomeNotFound, nil
}
