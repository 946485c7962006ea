package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"drive-access-service/internal/event"
	"drive-access-service/internal/gateway"
	"drive-access-service/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrEmptyEmail     = errors.New("email is required")
	ErrEmptyFolder    = errors.New("folder id is required")
	ErrAlreadyGranted = errors.New("a live permission already exists for this email and folder")
	ErrGrantNotFound  = errors.New("grant not found")
	ErrNotActive      = errors.New("grant is not active")
	ErrPermanentGrant = errors.New("grant has no expiry")
)

// GrantStore is the slice of the grant repository the lifecycle operates
// through.
type GrantStore interface {
	Insert(ctx context.Context, grant *models.Grant) (*models.Grant, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Grant, error)
	FindExpired(ctx context.Context, now int64) ([]*models.Grant, error)
	FindActive(ctx context.Context, now int64) ([]*models.Grant, error)
	FindExpiringWithin(ctx context.Context, now int64, window time.Duration) ([]*models.Grant, error)
	MarkTerminal(ctx context.Context, id bson.ObjectID, status models.GrantStatus, at int64) error
	Extend(ctx context.Context, id bson.ObjectID, extraSeconds int64) error
	UpdateRole(ctx context.Context, id bson.ObjectID, role models.GrantRole, clearExpiry bool) error
	MarkWarned(ctx context.Context, id bson.ObjectID, at int64) error
	CountActive(ctx context.Context, now int64) (int64, error)
}

// PermissionGateway is the provider adapter the lifecycle revokes and
// grants through.
type PermissionGateway interface {
	Grant(ctx context.Context, folderID, email string, role models.GrantRole) (gateway.Outcome, error)
	Revoke(ctx context.Context, folderID, email string) (gateway.Outcome, error)
	ChangeRole(ctx context.Context, folderID, email string, newRole models.GrantRole) (gateway.Outcome, error)
	ListPermissions(ctx context.Context, folderID string) ([]models.Permission, error)
	ListFolders(ctx context.Context) ([]models.Folder, error)
}

type AuditLog interface {
	Log(ctx context.Context, adminID, adminName, action string, details map[string]any) error
	CountByActionSince(ctx context.Context, since int64) (map[string]int64, error)
}

type GrantService struct {
	store     GrantStore
	gateway   PermissionGateway
	audit     AuditLog
	publisher event.Publisher
	now       func() int64
}

func NewGrantService(store GrantStore, gw PermissionGateway, audit AuditLog, publisher event.Publisher) *GrantService {
	return &GrantService{
		store:     store,
		gateway:   gw,
		audit:     audit,
		publisher: publisher,
		now:       func() int64 { return time.Now().Unix() },
	}
}

// CreateGrant shares a folder with an email and records the grant. Editor
// grants are always permanent; any TTL supplied for an editor is dropped.
// Creation is refused when the provider already has a permission for the
// email on the folder.
func (s *GrantService) CreateGrant(ctx context.Context, req *models.CreateGrantRequest, adminID string) (*models.Grant, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, ErrEmptyEmail
	}
	if req.FolderID == "" {
		return nil, ErrEmptyFolder
	}

	ttl := req.TTLSeconds
	if req.Role == models.GrantRoleEditor {
		ttl = 0
	}

	perms, err := s.gateway.ListPermissions(ctx, req.FolderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing permissions: %w", err)
	}
	for _, perm := range perms {
		if models.NormalizeEmail(perm.Email) == email {
			return nil, ErrAlreadyGranted
		}
	}

	outcome, err := s.gateway.Grant(ctx, req.FolderID, email, req.Role)
	switch outcome {
	case gateway.OutcomeOK:
	case gateway.OutcomeAlreadyExists:
		return nil, ErrAlreadyGranted
	default:
		return nil, fmt.Errorf("failed to grant access at provider: %w", err)
	}

	now := s.now()
	grant := &models.Grant{
		Email:      email,
		FolderID:   req.FolderID,
		FolderName: req.FolderName,
		Role:       req.Role,
		GrantedBy:  adminID,
		GrantedAt:  now,
	}
	if ttl > 0 {
		grant.ExpiresAt = now + ttl
	}

	created, err := s.store.Insert(ctx, grant)
	if err != nil {
		return nil, fmt.Errorf("failed to record grant: %w", err)
	}

	s.logAction(ctx, adminID, models.AuditActionGrant, map[string]any{
		"email":      created.Email,
		"folderName": created.FolderName,
		"role":       created.Role,
		"expiresAt":  created.ExpiresAt,
	})
	s.notifyGrant(&event.GrantEvent{
		EventType:  event.EventTypeGrantCreated,
		GrantID:    created.ID.Hex(),
		Email:      created.Email,
		FolderID:   created.FolderID,
		FolderName: created.FolderName,
		Role:       created.Role,
		Status:     created.Status,
		ExpiresAt:  created.ExpiresAt,
		AdminID:    adminID,
	})

	return created, nil
}

func (s *GrantService) GetGrant(ctx context.Context, grantID string) (*models.Grant, error) {
	objectID, err := bson.ObjectIDFromHex(grantID)
	if err != nil {
		return nil, fmt.Errorf("invalid grant ID format: %w", err)
	}

	grant, err := s.store.FindByID(ctx, objectID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	return grant, nil
}

func (s *GrantService) GetActiveGrants(ctx context.Context) ([]*models.Grant, error) {
	return s.store.FindActive(ctx, s.now())
}

func (s *GrantService) GetExpiringGrants(ctx context.Context, window time.Duration) ([]*models.Grant, error) {
	return s.store.FindExpiringWithin(ctx, s.now(), window)
}

// RevokeNow is the operator-triggered revoke. The provider permission must
// be gone, or already absent, before the record leaves the active state.
func (s *GrantService) RevokeNow(ctx context.Context, grantID, adminID string) (gateway.Outcome, error) {
	grant, err := s.GetGrant(ctx, grantID)
	if err != nil {
		return gateway.OutcomeFailure, err
	}
	if grant.Status.IsTerminal() {
		return gateway.OutcomeFailure, ErrNotActive
	}

	now := s.now()
	outcome := s.revokeAtProvider(ctx, grant)

	if outcome == gateway.OutcomeOK || outcome == gateway.OutcomeNotFound {
		if err := s.store.MarkTerminal(ctx, grant.ID, models.GrantStatusRevoked, now); err != nil {
			return gateway.OutcomeFailure, fmt.Errorf("revoked at provider but failed to update record: %w", err)
		}
		s.logAction(ctx, adminID, models.AuditActionRevoke, map[string]any{
			"email":      grant.Email,
			"folderName": grant.FolderName,
		})
		s.notifyGrant(&event.GrantEvent{
			EventType:  event.EventTypeGrantRevoked,
			GrantID:    grant.ID.Hex(),
			Email:      grant.Email,
			FolderID:   grant.FolderID,
			FolderName: grant.FolderName,
			Status:     models.GrantStatusRevoked,
			AdminID:    adminID,
		})
		return gateway.OutcomeOK, nil
	}

	s.failGrant(ctx, grant, now, adminID)
	return gateway.OutcomeFailure, nil
}

// Extend adds seconds to an active timed grant's expiry. Terminal grants
// and permanent grants are rejected; the state never changes.
func (s *GrantService) Extend(ctx context.Context, grantID string, extraSeconds int64, adminID string) (*models.Grant, error) {
	if extraSeconds <= 0 {
		return nil, fmt.Errorf("extraSeconds must be positive")
	}

	grant, err := s.GetGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if grant.Status.IsTerminal() {
		return nil, ErrNotActive
	}
	if grant.IsPermanent() {
		return nil, ErrPermanentGrant
	}

	if err := s.store.Extend(ctx, grant.ID, extraSeconds); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotActive
		}
		return nil, fmt.Errorf("failed to extend grant: %w", err)
	}

	s.logAction(ctx, adminID, models.AuditActionExtend, map[string]any{
		"email":        grant.Email,
		"folderName":   grant.FolderName,
		"extraSeconds": extraSeconds,
	})
	s.notifyGrant(&event.GrantEvent{
		EventType:  event.EventTypeGrantExtended,
		GrantID:    grant.ID.Hex(),
		Email:      grant.Email,
		FolderID:   grant.FolderID,
		FolderName: grant.FolderName,
		Role:       grant.Role,
		Status:     models.GrantStatusActive,
		ExpiresAt:  grant.ExpiresAt + extraSeconds,
		AdminID:    adminID,
	})

	return s.GetGrant(ctx, grantID)
}

// ChangeRole updates the provider permission and the tracked record.
// Promotion to editor makes the grant permanent, matching the rule that
// editors never expire.
func (s *GrantService) ChangeRole(ctx context.Context, grantID string, newRole models.GrantRole, adminID string) (*models.Grant, error) {
	if !newRole.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, newRole)
	}

	grant, err := s.GetGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if grant.Status.IsTerminal() {
		return nil, ErrNotActive
	}

	outcome, err := s.gateway.ChangeRole(ctx, grant.FolderID, grant.Email, newRole)
	switch outcome {
	case gateway.OutcomeOK:
	case gateway.OutcomeNotFound:
		return nil, fmt.Errorf("no live permission for %s on %s", grant.Email, grant.FolderID)
	default:
		return nil, fmt.Errorf("failed to change role at provider: %w", err)
	}

	clearExpiry := newRole == models.GrantRoleEditor
	if err := s.store.UpdateRole(ctx, grant.ID, newRole, clearExpiry); err != nil {
		return nil, fmt.Errorf("failed to update grant role: %w", err)
	}

	s.logAction(ctx, adminID, models.AuditActionRoleChange, map[string]any{
		"email":      grant.Email,
		"folderName": grant.FolderName,
		"newRole":    newRole,
	})
	s.notifyGrant(&event.GrantEvent{
		EventType:  event.EventTypeGrantRoleChanged,
		GrantID:    grant.ID.Hex(),
		Email:      grant.Email,
		FolderID:   grant.FolderID,
		FolderName: grant.FolderName,
		Role:       newRole,
		Status:     models.GrantStatusActive,
		AdminID:    adminID,
	})

	return s.GetGrant(ctx, grantID)
}

// RunSweepOnce finds grants past expiry and revokes each one independently.
// A failed candidate is marked revocation_failed and alerted on, not retried.
// Candidate failures never abort the loop.
func (s *GrantService) RunSweepOnce(ctx context.Context) (*models.SweepReport, error) {
	now := s.now()
	candidates, err := s.store.FindExpired(ctx, now)
	if err != nil {
		// Transient store failure: the next tick is the retry.
		return nil, fmt.Errorf("failed to load expired grants: %w", err)
	}

	report := &models.SweepReport{}
	for _, grant := range candidates {
		report.Processed++
		if s.sweepOne(ctx, grant, now) {
			report.Revoked++
		} else {
			report.Failed++
		}
	}

	if report.Processed > 0 {
		log.Printf("Expiry sweep: processed=%d revoked=%d failed=%d", report.Processed, report.Revoked, report.Failed)
	}
	return report, nil
}

func (s *GrantService) sweepOne(ctx context.Context, grant *models.Grant, now int64) bool {
	outcome := s.revokeAtProvider(ctx, grant)

	if outcome == gateway.OutcomeOK || outcome == gateway.OutcomeNotFound {
		if err := s.store.MarkTerminal(ctx, grant.ID, models.GrantStatusExpired, now); err != nil {
			// Record still active; the next sweep picks it up again.
			log.Printf("Failed to mark grant %s expired: %v", grant.ID.Hex(), err)
			return false
		}
		s.logAction(ctx, "", models.AuditActionAutoRevoke, map[string]any{
			"email":      grant.Email,
			"folderName": grant.FolderName,
		})
		s.notifyGrant(&event.GrantEvent{
			EventType:  event.EventTypeGrantRevoked,
			GrantID:    grant.ID.Hex(),
			Email:      grant.Email,
			FolderID:   grant.FolderID,
			FolderName: grant.FolderName,
			Status:     models.GrantStatusExpired,
		})
		return true
	}

	s.failGrant(ctx, grant, now, "")
	return false
}

// revokeAtProvider calls the gateway with a panic guard. A panic counts as
// a failed revoke.
func (s *GrantService) revokeAtProvider(ctx context.Context, grant *models.Grant) (outcome gateway.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic revoking grant %s (%s on %s): %v", grant.ID.Hex(), grant.Email, grant.FolderID, r)
			outcome = gateway.OutcomeFailure
		}
	}()

	outcome, err := s.gateway.Revoke(ctx, grant.FolderID, grant.Email)
	if err != nil && outcome == gateway.OutcomeFailure {
		log.Printf("Revoke failed for grant %s (%s on %s): %v", grant.ID.Hex(), grant.Email, grant.FolderID, err)
	}
	return outcome
}

// failGrant moves a grant to revocation_failed and raises an alert. The
// state is terminal; cleanup is manual.
func (s *GrantService) failGrant(ctx context.Context, grant *models.Grant, now int64, adminID string) {
	if err := s.store.MarkTerminal(ctx, grant.ID, models.GrantStatusRevocationFailed, now); err != nil {
		log.Printf("Failed to mark grant %s revocation_failed: %v", grant.ID.Hex(), err)
		return
	}

	message := fmt.Sprintf("Failed to revoke access for %s on %s (%s); manual follow-up required",
		grant.Email, grant.FolderName, grant.FolderID)
	s.logAction(ctx, adminID, models.AuditActionAlert, map[string]any{
		"email":      grant.Email,
		"folderId":   grant.FolderID,
		"folderName": grant.FolderName,
		"message":    message,
	})
	s.notifyGrant(&event.GrantEvent{
		EventType:  event.EventTypeGrantAlert,
		GrantID:    grant.ID.Hex(),
		Email:      grant.Email,
		FolderID:   grant.FolderID,
		FolderName: grant.FolderName,
		Status:     models.GrantStatusRevocationFailed,
		Message:    message,
	})
}

// RunWarningPass notifies about grants entering the warning window. Each
// grant is warned once; extending a grant re-arms its warning.
func (s *GrantService) RunWarningPass(ctx context.Context, window time.Duration) (int, error) {
	now := s.now()
	candidates, err := s.store.FindExpiringWithin(ctx, now, window)
	if err != nil {
		return 0, fmt.Errorf("failed to load expiring grants: %w", err)
	}

	warned := 0
	for _, grant := range candidates {
		s.notifyGrant(&event.GrantEvent{
			EventType:  event.EventTypeGrantExpiring,
			GrantID:    grant.ID.Hex(),
			Email:      grant.Email,
			FolderID:   grant.FolderID,
			FolderName: grant.FolderName,
			Role:       grant.Role,
			Status:     grant.Status,
			ExpiresAt:  grant.ExpiresAt,
		})
		if err := s.store.MarkWarned(ctx, grant.ID, now); err != nil {
			log.Printf("Failed to mark grant %s warned: %v", grant.ID.Hex(), err)
			continue
		}
		warned++
	}

	return warned, nil
}

// RunDailyDigest publishes a summary of the last 24 hours of activity.
// Nothing is published on a quiet day.
func (s *GrantService) RunDailyDigest(ctx context.Context) error {
	now := s.now()
	counts, err := s.audit.CountByActionSince(ctx, now-86400)
	if err != nil {
		return fmt.Errorf("failed to load digest counts: %w", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	if total == 0 {
		return nil
	}

	active, err := s.store.CountActive(ctx, now)
	if err != nil {
		log.Printf("Failed to count active grants for digest: %v", err)
	}

	digest := &event.DigestEvent{
		EventID:      uuid.NewString(),
		EventType:    event.EventTypeDailyDigest,
		Date:         time.Unix(now, 0).UTC().Format("2006-01-02"),
		ActionCounts: counts,
		TotalActions: total,
		ActiveGrants: active,
		Timestamp:    now,
	}
	if err := s.publisher.PublishDigestEvent(digest); err != nil {
		log.Printf("Failed to publish daily digest: %v", err)
	}
	return nil
}

// BulkImport walks every Drive folder and records a timed grant for each
// viewer permission not tracked yet, so pre-existing shares gain an expiry.
// Per-folder errors are counted and skipped.
func (s *GrantService) BulkImport(ctx context.Context, defaultTTL time.Duration, adminID string) (*models.BulkImportReport, error) {
	folders, err := s.gateway.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	now := s.now()
	active, err := s.store.FindActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracked grants: %w", err)
	}

	tracked := make(map[string]bool, len(active))
	for _, grant := range active {
		tracked[grant.Email+":"+grant.FolderID] = true
	}

	report := &models.BulkImportReport{FoldersScanned: len(folders)}
	for _, folder := range folders {
		perms, err := s.gateway.ListPermissions(ctx, folder.ID)
		if err != nil {
			log.Printf("Bulk import: failed to scan folder %s (%s): %v", folder.Name, folder.ID, err)
			report.Errors++
			continue
		}

		for _, perm := range perms {
			if perm.Role == "owner" || perm.Role == "writer" {
				continue
			}
			email := models.NormalizeEmail(perm.Email)
			if email == "" {
				continue
			}

			key := email + ":" + folder.ID
			if tracked[key] {
				report.Skipped++
				continue
			}

			grant := &models.Grant{
				Email:      email,
				FolderID:   folder.ID,
				FolderName: folder.Name,
				Role:       models.GrantRoleViewer,
				GrantedBy:  adminID,
				GrantedAt:  now,
				ExpiresAt:  now + int64(defaultTTL.Seconds()),
			}
			if _, err := s.store.Insert(ctx, grant); err != nil {
				log.Printf("Bulk import: failed to record grant for %s on %s: %v", email, folder.ID, err)
				report.Errors++
				continue
			}
			tracked[key] = true
			report.Imported++
		}
	}

	s.logAction(ctx, adminID, models.AuditActionBulkImport, map[string]any{
		"imported":       report.Imported,
		"skipped":        report.Skipped,
		"errors":         report.Errors,
		"foldersScanned": report.FoldersScanned,
	})
	if err := s.publisher.PublishBulkImportEvent(&event.BulkImportEvent{
		EventID:   uuid.NewString(),
		EventType: event.EventTypeBulkImported,
		Report:    report,
		AdminID:   adminID,
		Timestamp: now,
	}); err != nil {
		log.Printf("Failed to publish bulk import event: %v", err)
	}

	return report, nil
}

// logAction records an audit entry; audit failures never affect the caller.
func (s *GrantService) logAction(ctx context.Context, adminID, action string, details map[string]any) {
	if err := s.audit.Log(ctx, adminID, "", action, details); err != nil {
		log.Printf("Failed to write audit entry %s: %v", action, err)
	}
}

// notifyGrant publishes a grant event. Publish failures are logged and
// dropped.
func (s *GrantService) notifyGrant(e *event.GrantEvent) {
	e.EventID = uuid.NewString()
	if e.Timestamp == 0 {
		e.Timestamp = s.now()
	}
	if err := s.publisher.PublishGrantEvent(e); err != nil {
		log.Printf("Failed to publish %s event: %v", e.EventType, err)
	}
}
