package event

import "drive-access-service/internal/models"

const (
	EventTypeGrantCreated     = "grant.created"
	EventTypeGrantRevoked     = "grant.revoked"
	EventTypeGrantExtended    = "grant.extended"
	EventTypeGrantExpiring    = "grant.expiring"
	EventTypeGrantRoleChanged = "grant.role_changed"
	EventTypeGrantAlert       = "grant.alert"
	EventTypeBulkImported     = "grant.bulk_imported"
	EventTypeDailyDigest      = "digest.daily"
)

type GrantEvent struct {
	EventID    string             `json:"eventId"`
	EventType  string             `json:"eventType"`
	GrantID    string             `json:"grantId,omitempty"`
	Email      string             `json:"email,omitempty"`
	FolderID   string             `json:"folderId,omitempty"`
	FolderName string             `json:"folderName,omitempty"`
	Role       models.GrantRole   `json:"role,omitempty"`
	Status     models.GrantStatus `json:"status,omitempty"`
	ExpiresAt  int64              `json:"expiresAt,omitempty"`
	AdminID    string             `json:"adminId,omitempty"`
	Message    string             `json:"message,omitempty"`
	Timestamp  int64              `json:"timestamp"`
}

type DigestEvent struct {
	EventID      string           `json:"eventId"`
	EventType    string           `json:"eventType"`
	Date         string           `json:"date"`
	ActionCounts map[string]int64 `json:"actionCounts"`
	TotalActions int64            `json:"totalActions"`
	ActiveGrants int64            `json:"activeGrants"`
	Timestamp    int64            `json:"timestamp"`
}

type BulkImportEvent struct {
	EventID   string                   `json:"eventId"`
	EventType string                   `json:"eventType"`
	Report    *models.BulkImportReport `json:"report"`
	AdminID   string                   `json:"adminId,omitempty"`
	Timestamp int64                    `json:"timestamp"`
}
