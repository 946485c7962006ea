package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Enums and Constants
type GrantStatus string

const (
	GrantStatusActive           GrantStatus = "active"
	GrantStatusExpired          GrantStatus = "expired"
	GrantStatusRevoked          GrantStatus = "revoked"
	GrantStatusRevocationFailed GrantStatus = "revocation_failed"
)

// IsTerminal reports whether no further status transition is defined.
func (s GrantStatus) IsTerminal() bool {
	switch s {
	case GrantStatusExpired, GrantStatusRevoked, GrantStatusRevocationFailed:
		return true
	}
	return false
}

type GrantRole string

const (
	GrantRoleViewer GrantRole = "viewer"
	GrantRoleEditor GrantRole = "editor"
)

func (r GrantRole) Valid() bool {
	return r == GrantRoleViewer || r == GrantRoleEditor
}

// Core Models
type Grant struct {
	ID         bson.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email      string        `json:"email" bson:"email"`
	FolderID   string        `json:"folderId" bson:"folderId"`
	FolderName string        `json:"folderName,omitempty" bson:"folderName,omitempty"`
	Role       GrantRole     `json:"role" bson:"role"`
	GrantedBy  string        `json:"grantedBy,omitempty" bson:"grantedBy,omitempty"`
	GrantedAt  int64         `json:"grantedAt" bson:"grantedAt"`
	// ExpiresAt of zero means the grant is permanent.
	ExpiresAt int64       `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	Status    GrantStatus `json:"status" bson:"status"`
	RevokedAt int64       `json:"revokedAt,omitempty" bson:"revokedAt,omitempty"`
	ExpiredAt int64       `json:"expiredAt,omitempty" bson:"expiredAt,omitempty"`
	FailedAt  int64       `json:"failedAt,omitempty" bson:"failedAt,omitempty"`
	WarnedAt  int64       `json:"warnedAt,omitempty" bson:"warnedAt,omitempty"`
	Metadata  Metadata    `json:"metadata" bson:"metadata"`
}

// IsPermanent reports whether the grant has no expiry.
func (g *Grant) IsPermanent() bool {
	return g.ExpiresAt == 0
}

type Metadata struct {
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

type Admin struct {
	ID      bson.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID  string        `json:"userId" bson:"userId"`
	Name    string        `json:"name" bson:"name"`
	AddedAt int64         `json:"addedAt" bson:"addedAt"`
}

type AuditEntry struct {
	ID        bson.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	AdminID   string         `json:"adminId" bson:"adminId"`
	AdminName string         `json:"adminName,omitempty" bson:"adminName,omitempty"`
	Action    string         `json:"action" bson:"action"`
	Details   map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp int64          `json:"timestamp" bson:"timestamp"`
	IsDeleted bool           `json:"isDeleted,omitempty" bson:"isDeleted,omitempty"`
}

// Audit actions
const (
	AuditActionGrant      = "grant"
	AuditActionRevoke     = "revoke"
	AuditActionAutoRevoke = "auto_revoke"
	AuditActionExtend     = "extend"
	AuditActionRoleChange = "role_change"
	AuditActionBulkImport = "bulk_import"
	AuditActionAlert      = "alert"
)

// Folder is a Drive folder as seen by the permission provider.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Permission is a provider-side permission entry. The provider identifies
// permissions by its own internal ID; email is how the service resolves them.
type Permission struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Type        string `json:"type"`
	Email       string `json:"emailAddress,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// SweepReport summarises one execution of the expiry sweep.
type SweepReport struct {
	Processed int `json:"processed"`
	Revoked   int `json:"revoked"`
	Failed    int `json:"failed"`
}

// BulkImportReport summarises one bulk import run over all Drive folders.
type BulkImportReport struct {
	FoldersScanned int `json:"foldersScanned"`
	Imported       int `json:"imported"`
	Skipped        int `json:"skipped"`
	Errors         int `json:"errors"`
}

// DTOs and Requests
type CreateGrantRequest struct {
	Email      string    `json:"email"`
	FolderID   string    `json:"folderId"`
	FolderName string    `json:"folderName"`
	Role       GrantRole `json:"role"`
	TTLSeconds int64     `json:"ttlSeconds"`
}

type ExtendGrantRequest struct {
	ExtraSeconds int64 `json:"extraSeconds"`
}

type ChangeRoleRequest struct {
	Role GrantRole `json:"role"`
}

type AddAdminRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type GrantSearchQuery struct {
	Email    string      `query:"email"`
	FolderID string      `query:"folderId"`
	Status   GrantStatus `query:"status"`
	Page     int         `query:"page"`
	PageSize int         `query:"pageSize"`
}

type GrantSearchResult struct {
	Grants      []*Grant `json:"grants"`
	TotalCount  int64    `json:"totalCount"`
	PageCount   int      `json:"pageCount"`
	CurrentPage int      `json:"currentPage"`
}

// NormalizeEmail lower-cases and trims a principal email. Identity of a
// grant's principal is the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
