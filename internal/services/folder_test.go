package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"drive-access-service/internal/models"
)

func TestFolderServiceListFolders(t *testing.T) {
	gw := newFakeGateway()
	gw.folders = []models.Folder{
		{ID: "f1", Name: "Reports"},
		{ID: "f2", Name: "Archive"},
	}

	// No Redis client wired: every call goes straight to the gateway.
	svc := NewFolderService(gw, nil, 10*time.Minute)

	folders, err := svc.ListFolders(context.Background(), false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(folders) != 2 {
		t.Errorf("Expected 2 folders, got %d", len(folders))
	}

	gw.foldersErr = errors.New("provider unavailable")
	if _, err := svc.ListFolders(context.Background(), false); err == nil {
		t.Fatal("Expected error when the provider is unavailable")
	}
}

func TestFolderServiceListPermissions(t *testing.T) {
	gw := newFakeGateway()
	gw.permissions["f1"] = []models.Permission{
		{ID: "p1", Email: "user@example.com", Role: "reader"},
	}
	svc := NewFolderService(gw, nil, 10*time.Minute)

	perms, err := svc.ListPermissions(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(perms) != 1 {
		t.Errorf("Expected 1 permission, got %d", len(perms))
	}

	if _, err := svc.ListPermissions(context.Background(), ""); !errors.Is(err, ErrEmptyFolder) {
		t.Fatalf("Expected ErrEmptyFolder, got %v", err)
	}
}
