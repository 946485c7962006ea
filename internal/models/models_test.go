package models

import "testing"

func TestGrantStatusIsTerminal(t *testing.T) {
	testCases := []struct {
		status GrantStatus
		want   bool
	}{
		{GrantStatusActive, false},
		{GrantStatusExpired, true},
		{GrantStatusRevoked, true},
		{GrantStatusRevocationFailed, true},
		{GrantStatus("unknown"), false},
	}

	for _, tc := range testCases {
		if got := tc.status.IsTerminal(); got != tc.want {
			t.Errorf("IsTerminal(%s): expected %v, got %v", tc.status, tc.want, got)
		}
	}
}

func TestGrantRoleValid(t *testing.T) {
	if !GrantRoleViewer.Valid() || !GrantRoleEditor.Valid() {
		t.Error("Expected viewer and editor to be valid roles")
	}
	if GrantRole("owner").Valid() {
		t.Error("Expected owner to be invalid")
	}
	if GrantRole("").Valid() {
		t.Error("Expected empty role to be invalid")
	}
}

func TestGrantIsPermanent(t *testing.T) {
	permanent := &Grant{Role: GrantRoleEditor}
	if !permanent.IsPermanent() {
		t.Error("Expected grant without expiry to be permanent")
	}

	timed := &Grant{ExpiresAt: 1}
	if timed.IsPermanent() {
		t.Error("Expected grant with expiry to not be permanent")
	}
}

func TestNormalizeEmail(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range testCases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
