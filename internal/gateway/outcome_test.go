package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"drive-access-service/internal/models"

	"google.golang.org/api/googleapi"
)

func TestOutcomeFromError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil error", nil, OutcomeOK},
		{"404 means gone", &googleapi.Error{Code: 404}, OutcomeNotFound},
		{"wrapped 404", fmt.Errorf("delete permission: %w", &googleapi.Error{Code: 404}), OutcomeNotFound},
		{"403 is a failure", &googleapi.Error{Code: 403}, OutcomeFailure},
		{"500 is a failure", &googleapi.Error{Code: 500}, OutcomeFailure},
		{"timeout is a failure", context.DeadlineExceeded, OutcomeFailure},
		{"plain error is a failure", errors.New("connection reset"), OutcomeFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := outcomeFromError(tc.err); got != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestApiRole(t *testing.T) {
	if got := apiRole(models.GrantRoleEditor); got != "writer" {
		t.Errorf("Expected writer, got %s", got)
	}
	if got := apiRole(models.GrantRoleViewer); got != "reader" {
		t.Errorf("Expected reader, got %s", got)
	}
	// Unknown roles degrade to the least privilege.
	if got := apiRole("owner"); got != "reader" {
		t.Errorf("Expected reader for unknown role, got %s", got)
	}
}
