package gateway

import (
	"errors"

	"google.golang.org/api/googleapi"
)

// Outcome is the result vocabulary for provider calls. Provider-specific
// errors never leave this package; callers branch on the outcome instead.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeFailure       Outcome = "failure"
)

// outcomeFromError maps a Drive API error to an Outcome. A 404 means the
// target permission or file is gone, which callers treat as the desired end
// state on revoke. Everything else, including timeouts and rate limiting,
// is a plain failure.
func outcomeFromError(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return OutcomeNotFound
	}
	return OutcomeFailure
}
