package errors

import (
	"github.com/pkg/errors"
)

var (
	ErrDealNotFound    = errors.New("deal not found")
	ErrContactNotFound = errors.New("contact not found")
	ErrThreadNotFound  = errors.New("thread not found")

	ErrMissingMessageID = errors.New("message id is required")
	ErrAlreadyProcessed = errors.New("email already processed")
	ErrStaleEmail       = errors.New("email is older than the staleness window")
	ErrNotIntakeEmail   = errors.New("email is not addressed to the intake alias")

	ErrConnectionTimeout = errors.New("connection timeout")
)
