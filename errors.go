package pilot

import (
	"errors"

	"github.com/voocel/pilot/runner"
	"github.com/voocel/pilot/schema"
)

// ErrNoModel is returned by Session.Run when the session was built without
// WithModel.
var ErrNoModel = errors.New("pilot: no model configured")

// ErrGuestUnavailable and ErrMaxTurns mirror the inner sentinels so
// embedders can match them without importing the subpackages.
var (
	ErrGuestUnavailable = schema.ErrGuestUnavailable
	ErrMaxTurns         = runner.ErrMaxTurns
)
