package domain

import "errors"

// Error kinds shared by the registry, synthesizer and orchestrator. Callers
// match them with errors.Is.
var (
	ErrSourceUnavailable     = errors.New("source unavailable")
	ErrConfigParse           = errors.New("config parse error")
	ErrDiscoveryFailed       = errors.New("discovery failed")
	ErrBuildFailed           = errors.New("build failed")
	ErrCreateFailed          = errors.New("create failed")
	ErrStartFailed           = errors.New("start failed")
	ErrRecordFailed          = errors.New("registry update failed")
	ErrStopFailed            = errors.New("stop failed")
	ErrReloadFailed          = errors.New("reload failed")
	ErrCancelled             = errors.New("cancelled")
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrNotFound              = errors.New("not found")
	ErrAmbiguousID           = errors.New("ambiguous container id")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)
