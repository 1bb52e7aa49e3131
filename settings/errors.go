package settings

import "errors"

// ErrConfigLoad indicates that the settings file is absent or could not be parsed.
var ErrConfigLoad = errors.New("failed to load settings")

// ErrPersist indicates that the settings could not be written to disk.
// The in-memory settings are left as they were before the failed mutation.
var ErrPersist = errors.New("failed to persist settings")
