package model

import (
	"errors"

	"expensechat/internal/log"
)

// Loaded is the outcome of loading an artifact: either present or absent.
// Absence is a normal steady state, not an error.
type Loaded struct {
	artifact *Artifact
}

// Absent returns a Loaded with no artifact.
func Absent() Loaded { return Loaded{} }

// Present wraps a ready artifact.
func Present(a *Artifact) Loaded { return Loaded{artifact: a} }

// Get returns the artifact and whether one is present.
func (l Loaded) Get() (*Artifact, bool) {
	return l.artifact, l.artifact != nil
}

// Load opens the artifact at dir and never fails: a missing artifact is
// logged at info, a corrupt one at warn, and both yield Absent.
func Load(dir string, logger *log.Logger) Loaded {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentModel)
	if dir == "" {
		logger.Info("No model path configured, using keyword rules")
		return Absent()
	}

	a, err := Open(dir)
	switch {
	case errors.Is(err, ErrArtifactNotFound):
		logger.Info("Model artifact not found, using keyword rules", "path", dir)
		return Absent()
	case err != nil:
		logger.Warn("Model artifact unreadable, using keyword rules", "path", dir, "error", err)
		return Absent()
	}

	logger.Info("Model artifact loaded", "path", dir, "labels", a.Labels())
	return Present(a)
}
