package models

import (
	"strings"

	"git.home.luguber.info/inful/recreate-skps/internal/foundation/normalization"
)

// RunKind selects which branch of the recipe a run takes.
type RunKind string

const (
	// KindCanary captures only: no partner bucket, no credential, no upload.
	KindCanary RunKind = "canary"
	// KindFull captures for the partner bucket and uploads the result.
	KindFull RunKind = "full"
)

// CanaryMarker is the builder name fragment that selects a canary run.
const CanaryMarker = "Canary"

var runKindNormalizer = normalization.NewNormalizer(map[string]RunKind{
	"canary": KindCanary,
	"full":   KindFull,
}, "")

// ClassifyBuilder derives the run kind from a builder name. Any name that
// contains "Canary" (case-sensitive) is a canary run.
func ClassifyBuilder(builder string) RunKind {
	if strings.Contains(builder, CanaryMarker) {
		return KindCanary
	}
	return KindFull
}

// ParseRunKind parses an explicit kind given on the command line.
func ParseRunKind(raw string) (RunKind, error) {
	return runKindNormalizer.Parse(raw)
}

// ResolveRunKind returns the explicit kind when set, otherwise the kind derived from builder.
func ResolveRunKind(explicit, builder string) (RunKind, error) {
	if strings.TrimSpace(explicit) == "" {
		return ClassifyBuilder(builder), nil
	}
	return ParseRunKind(explicit)
}

// Uploads reports whether the kind ends with an upload.
func (k RunKind) Uploads() bool { return k == KindFull }

func (k RunKind) String() string { return string(k) }
