package cache

import "github.com/google/uuid"

const namespace = "kafkaops:"

// RunKey holds the JSON encoding of a finished run.
func RunKey(runID uuid.UUID) string {
	return namespace + "run:" + runID.String()
}

// RunStatusKey holds a run's latest status string.
func RunStatusKey(runID uuid.UUID) string {
	return RunKey(runID) + ":status"
}

// RateLimitKey holds the per-key request counter for the current window.
func RateLimitKey(keyPrefix string) string {
	return namespace + "ratelimit:" + keyPrefix
}
