package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID generates a prefixed unique ID for documents and events.
// Outbox messages are keyed by event id, so the full UUID is kept.
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
