package nats

import (
	"fmt"
	"strings"
)

// SubjectFor maps an event type like MODE_SWITCHED to events.mode.switched
func SubjectFor(eventType string) string {
	return fmt.Sprintf("events.%s", strings.ReplaceAll(strings.ToLower(eventType), "_", "."))
}
