package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "events.mode.switched", SubjectFor("MODE_SWITCHED"))
	assert.Equal(t, "events.ping", SubjectFor("PING"))
}
