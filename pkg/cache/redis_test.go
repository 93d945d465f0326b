package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "timetable:snapshot:H1", Key("timetable:", "snapshot", "H1"))
	assert.Equal(t, "snapshot:H2", Key("", "snapshot", " ", "H2"))
}
