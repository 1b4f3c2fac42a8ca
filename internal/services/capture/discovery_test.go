package capture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStableIDFallsBackToNodePath(t *testing.T) {
	assert.Equal(t, "video99", StableID("/dev/video99"))
}

func TestStableIDSynthesizedWhenPathUnusable(t *testing.T) {
	id := StableID("")
	assert.True(t, strings.HasPrefix(id, "camera-"))
	assert.NotEqual(t, id, StableID(""))
}
