package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevision(t *testing.T) {
	clean := []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}, {Key: "vcs.modified", Value: "false"}}
	dirty := []debug.BuildSetting{{Key: "vcs.modified", Value: "true"}, {Key: "vcs.revision", Value: "0123456789abcdef"}}
	assert.Equal(t, "0123456", revision(clean))
	assert.Equal(t, "0123456-dirty", revision(dirty))
	assert.Equal(t, "", revision(nil))
	assert.Equal(t, "abc", revision([]debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}))
}
