package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	assert.Contains(t, Short(), AppName)
	assert.Contains(t, Short(), Version)
}

func TestDetailed(t *testing.T) {
	assert.Contains(t, Detailed(), runtime.GOOS)
	assert.Contains(t, Detailed(), runtime.Version())
}
