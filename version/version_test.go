package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestShortTruncatesCommit(t *testing.T) {
	assert.Equal(t, "0123456", Info{CommitHash: "0123456789abcdef"}.Short())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}

func TestString(t *testing.T) {
	s := Info{Version: "v1.2.0", CommitHash: "0123456789", BuildTime: "2024-04-01", GoVersion: "go1.24.6", Platform: "linux/amd64"}.String()
	assert.Equal(t, "sakura v1.2.0 (commit 0123456, built 2024-04-01, go1.24.6 linux/amd64)", s)
}
