package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate })

	Version = "v1.2.3"
	GitCommit = "0123456789abcdef"
	BuildDate = "2026-01-02"

	info := Get()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "0123456", info.ShortCommit())
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Equal(t,
		"v1.2.3 (commit: 0123456, built: 2026-01-02, "+runtime.Version()+" "+info.Platform+")",
		info.String())

	GitCommit = "unknown"
	assert.Equal(t, "unknown", Get().ShortCommit())
}
