package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetInfo(t *testing.T) {
	orig := [4]string{Version, BuildTime, GitCommit, GoVersion}
	t.Cleanup(func() {
		Version, BuildTime, GitCommit, GoVersion = orig[0], orig[1], orig[2], orig[3]
	})

	SetInfo("1.2.0", "2026-01-01T00:00:00Z", "abc123", "go1.26")

	assert.Equal(t, "1.2.0", Version)
	assert.Equal(t, "2026-01-01T00:00:00Z", BuildTime)
	assert.Equal(t, "abc123", GitCommit)
	assert.Equal(t, "go1.26", GoVersion)
	assert.Equal(t, "tgpurge 1.2.0 (commit abc123, built 2026-01-01T00:00:00Z, go1.26)", String())
}

func TestSetInfo_EmptyKeepsCurrent(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	SetInfo("", "", "", "")
	assert.Equal(t, orig, Version)
}
