package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUsesLinkedVersion(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "v1.4.0"
	info := Get()
	assert.Equal(t, "v1.4.0", info.Version)
	assert.Contains(t, info.String(), "godal version v1.4.0")
}

func TestFullString(t *testing.T) {
	info := Info{Version: "v1.0.0", Revision: "abc123", Modified: true, BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.24.1", Platform: "linux/amd64"}
	assert.Equal(t, "godal version v1.0.0 (linux/amd64 go1.24.1)\nRevision: abc123 (modified)\nBuilt: 2026-01-02T03:04:05Z", info.FullString())
	assert.NotEmpty(t, Get().Version)
}
