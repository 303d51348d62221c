package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReportsUnknownForUnsetFields(t *testing.T) {
	Version, BuildDate, Commit = "", "", ""
	info := Get()
	assert.Equal(t, "unknown", info.Version)
	assert.Equal(t, "unknown", info.Commit)
	assert.Equal(t, "unknown", info.BuildDate)
}

func TestGetReportsInjectedFields(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, BuildDate
	defer func() { Version, Commit, BuildDate = oldVersion, oldCommit, oldDate }()

	Version, Commit, BuildDate = "v1.2.3", "abc123", "2026-01-01"
	info := Get()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "2026-01-01", info.BuildDate)
}

func TestStringIncludesAllFields(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, BuildDate
	defer func() { Version, Commit, BuildDate = oldVersion, oldCommit, oldDate }()

	Version, Commit, BuildDate = "v1.2.3", "abc123", "2026-01-01"
	assert.Contains(t, String(), "v1.2.3")
	assert.Contains(t, String(), "abc123")
	assert.Contains(t, String(), "2026-01-01")
}
