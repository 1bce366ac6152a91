package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in       string
		wantKind VersionKind
		wantCode int64
	}{
		{"v1.0", VersionRelease, 10000},
		{"v2.0", VersionRelease, 20000},
		{"v3.12.5", VersionRelease, 31205},
		{"v10.2", VersionRelease, 100200},
		{"2X14", VersionBeta, 2014},
		{"3X1", VersionBeta, 3001},
		{"@project-version@", VersionDev, -1},
		{"", VersionInvalid, 0},
		{"1.2.3", VersionInvalid, 0},
		{"v1", VersionInvalid, 0},
		{"v1.2.3.4", VersionInvalid, 0},
		{"v1.x", VersionInvalid, 0},
		{"vX2", VersionInvalid, 0},
		{"2X14X1", VersionInvalid, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, code := ParseVersion(tt.in)
			assert.Equal(t, tt.wantKind, kind, "kind for %q", tt.in)
			assert.Equal(t, tt.wantCode, code, "code for %q", tt.in)
		})
	}
}

func TestVersionKind_String(t *testing.T) {
	assert.Equal(t, "Release", VersionRelease.String())
	assert.Equal(t, "Beta", VersionBeta.String())
	assert.Equal(t, "Dev", VersionDev.String())
	assert.Equal(t, "Invalid", VersionInvalid.String())
}
