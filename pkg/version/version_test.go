package version

import (
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion_SemverOrDev(t *testing.T) {
	if Version == "dev" {
		return
	}
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`), Version)
}

func TestGetInfo(t *testing.T) {
	// Given: ldflags stamped a commit
	old := Commit
	Commit = "abc123"
	t.Cleanup(func() { Commit = old })

	// When: reading the build
	info := GetInfo()

	// Then: the stamp wins over the VCS fallback
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestString(t *testing.T) {
	s := String()

	assert.Contains(t, s, "amandocs "+Version)
	assert.Contains(t, s, runtime.GOOS)
	assert.Equal(t, Version, Short())
}

func TestShortRevision(t *testing.T) {
	assert.Equal(t, "0123456789ab", shortRevision("0123456789abcdef0123"))
	assert.Equal(t, "abc", shortRevision("abc"))
}
