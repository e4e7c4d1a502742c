// Package semver validates and compares the MAJOR.MINOR.PATCH version
// strings accepted for addon releases.
package semver

import (
	"regexp"
	"strconv"
	"strings"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-[\w.]+)?(?:\+[\w.]+)?$`)

// Parse splits a semver string into its numeric components. The optional
// pre-release and build suffixes are accepted but not returned.
func Parse(version string) (major, minor, patch int, ok bool) {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		return 0, 0, 0, false
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	patch, _ = strconv.Atoi(m[3])
	return major, minor, patch, true
}

// IsValid reports whether the string is an acceptable release version.
func IsValid(version string) bool {
	_, _, _, ok := Parse(version)
	return ok
}

// Compare returns -1, 0 or 1 ordering two version strings. Unparseable
// versions fall back to plain string comparison.
func Compare(a, b string) int {
	aMaj, aMin, aPat, aOK := Parse(a)
	bMaj, bMin, bPat, bOK := Parse(b)

	if !aOK || !bOK {
		return strings.Compare(a, b)
	}

	if c := compareInt(aMaj, bMaj); c != 0 {
		return c
	}
	if c := compareInt(aMin, bMin); c != 0 {
		return c
	}
	return compareInt(aPat, bPat)
}

// IsNewer reports whether version a is strictly newer than b.
func IsNewer(a, b string) bool {
	return Compare(a, b) > 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
