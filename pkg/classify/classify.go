// Package classify decides whether a repository path denotes a test file,
// a production file, or neither, from naming convention alone.
package classify

import "strings"

// Role is the classification of a repository path.
type Role int

const (
	// RoleIgnored marks paths outside the recognized source conventions.
	RoleIgnored Role = iota
	// RoleProduction marks Python source files that are not tests.
	RoleProduction
	// RoleTest marks test files.
	RoleTest
)

// sourceExt is the one recognized source extension.
const sourceExt = ".py"

// testDirSegment is the directory name that marks everything below it as tests.
const testDirSegment = "tests"

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleProduction:
		return "production"
	case RoleTest:
		return "test"
	case RoleIgnored:
		return "ignored"
	}

	return "ignored"
}

// PathRole classifies a path. Pure and case-insensitive: the same path always
// yields the same role, and a path is never both production and test.
func PathRole(path string) Role {
	lower := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))

	if hasTestDirSegment(lower) {
		return RoleTest
	}

	base := lower
	if idx := strings.LastIndexByte(lower, '/'); idx >= 0 {
		base = lower[idx+1:]
	}

	if !strings.HasSuffix(base, sourceExt) {
		return RoleIgnored
	}

	if strings.HasPrefix(base, "test_") ||
		strings.HasSuffix(base, "_test"+sourceExt) ||
		strings.HasSuffix(base, "_spec"+sourceExt) {
		return RoleTest
	}

	return RoleProduction
}

// IsTestPath reports whether the path classifies as a test file.
func IsTestPath(path string) bool {
	return PathRole(path) == RoleTest
}

// hasTestDirSegment reports whether any directory segment is literally "tests".
// The final segment is the file name and does not count.
func hasTestDirSegment(lower string) bool {
	segments := strings.Split(lower, "/")
	for _, seg := range segments[:len(segments)-1] {
		if seg == testDirSegment {
			return true
		}
	}

	return false
}

// TestBaseName strips the test naming convention from a test file's base
// name, returning the production base name it pairs with and true. Returns
// false for names that follow neither convention.
func TestBaseName(base string) (string, bool) {
	lower := strings.ToLower(base)

	if strings.HasPrefix(lower, "test_") {
		return lower[len("test_"):], true
	}

	if strings.HasSuffix(lower, "_test"+sourceExt) {
		return lower[:len(lower)-len("_test"+sourceExt)] + sourceExt, true
	}

	return "", false
}
