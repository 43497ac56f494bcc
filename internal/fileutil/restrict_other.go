//go:build !windows

package fileutil

// restrict is a no-op where file modes already express owner-only access.
func restrict(string) {}
