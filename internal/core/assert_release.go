//go:build !debug_invariants

package core

// AssertInvariant is a no-op in production builds; callers still
// return ErrOverfill (or the relevant sentinel) through the normal
// error path regardless of this build tag.
func AssertInvariant(ok bool, msg string) {}
