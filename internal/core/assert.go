//go:build debug_invariants

package core

// AssertInvariant panics if ok is false. Only compiled into builds
// tagged debug_invariants; production builds rely on AssertInvariant's
// non-panicking counterpart in assert_release.go instead.
func AssertInvariant(ok bool, msg string) {
	if !ok {
		panic("invariant violated: " + msg)
	}
}
