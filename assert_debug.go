//go:build depotdebug

package depot

// debugAssert panics on caller contract violations in builds tagged depotdebug.
func debugAssert(ok bool, err error) {
	if !ok {
		panic(err)
	}
}
