//go:build !depotdebug

package depot

func debugAssert(bool, error) {}
