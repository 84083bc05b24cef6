/*
Package bitint provides the power-of-two check used to validate transform
and binning geometry. Everything here is allocation free and constant time,
so it is safe to call from the acquisition loop.

Usage:

	// Reject a transform size the radix-2 plan cannot handle
	if !bitint.IsPowerOfTwo(n) { ... }

----------------------------------------------------------------------

What this code does:

	IsPowerOfTwo relies on a power of two having exactly one bit set:
	n&(n-1) clears the lowest set bit, so the result is zero only
	when that bit was the only one.

	  64 & 63 = 1000000 & 0111111 = 0  -> power of two
	  48 & 47 = 0110000 & 0101111 = 0100000 -> not
*/
package bitint

// IsPowerOfTwo reports whether n is a positive power of two.
//
//	Input  Output
//	64     true
//	48     false
//	1      true
//	0      false
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
