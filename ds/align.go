package ds

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// AlignUp returns the smallest multiple of m that is not less than n.
func AlignUp[T constraints.Integer](n T, m T) T {
	if m <= 1 {
		return n
	}
	remainder := n % m
	if remainder < 0 {
		remainder += m
	}
	if remainder == 0 {
		return n
	}
	return n + (m - remainder)
}

// NextPow2 returns the smallest power of two that is not less than n.
func NextPow2[T constraints.Integer](n T) T {
	if n <= 1 {
		return 1
	}
	p := T(1)
	for p < n {
		next := p << 1
		if next <= p {
			err := fmt.Errorf(`NextPow2 overflow with n = %d`, n)
			panic(err)
		}
		p = next
	}
	return p
}
