package segmaker

import "slices"

// ZeroGroup encodes one observation of a multi-valued attribute whose legal
// values are values and whose all-bits-clear encoding is zero.
//
// When observed is the zero value, every member of values is tagged and only
// the member equal to zero (if any) is true. Otherwise observed is tagged true
// and zero, when it is a member, is tagged false. Other members are left
// untagged; they collect evidence only from observations of their own.
func ZeroGroup(values []string, zero, observed string) (map[string]bool, error) {
	zeroIsMember := slices.Contains(values, zero)
	if observed != zero && !slices.Contains(values, observed) {
		return nil, &InvalidGroupValueError{Observed: observed, Zero: zero, Values: values}
	}

	out := make(map[string]bool)
	if observed == zero {
		for _, v := range values {
			out[v] = v == zero
		}
		return out, nil
	}

	out[observed] = true
	if zeroIsMember {
		out[zero] = false
	}
	return out, nil
}
