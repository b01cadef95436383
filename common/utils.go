package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Padding returns how many bytes must follow n bytes to reach the next multiple of 4.
//
// Parameters:
//   - n: the unpadded byte count
//
// Returns:
//   - int: the pad length in the range [0, 3]
func Padding(n int) int {
	return (4 - n&3) & 3
}

// AlignUp rounds n up to the next multiple of 4.
//
// Parameters:
//   - n: the byte count or offset to align
//
// Returns:
//   - int: n rounded up to a 4-byte boundary
func AlignUp(n int) int {
	return n + Padding(n)
}

// PadTo4 appends fill bytes to b until its length is a multiple of 4.
//
// Parameters:
//   - b: the slice to pad
//   - fill: the pad byte (0x20 for JSON chunks, 0x00 for binary data)
//
// Returns:
//   - []byte: the padded slice, possibly reallocated
func PadTo4(b []byte, fill byte) []byte {
	for range Padding(len(b)) {
		b = append(b, fill)
	}
	return b
}
