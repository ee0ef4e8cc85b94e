package core

// Integer formatting without the fmt package. Handlers and firmware main
// loops build their messages with these.

const hexDigits = "0123456789abcdef"

// utoa converts an unsigned 32-bit integer to a string
func utoa(n uint32) string {
	return FormatUint(uint64(n))
}

// FormatUint converts an unsigned integer to decimal
func FormatUint(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// FormatHex converts an unsigned integer to lower-case hex without prefix
func FormatHex(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [8]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = hexDigits[n&0xF]
		n >>= 4
	}
	return string(buf[pos:])
}

// AppendUint appends the decimal form of n to dst
func AppendUint(dst []byte, n uint64) []byte {
	return append(dst, FormatUint(n)...)
}
