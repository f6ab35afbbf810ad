package cache

import (
	"strings"
)

// KeyPrefix namespaces page entries in Redis.
const KeyPrefix = "cache:"

const upperhex = "0123456789ABCDEF"

// Key derives the store key for a page URL.
//
// The URL is percent-encoded as a URI component (only A-Z a-z 0-9 and
// - _ . ! ~ * ' ( ) are kept), then every "." is replaced with "_" because
// periods are not allowed in hierarchical store keys.
//
// Example:
//
//	http://a.com/x.y -> http%3A%2F%2Fa_com%2Fx_y
func Key(pageURL string) string {
	var b strings.Builder
	b.Grow(len(pageURL) * 3)

	for i := 0; i < len(pageURL); i++ {
		c := pageURL[i]
		switch {
		case c == '.':
			b.WriteByte('_')
		case isUnreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}

	return b.String()
}

// StoreKey returns the full Redis key for a page URL.
func StoreKey(pageURL string) string {
	return KeyPrefix + Key(pageURL)
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
