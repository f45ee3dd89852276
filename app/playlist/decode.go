package playlist

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// decodeText interprets raw playlist bytes as UTF-8 when valid, falling back
// to Latin-1 for the many provider feeds that still serve legacy encodings.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		// Latin-1 decoding cannot actually fail (every byte maps), but keep
		// the raw bytes as a lossy last resort.
		return string(data)
	}
	return string(decoded)
}
