package normalize

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// ContentHash is a stable BLAKE2b-256 digest over the cleaned, non-empty
// field values of a row, independent of key order and whitespace noise.
func ContentHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if CleanText(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.ToLower(CleanText(k)))
		b.WriteByte(0x1f)
		b.WriteString(norm.NFC.String(CleanText(fields[k])))
		b.WriteByte(0x1e)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
