package plan

import (
	"crypto/sha256"
	"sort"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"
)

// deriveJobID computes a stable id from (producer alias path, sorted
// dimension coordinates, baseRevision), per §4.2 step 7. The hash is
// truncated to 16 bytes and rendered through ulid.ULID's Crockford
// base32 encoding so job ids read and sort like the rest of the system's
// identifiers, even though they carry no embedded timestamp (they are
// content-derived, not time-derived — "ULID-like", not an actual ULID).
func deriveJobID(aliasPath string, coords map[string]int, baseRevision int) string {
	names := make([]string, 0, len(coords))
	for name := range coords {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(aliasPath)
	b.WriteByte('|')
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(coords[name]))
		b.WriteByte(',')
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(baseRevision))

	sum := sha256.Sum256([]byte(b.String()))
	var id ulid.ULID
	copy(id[:], sum[:16])
	return id.String()
}
