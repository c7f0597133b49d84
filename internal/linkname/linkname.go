// Package linkname holds the custom link naming rule shared by the server
// and the share CLI.
package linkname

import (
	"fmt"
	"regexp"
)

// MaxLength is the longest accepted link name. Archived versions append
// "-v<n>", so the cap leaves room for that within a 255 character column.
const MaxLength = 245

var pattern = regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9_][A-Za-z0-9._-]{0,%d}$`, MaxLength-1))

// Valid reports whether name can be used as a custom link: 1 to MaxLength
// characters of letters, digits, '.', '_' and '-', not starting with '.' or '-'.
func Valid(name string) bool {
	return pattern.MatchString(name)
}
