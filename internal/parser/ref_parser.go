package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var refRegex = regexp.MustCompile(`^(?:([A-Z]+)-|#)?(\d+)$`)

// ParseRef turns a user-typed entity reference into an id.
// Accepts formats like:
// - "42", "#42"
// - "DEF-42", "def-42" (any letter prefix, as shown in tables)
func ParseRef(ref string) (int, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	m := refRegex.FindStringSubmatch(ref)
	if m == nil {
		return 0, fmt.Errorf("invalid reference %q. Use: 42, #42 or DEF-42", ref)
	}
	id, err := strconv.Atoi(m[2])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid reference %q: id must be positive", ref)
	}
	return id, nil
}

// DefectRef formats a defect id the way tables show it.
func DefectRef(id int) string {
	return fmt.Sprintf("DEF-%d", id)
}
