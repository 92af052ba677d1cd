package httputil

import (
	"strings"
)

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// MissingFields returns the names of the empty values in fields, in the order given.
// fields alternates name, value.
func MissingFields(fields ...string) []string {
	var missing []string
	for i := 0; i+1 < len(fields); i += 2 {
		if IsEmpty(fields[i+1]) {
			missing = append(missing, fields[i])
		}
	}
	return missing
}
