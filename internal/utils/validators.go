package utils

import (
	"strings"
)

// IsValidEmail checks for a non-empty local part and a dotted domain after a single "@".
func IsValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || strings.Count(email, "@") != 1 || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
