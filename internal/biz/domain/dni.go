package domain

import "regexp"

// dniPattern matches the accepted cedula shapes: X-XXX-XXXX, X-XXX-XXX,
// N-XX-XXXX and X-XX-XXXX (X = digit, N = the literal letter N).
var dniPattern = regexp.MustCompile(`\b(\d-\d{3}-\d{3,4}|[N\d]-\d{2}-\d{4})\b`)

// FindDNI scans free text for a cedula number and returns the first match,
// or "" when the text contains none.
func FindDNI(text string) string {
	return dniPattern.FindString(text)
}
