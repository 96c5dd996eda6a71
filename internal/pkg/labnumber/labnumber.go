package labnumber

import (
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pattern matches a lab number anywhere in a string, e.g.
// LAB-20250417-8F2A1C3B. Case-insensitive because scanned filenames and
// analyzer output are not reliable about casing.
var Pattern = regexp.MustCompile(`(?i)LAB-\d{8}-[A-F0-9]{8}`)

var exact = regexp.MustCompile(`^LAB-\d{8}-[A-F0-9]{8}$`)

// New generates a lab number for the given order date: the date digits
// plus 8 hex chars of cryptographic randomness. Collisions are
// negligible but not impossible, so the store's unique constraint is
// still the authority.
func New(date time.Time) string {
	u := uuid.New()
	return "LAB-" + date.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// Valid reports whether s is exactly a well-formed lab number.
func Valid(s string) bool {
	return exact.MatchString(s)
}

// Extract finds the first lab number embedded in s (analyzer JSON, raw
// response bodies, filenames) and returns it uppercased.
func Extract(s string) (string, bool) {
	m := Pattern.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}
