package confirmation

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Codes use an alphabet without 0/O, 1/I/L so they survive being read over
// a counter or typed from a printed slip. Case-insensitive on lookup.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 8

// NewCode generates a confirmation code like "QK7M-2XNW". Uniqueness is
// enforced by the appointments table; callers retry on a duplicate.
func NewCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	chars := make([]byte, codeLength)
	for i, b := range buf {
		chars[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("%s-%s", chars[:4], chars[4:]), nil
}

// Normalize canonicalizes user input for lookup: uppercased, with the
// separator optional when typed by hand.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	if len(code) == codeLength {
		return code[:4] + "-" + code[4:]
	}
	return code
}
