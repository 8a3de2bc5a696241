// Package randid generates short random identifiers for runs and their log
// files.
package randid

import "math/rand/v2"

// alphabet omits characters that are easy to misread in a terminal: 0/o and
// 1/l/i.
const alphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// Generate returns a random identifier of n characters drawn from alphabet.
// It is not suitable for secrets.
func Generate(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
