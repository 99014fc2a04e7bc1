// Package rand generates the bearer tokens that guard the provisioning trigger.
package rand

import (
	"crypto/rand"
	"fmt"
)

const tokenLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Token returns n characters drawn uniformly from [A-Za-z0-9] using crypto/rand.
func Token(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}

	// Bytes at or above limit are rejected so every letter is equally likely.
	limit := byte(256 - 256%len(tokenLetters))

	result := make([]byte, 0, n)
	buf := make([]byte, n+n/3)
	for len(result) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("unable to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			result = append(result, tokenLetters[int(b)%len(tokenLetters)])
			if len(result) == n {
				break
			}
		}
	}
	return string(result), nil
}
